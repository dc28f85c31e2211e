package mcp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const projectDetectTimeout = 2 * time.Second

// detectProject implements auto-project inference (§4.7): ask git for the
// repository root, falling back to the basename of the working directory.
// Detection failures are silently ignored — callers get "" and proceed
// without a project scope.
func detectProject() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), projectDetectTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "-C", cwd, "rev-parse", "--show-toplevel")
	if out, err := cmd.Output(); err == nil {
		root := strings.TrimSpace(string(out))
		if root != "" {
			return filepath.Base(root)
		}
	}
	return filepath.Base(cwd)
}

// resolveProject returns explicit when non-empty, else the auto-detected
// project, per the "SHOULD, when it is absent, attempt to detect" wording.
func resolveProject(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return detectProject()
}
