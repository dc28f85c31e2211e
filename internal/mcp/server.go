package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kgstore/kgstore/internal/logging"
	"github.com/kgstore/kgstore/internal/ratelimit"
	"github.com/kgstore/kgstore/internal/repository"
	"github.com/kgstore/kgstore/pkg/config"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "kgstore"
	ServerVersion   = "1.0.0"
)

// RateLimitErrorData is the structured data attached to a rate-limit RPCError.
type RateLimitErrorData struct {
	RetryAfterMs int64  `json:"retry_after_ms"`
	LimitType    string `json:"limit_type"`
	Message      string `json:"message"`
}

// RateLimitExceeded is a non-standard JSON-RPC error code used for rate
// limiting, outside the reserved -32700..-32603 range.
const RateLimitExceeded = -32000

// Server implements the MCP tool dispatcher (C9) over JSON-RPC 2.0/stdio.
type Server struct {
	repo        *repository.Repository
	cfg         *config.Config
	rateLimiter *ratelimit.Limiter
	handlers    map[string]handlerFunc
	profile     string
	log         *logging.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	mu          sync.Mutex
	initialized bool
}

// NewServer constructs a dispatcher over an already-connected repository.
func NewServer(repo *repository.Repository, cfg *config.Config) *Server {
	l := logging.GetLogger("mcp")
	l.Info("initializing MCP server", "version", ServerVersion, "protocol", ProtocolVersion, "profile", cfg.ToolProfile)

	var rl *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		rl = ratelimit.NewLimiter(&ratelimit.Config{
			Enabled: cfg.RateLimit.Enabled,
			Global: ratelimit.LimitConfig{
				RequestsPerSecond: cfg.RateLimit.Global.RequestsPerSecond,
				BurstSize:         cfg.RateLimit.Global.BurstSize,
			},
			Tools: convertToolLimits(cfg.RateLimit.Tools),
		})
		l.Info("rate limiting enabled", "global_rps", cfg.RateLimit.Global.RequestsPerSecond)
	}

	profile := cfg.ToolProfile
	if profile == "" {
		profile = "core"
	}

	return &Server{
		repo:        repo,
		cfg:         cfg,
		rateLimiter: rl,
		handlers:    handlerTable(),
		profile:     profile,
		log:         l,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
}

// convertToolLimits adapts the config package's tool-limit shape to
// ratelimit's own, kept as two types so config stays free of a ratelimit
// import.
func convertToolLimits(tools []config.ToolLimitConfig) []ratelimit.ToolLimit {
	result := make([]ratelimit.ToolLimit, len(tools))
	for i, t := range tools {
		result[i] = ratelimit.ToolLimit{
			Name:              t.Name,
			RequestsPerSecond: t.RequestsPerSecond,
			BurstSize:         t.BurstSize,
		}
	}
	return result
}

// Run starts the MCP server main loop, reading one JSON-RPC request per line
// from stdin until EOF or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("starting MCP server main loop")
	scanner := bufio.NewScanner(s.stdin)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			s.log.Info("context cancelled, shutting down")
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		response := s.handleRequest(ctx, line)
		if response != nil {
			s.sendResponse(response)
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Error("scanner error", "error", err)
		return fmt.Errorf("scanner error: %w", err)
	}

	s.log.Info("MCP server shutdown complete")
	return nil
}

// handleRequest processes a single JSON-RPC request.
func (s *Server) handleRequest(ctx context.Context, line string) *Response {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.log.Error("failed to parse request", "error", err)
		return &Response{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: ParseError, Message: "Parse error", Data: err.Error()},
		}
	}

	s.log.Debug("received request", "method", req.Method, "id", req.ID)

	if req.JSONRPC != "2.0" {
		s.log.Warn("invalid jsonrpc version", "version", req.JSONRPC)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: InvalidRequest, Message: "Invalid Request", Data: "jsonrpc must be '2.0'"},
		}
	}

	switch req.Method {
	case "initialize":
		s.log.Info("handling initialize request")
		return s.handleInitialize(req)
	case "initialized":
		s.log.Debug("received initialized notification")
		return nil
	case "tools/list":
		s.log.Debug("handling tools/list request")
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "prompts/list":
		s.log.Debug("handling prompts/list request")
		return s.handlePromptsList(req)
	case "prompts/get":
		s.log.Debug("handling prompts/get request")
		return s.handlePromptsGet(req)
	case "ping":
		s.log.Debug("handling ping request")
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}}
	default:
		s.log.Warn("method not found", "method", req.Method)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: MethodNotFound, Message: "Method not found", Data: req.Method},
		}
	}
}

func (s *Server) handleInitialize(req Request) *Response {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities: ServerCapabilities{
				Tools:   &ToolsCapability{ListChanged: false},
				Prompts: &PromptsCapability{ListChanged: false},
			},
			ServerInfo: ServerInfo{Name: ServerName, Version: ServerVersion},
		},
	}
}

// handlePromptsList returns the fixed prompt set: a short usage reminder for
// agents driving the dispatcher interactively.
func (s *Server) handlePromptsList(req Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: PromptsListResult{
			Prompts: []Prompt{
				{Name: "recall-first", Description: "Reminder to recall before storing", Arguments: []PromptArgument{}},
			},
		},
	}
}

const recallFirstPrompt = `Before storing new knowledge, call recall_memories with a query describing
the topic. If a close match already exists, prefer create_relationship or
update_memory over creating a duplicate. When a problem gets solved, create a
SOLVES relationship from the solution memory to the problem memory so
get_recent_activity stops listing it as unresolved.`

func (s *Server) handlePromptsGet(req Request) *Response {
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: InvalidParams, Message: "Invalid params", Data: err.Error()}}
	}
	if params.Name != "recall-first" {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: InvalidParams, Message: "Prompt not found", Data: params.Name}}
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: PromptGetResult{
			Description: "Reminder to recall before storing",
			Messages: []PromptMessage{
				{Role: "user", Content: ContentBlock{Type: "text", Text: recallFirstPrompt}},
			},
		},
	}
}

func (s *Server) handleToolsList(req Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  ToolsListResult{Tools: toolDefinitionsForProfile(s.profile)},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.log.Error("failed to parse tool params", "error", err)
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: InvalidParams, Message: "Invalid params", Data: err.Error()}}
	}

	s.log.LogRequest("tools/call", "tool", params.Name)

	if s.rateLimiter != nil {
		result := s.rateLimiter.Allow(ctx, params.Name)
		if !result.Allowed {
			s.log.Warn("rate limit exceeded", "tool", params.Name, "limit_type", result.LimitType, "retry_after_ms", result.RetryAfter.Milliseconds())
			return &Response{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error: &RPCError{
					Code:    RateLimitExceeded,
					Message: "Rate limit exceeded",
					Data: RateLimitErrorData{
						RetryAfterMs: result.RetryAfter.Milliseconds(),
						LimitType:    result.LimitType,
						Message:      fmt.Sprintf("Rate limit exceeded for %s. Retry after %v.", result.LimitType, result.RetryAfter),
					},
				},
			}
		}
	}

	startTime := time.Now()
	result, err := s.callTool(ctx, params.Name, params.Arguments)
	duration := time.Since(startTime)

	if err != nil {
		s.log.LogError("tool_call", err, "tool", params.Name, "duration_ms", duration.Seconds()*1000)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: CallToolResult{
				Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("❌ **Error**\n\n```\n%v\n```", err)}},
				IsError: true,
			},
		}
	}

	s.log.LogResponse("tools/call", duration.Seconds()*1000, "tool", params.Name)

	formatter := NewFormatter()
	formattedOutput := formatter.FormatToolResponse(params.Name, result, duration)

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  CallToolResult{Content: []ContentBlock{{Type: "text", Text: formattedOutput}}},
	}
}

// callTool looks the tool name up in the single dispatch table (§4.7);
// unknown names and names not visible under the configured profile are
// reported identically, as an error with isError=true.
func (s *Server) callTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	if !isPermitted(s.profile, name) {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	h, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return h(ctx, s.repo, args)
}

func (s *Server) sendResponse(resp *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("failed to marshal response", "error", err)
		return
	}
	fmt.Fprintln(s.stdout, string(data))
}
