package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kgstore/kgstore/internal/transfer"
)

var (
	exportMarkdownDir string
	importSkipDup     bool
	migrateDryRun     bool
	migrateVerify     bool
	migrateRollback   bool
	migrateVerbose    bool
)

var exportCmd = &cobra.Command{
	Use:   "export <sqlite-path> <output-file>",
	Short: "Export a backend's memories and relationships to the universal JSON format",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, closeRepo, err := openRepository(ctx, args[0])
		if err != nil {
			return fmt.Errorf("open source backend: %w", err)
		}
		defer closeRepo()

		env, err := transfer.Export(ctx, repo, repo.Backend().Name())
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}

		dir := filepath.Dir(args[1])
		if err := transfer.WriteTo(env, dir, args[1]); err != nil {
			return fmt.Errorf("write export file: %w", err)
		}

		if exportMarkdownDir != "" {
			if err := transfer.WriteMarkdown(exportMarkdownDir, env); err != nil {
				return fmt.Errorf("write markdown export: %w", err)
			}
		}

		fmt.Printf("exported %d memories, %d relationships to %s\n", env.MemoryCount, env.RelationshipCount, args[1])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <sqlite-path> <input-file>",
	Short: "Import memories and relationships from the universal JSON format",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := transfer.ReadFrom(args[1])
		if err != nil {
			return fmt.Errorf("read export file: %w", err)
		}
		warnings, err := transfer.ValidateEnvelope(env)
		if err != nil {
			return fmt.Errorf("validate export file: %w", err)
		}
		for _, w := range warnings {
			fmt.Printf("warning: %s\n", w)
		}

		repo, closeRepo, err := openRepository(ctx, args[0])
		if err != nil {
			return fmt.Errorf("open target backend: %w", err)
		}
		defer closeRepo()

		result, err := transfer.Import(ctx, repo, env, transfer.ImportOptions{SkipDuplicates: importSkipDup})
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}

		fmt.Printf("imported %d memories (%d skipped), %d relationships (%d skipped)\n",
			result.MemoriesInserted, result.MemoriesSkipped, result.RelationshipsInserted, result.RelationshipsSkipped)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <source-sqlite-path> <target-sqlite-path>",
	Short: "Migrate all memories and relationships from one backend to another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		source, closeSource, err := openRepository(ctx, args[0])
		if err != nil {
			return fmt.Errorf("open source backend: %w", err)
		}
		defer closeSource()

		target, closeTarget, err := openRepository(ctx, args[1])
		if err != nil {
			return fmt.Errorf("open target backend: %w", err)
		}
		defer closeTarget()

		result, err := transfer.Migrate(ctx, source, target, transfer.MigrationOptions{
			DryRun:            migrateDryRun,
			Verify:            migrateVerify,
			RollbackOnFailure: migrateRollback,
			Verbose:           migrateVerbose,
		})
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		fmt.Printf("migrated %d memories, %d relationships; imported %d memories (%d skipped)\n",
			result.ExportedMemories, result.ExportedRelationships, result.Imported.MemoriesInserted, result.Imported.MemoriesSkipped)
		for _, w := range result.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		if result.RolledBack {
			fmt.Println("migration was rolled back")
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportMarkdownDir, "markdown-dir", "", "also write a human-readable Markdown export to this directory")
	importCmd.Flags().BoolVar(&importSkipDup, "skip-duplicates", true, "skip memories that already exist in the target by id")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "export and validate without importing into the target")
	migrateCmd.Flags().BoolVar(&migrateVerify, "verify", true, "sample-verify the target after import")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback-on-failure", true, "roll back the target import if verification fails")
	migrateCmd.Flags().BoolVar(&migrateVerbose, "verbose", false, "report phase progress")

	rootCmd.AddCommand(exportCmd, importCmd, migrateCmd)
}
