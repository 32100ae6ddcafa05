package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vecsync/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync [collection]",
	Short: "Synchronize a collection's vector index with its files",
	Long: `Detects which files changed since the last sync, re-chunks and re-embeds
them, and removes vectors of deleted files. Unchanged files are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("force", false, "reprocess every file, even unchanged ones")
	syncCmd.Flags().String("strategy", "", "chunking strategy: sentence, paragraph, fixed (default from config)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	collection := args[0]

	force, _ := cmd.Flags().GetBool("force")
	strategy, _ := cmd.Flags().GetString("strategy")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	files, err := eng.store.ListFiles(collection)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription(fmt.Sprintf("syncing %s", collection)),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	eng.syncer.SetProgressFunc(func(_, _ string) {
		bar.Add(1)
	})

	result, err := eng.syncer.Sync(ctx, collection, syncer.SyncOptions{
		ForceReprocess: force,
		Strategy:       strategy,
	})
	bar.Finish()
	if err != nil {
		return err
	}

	fmt.Printf("Collection %q: %s\n", collection, result.Status)
	fmt.Printf("  processed: %d  skipped: %d  deleted: %d  failed: %d\n",
		result.ProcessedFiles, result.SkippedFiles, result.DeletedFiles, result.FailedFiles)
	fmt.Printf("  total chunks: %d  (%s)\n", result.TotalChunks, result.Duration)
	return nil
}
