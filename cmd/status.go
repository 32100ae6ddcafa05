package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vecsync/internal/syncer"
)

var statusCmd = &cobra.Command{
	Use:   "status [collection]",
	Short: "Show sync status for one or all collections",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	if len(args) == 1 {
		st, err := eng.syncer.Status(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(st)
		}
		printStatus(*st)
		return nil
	}

	names, err := eng.store.Names()
	if err != nil {
		return err
	}
	statuses, err := eng.syncer.AllStatuses(ctx, names)
	if err != nil {
		return err
	}
	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(statuses)
	}

	sorted := make([]string, 0, len(statuses))
	for name := range statuses {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		printStatus(statuses[name])
	}
	return nil
}

func printStatus(st syncer.CollectionSyncStatus) {
	fmt.Printf("%s: %s", st.Collection, st.Status)
	if st.HasPendingChanges {
		fmt.Printf(" (pending changes)")
	}
	fmt.Println()
	if st.Status != syncer.StatusNeverSynced {
		fmt.Printf("  files: %d/%d  chunks: %d  generation: %d\n",
			st.SyncedFiles, st.TotalFiles, st.TotalChunks, st.Generation)
	}
	if st.CompletedAt != nil {
		fmt.Printf("  last completed: %s\n", st.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if st.LastError != "" {
		fmt.Printf("  last error: %s\n", st.LastError)
	}
}
