package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantically search synced collections",
	Long:  `Embeds the query and returns the most similar chunks across all collections, or within one collection with --collection.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().String("collection", "", "restrict the search to one collection")
	searchCmd.Flags().Int("limit", 10, "maximum number of results")
	searchCmd.Flags().Float32("threshold", 0, "minimum similarity score")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	query := args[0]

	collection, _ := cmd.Flags().GetString("collection")
	limit, _ := cmd.Flags().GetInt("limit")
	threshold, _ := cmd.Flags().GetFloat32("threshold")
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

	results, err := eng.search.Search(ctx, query, collection, limit, threshold)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("--- Result %d (score: %.4f) ---\n", i+1, r.Score)
		fmt.Printf("%s/%s (chunk %d of %d)\n\n", r.Collection, r.Path, r.ChunkIndex+1, r.TotalChunks)
		fmt.Println(r.ChunkText)
		fmt.Println()
	}
	return nil
}
