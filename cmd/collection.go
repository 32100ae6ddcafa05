package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage document collections",
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create an empty collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := cliEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.store.Create(args[0]); err != nil {
			return err
		}
		fmt.Printf("Created collection %q\n", args[0])
		return nil
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := cliEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		infos, err := eng.store.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No collections.")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s\t%d file(s)\n", info.Name, info.FileCount)
		}
		return nil
	},
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a collection and all its derived state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		eng, err := cliEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.store.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted collection %q and its vectors\n", args[0])
		return nil
	},
}

var collectionAddCmd = &cobra.Command{
	Use:   "add [name] [file...]",
	Short: "Add files to a collection",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := cliEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		name := args[0]
		for _, path := range args[1:] {
			content, err := readLocalFile(path)
			if err != nil {
				return err
			}
			if err := eng.store.WriteFile(name, path, content); err != nil {
				return err
			}
			fmt.Printf("Added %s\n", path)
		}
		return nil
	},
}

func init() {
	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)
	collectionCmd.AddCommand(collectionAddCmd)
	rootCmd.AddCommand(collectionCmd)
}

func cliEngine(cmd *cobra.Command) (*engine, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildEngine(ctx, cfg)
}
