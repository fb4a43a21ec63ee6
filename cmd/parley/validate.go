package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/pkg/catalog"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the command catalog for consistency",
	Long:  `Loads the command definitions and reports malformed structures, unknown goto targets, unreachable steps and dead-end cycles.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Catalog is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("commands")
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		dir = "commands"
	}

	cat, err := catalog.Load(cmd.Context(), catalog.NewDirSource(dir))
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d commands from %s\n", cat.Len(), dir)
	return nil
}
