package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a declarative conversational workflow engine",
	Long:  `Parley turns JSON/YAML command definitions into a chat bot: fuzzy intent matching, multi-step conversations and outbound API calls.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default: parley.yaml in . or ./configs)")
	rootCmd.PersistentFlags().String("commands", "", "Directory containing command definitions (overrides config)")
}
