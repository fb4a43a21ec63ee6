package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpAdapter "github.com/aretw0/parley/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long:  `Exposes the bot as MCP tools (send_message, reset_conversation, list_intents) for agent hosts.`,
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, _, err := buildEngine(cmd, nil)
		if err != nil {
			fmt.Printf("Error initializing parley: %v\n", err)
			os.Exit(1)
		}

		server := mcpAdapter.NewServer(engine.Runtime())
		if err := server.ServeStdio(); err != nil {
			fmt.Printf("MCP server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
