package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/runner"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long:  `Starts the bot in the terminal. Messages you type are matched against the command catalog; /help lists the slash commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		identity, _ := cmd.Flags().GetString("identity")
		if identity == "" {
			identity = uuid.NewString()
		}
		plain, _ := cmd.Flags().GetBool("plain")

		engine, _, logger, err := buildEngine(cmd, nil)
		if err != nil {
			fmt.Printf("Error initializing parley: %v\n", err)
			os.Exit(1)
		}

		if !plain {
			tui.PrintBanner()
		}

		r := runner.New()
		r.Logger = logger
		if !plain {
			r.Renderer = tui.NewRenderer()
		}

		if err := r.Run(cmd.Context(), engine.Runtime(), identity); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("identity", "", "Stable identity for this session (default: random)")
	chatCmd.Flags().Bool("plain", false, "Disable the banner and markdown rendering")

	// Make 'chat' the default if no command is provided
	rootCmd.Run = chatCmd.Run
}
