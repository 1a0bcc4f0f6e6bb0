// ABOUTME: Cobra command for interactive weekly summary provider setup.
// ABOUTME: Launches a bubbletea TUI wizard to collect and validate AI API credentials.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/diary/internal/config"
	"github.com/2389-research/diary/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect an AI provider for weekly summaries",
	Long:  "Interactive wizard to configure OpenAI-compatible API credentials for weekly summaries.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(
		cfg.AI.BaseURL,
		cfg.AI.Model,
		cfg.AI.APIKey,
	)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	baseURL, aiModel, apiKey := final.Result()
	cfg.AI.BaseURL = baseURL
	cfg.AI.Model = aiModel
	cfg.AI.APIKey = apiKey

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
