package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/appforge/config"
)

// cli holds the state shared by all commands.
type cli struct {
	configPath string
	provider   string
	logLevel   string
}

// load reads the configuration and applies the global flag overrides.
func (c *cli) load() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.provider != "" {
		cfg.Provider.Name = c.provider
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	return cfg, cfg.Validate()
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "appforge",
		Short: "Multi-agent application generator",
		Long: `appforge runs a team of role-specialized agents that turns a natural
language request into requirements, designs, code and tests.

A coordinator talks with the user and delegates focused tasks to
specialists. Every step is streamed as an event.

Examples:
  appforge chat "build a todo app with user accounts"
  appforge chat --json "add a kanban board"
  appforge serve
  appforge roles`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default $APPFORGE_CONFIG or appforge.yaml)")
	rootCmd.PersistentFlags().StringVarP(&c.provider, "provider", "p", "", "model provider: anthropic, openai or scripted")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newChatCommand(c),
		newServeCommand(c),
		newRolesCommand(c),
	)

	return rootCmd
}
