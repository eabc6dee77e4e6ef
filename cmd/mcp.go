package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/docextract/internal/config"
	"github.com/sells-group/docextract/internal/mcpserver"
	"github.com/sells-group/docextract/internal/server"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve extraction tools over MCP stdio",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		// stdout carries protocol frames.
		if err := config.InitStderrLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cfg, nil)
		if err != nil {
			return err
		}
		s, err := mcpserver.New(env.Pipeline, env.Presenter, server.Version)
		if err != nil {
			return err
		}
		return s.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
