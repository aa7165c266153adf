package main

import (
	"fmt"
	"os"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/config"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/flow"
)

// ValidateCmd checks the configuration and the flow catalog without
// starting the server.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Printf("✅ Configuration valid (backend: %s, port: %d)\n",
		cfg.Backend.BaseURL, cfg.Server.Port)

	if _, err := os.Stat(cfg.Flows.Dir); err != nil {
		fmt.Printf("⚠️  Flow directory %s not readable: %v\n", cfg.Flows.Dir, err)
		return nil
	}
	catalog := flow.NewCatalog(cfg.Flows.Dir)
	defs, err := catalog.Definitions()
	if err != nil {
		return fmt.Errorf("flow catalog invalid: %w", err)
	}
	fmt.Printf("✅ Flow catalog valid (%d definitions)\n", len(defs))
	for _, def := range defs {
		auth := ""
		if def.RequiresAuth {
			auth = " (auth required)"
		}
		fmt.Printf("   - %s: intents %v%s\n", def.ID, def.Intents, auth)
	}
	return nil
}
