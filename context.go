package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"imgdup/config"
)

type commandContext struct {
	configFlag    *string
	cachePathFlag *string
}

func newCommandContext(configFlag, cachePathFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		cachePathFlag: cachePathFlag,
	}
}

// loadConfig reads the configuration file named by --config, or the default one
func (c *commandContext) loadConfig() (*config.Config, string, bool, error) {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		return nil, "", false, fmt.Errorf("load config: %w", err)
	}
	if c.cachePathFlag != nil && strings.TrimSpace(*c.cachePathFlag) != "" {
		expanded, err := config.ExpandPath(strings.TrimSpace(*c.cachePathFlag))
		if err != nil {
			return nil, "", false, err
		}
		cfg.Cache.Path = expanded
	}
	return cfg, resolved, exists, nil
}

// findConfig merges the configuration file with the root command flags and validates the result
func (c *commandContext) findConfig(cmd *cobra.Command, flags *findFlags, args []string) (*config.Config, error) {
	cfg, _, _, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, flags, args, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
