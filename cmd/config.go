// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The exbuscope authors

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds connection defaults loaded from the YAML config file. Flags
// given on the command line always win over config values.
type Config struct {
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "exbuscope", "config.yaml")
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyConfig fills in connection flags the user did not set from the config
// file. A missing default config file is fine; a missing --config file is not.
func applyConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return nil
		}
	}

	cfg, err := loadConfig(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	flags := rootCmd.PersistentFlags()
	if cfg.Port != "" && !flags.Changed("port") {
		portName = cfg.Port
	}
	if cfg.Baud != 0 && !flags.Changed("baud") {
		baudRate = cfg.Baud
	}
	if cfg.URL != "" && !flags.Changed("url") {
		wsURL = cfg.URL
	}
	if cfg.Username != "" && !flags.Changed("username") {
		wsUsername = cfg.Username
	}
	return nil
}
