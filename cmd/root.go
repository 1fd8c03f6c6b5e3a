// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The exbuscope authors

package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Config file flag
	configPath string
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
})

var rootCmd = &cobra.Command{
	Use:   "exbuscope",
	Short: "Jeti ExBus Protocol Analyzer",
	Long: `Exbuscope - A CLI tool for monitoring and analyzing Jeti ExBus frames.

Decodes the half-duplex receiver bus carrying servo channel values and EX
telemetry, live from a serial tap or offline from a capture file.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 125000]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the EXBUSCOPE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentPreRunE = applyConfig

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 125000, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/exbuscope/config.yaml)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
