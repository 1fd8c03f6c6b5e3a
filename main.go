// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors
//
// Exbuscope - Jeti ExBus Protocol Analyzer
//
// A CLI tool for monitoring and decoding the Jeti ExBus receiver bus:
// servo channel values, EX telemetry, and framing errors.

package main

import (
	"os"

	"github.com/jetilab/exbuscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
