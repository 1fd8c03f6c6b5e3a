// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The exbuscope authors

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jetilab/exbuscope/pkg/capture"
	"github.com/jetilab/exbuscope/pkg/exbus"
	"github.com/spf13/cobra"
)

var (
	decodeFile    string
	decodeCSV     string
	decodeCompact bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode ExBus frames to a human-readable event log",
	Long: `Continuously decode and display ExBus protocol events as they arrive.

Each event is printed with its wire timestamp: frame starts, channel values,
EX telemetry sensor readings and labels, and framing errors.

Reads from a live connection (--port or --url), a capture file recorded with
'exbuscope record' (--file), or a logic-analyzer CSV export (--csv).`,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVarP(&decodeFile, "file", "f", "", "Decode a capture file instead of a live connection")
	decodeCmd.Flags().StringVar(&decodeCSV, "csv", "", "Decode a logic-analyzer CSV export")
	decodeCmd.Flags().BoolVar(&decodeCompact, "compact", false, "Print short event tags instead of full descriptions")
}

func printEvents(events []exbus.Event) {
	for _, e := range events {
		if decodeCompact {
			fmt.Printf("[%s] %s\n", e.Start.Format("15:04:05.000000"), exbus.FormatEventCompact(e))
		} else {
			fmt.Println(exbus.FormatEvent(e))
		}
	}
}

func runDecode(cmd *cobra.Command, args []string) error {
	switch {
	case decodeFile != "":
		return decodeCaptureFile(decodeFile)
	case decodeCSV != "":
		return decodeCSVFile(decodeCSV)
	default:
		return decodeLive()
	}
}

func decodeCaptureFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := capture.NewReader(f)
	if err != nil {
		return err
	}

	decoder := exbus.NewDecoder()
	for {
		s, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		printEvents(decoder.DecodeByte(s.Byte, s.Start(), s.End()))
	}
	if !decoder.Idle() {
		logger.Warn("capture ended mid-frame")
	}
	return nil
}

func decodeCSVFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	samples, err := capture.ReadCSV(f, byteTime())
	if err != nil {
		return err
	}

	decoder := exbus.NewDecoder()
	for _, s := range samples {
		printEvents(decoder.DecodeByte(s.Byte, s.Start(), s.End()))
	}
	if !decoder.Idle() {
		logger.Warn("export ended mid-frame")
	}
	return nil
}

func decodeLive() error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Exbuscope - Event Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := exbus.NewDecoder()
	err = streamBytes(conn, func(b byte, start, end time.Time) error {
		printEvents(decoder.DecodeByte(b, start, end))
		return nil
	})
	if err == ErrConnectionClosed {
		logger.Info("connection closed")
		return nil
	}
	return err
}
