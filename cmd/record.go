// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The exbuscope authors

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jetilab/exbuscope/pkg/capture"
	"github.com/spf13/cobra"
)

var recordCSV string

var recordCmd = &cobra.Command{
	Use:   "record <output.excap>",
	Short: "Record raw bus bytes to a capture file",
	Long: `Record every byte from the connection, with timestamps, to a capture file
for later offline decoding with 'exbuscope decode --file'.

With --csv, converts a logic-analyzer CSV export into a capture file instead
of recording live.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVar(&recordCSV, "csv", "", "Convert a logic-analyzer CSV export instead of recording live")
}

func runRecord(cmd *cobra.Command, args []string) error {
	out, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer out.Close()

	w, err := capture.NewWriter(out)
	if err != nil {
		return err
	}

	if recordCSV != "" {
		return convertCSV(w, recordCSV)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Exbuscope - Recording\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Output: %s\n", args[0])
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The connection read blocks, so interruption closes it out from under
	// the pump.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	count := 0
	err = streamBytes(conn, func(b byte, start, end time.Time) error {
		count++
		return w.Append(capture.NewSample(b, start, end))
	})
	if ctx.Err() != nil || err == ErrConnectionClosed {
		logger.Info("recording stopped", "samples", count)
		return nil
	}
	return err
}

func convertCSV(w *capture.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	samples, err := capture.ReadCSV(f, byteTime())
	if err != nil {
		return err
	}
	for _, s := range samples {
		if err := w.Append(s); err != nil {
			return err
		}
	}
	logger.Info("converted csv export", "samples", len(samples))
	return nil
}
