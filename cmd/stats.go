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
	statsInterval int
	statsShowAll  bool
	statsFile     string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Track framing errors and implausible values with statistics",
	Long: `Validate every decoded event and report problems with running statistics.

Detects:
  - Length errors (declared frame length disagreeing with the trailer position)
  - Protocol errors (unrecognized response flags, undecodable telemetry entries)
  - Implausible channel pulses (outside 800-2200us) and channel counts
  - Telemetry text entries without labels

By default only problems are displayed. Use --show-all to display every event.
Statistics summaries print at --interval. With --file, a capture is analyzed
offline and a single summary printed.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsInterval, "interval", 10, "Statistics update interval (seconds)")
	statsCmd.Flags().BoolVar(&statsShowAll, "show-all", false, "Show all events (not just problems)")
	statsCmd.Flags().StringVarP(&statsFile, "file", "f", "", "Analyze a capture file instead of a live connection")
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsFile != "" {
		return statsFromCapture(statsFile)
	}
	return statsLive()
}

// reportEvents folds one decode batch into stats and prints whatever the
// display mode calls for.
func reportEvents(stats *exbus.Statistics, events []exbus.Event) {
	for _, e := range events {
		verrs := exbus.ValidateEvent(e)
		stats.Update([]exbus.Event{e}, verrs)

		switch e.Kind {
		case exbus.KindLengthError, exbus.KindProtocolError:
			fmt.Printf("[%s] \033[1;31m%s\033[0m\n", e.Start.Format("15:04:05.000"), exbus.DescribeEvent(e))
			continue
		}
		for _, verr := range verrs {
			fmt.Printf("[%s] \033[1;33mANOMALY:\033[0m %s\n", e.Start.Format("15:04:05.000"), verr.Error())
		}
		if statsShowAll {
			fmt.Println(exbus.FormatEvent(e))
		}
	}
}

func statsFromCapture(path string) error {
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
	stats := exbus.NewStatistics()
	for {
		s, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		reportEvents(stats, decoder.DecodeByte(s.Byte, s.Start(), s.End()))
	}

	fmt.Println()
	fmt.Println(stats.String())
	return nil
}

func statsLive() error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Exbuscope - Statistics Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if statsShowAll {
		fmt.Printf("Mode: All events\n")
	} else {
		fmt.Printf("Mode: Problems only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := exbus.NewDecoder()
	stats := exbus.NewStatistics()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	// Channel for non-blocking reads so the summary ticker keeps firing on a
	// quiet bus.
	type sample struct {
		b          byte
		start, end time.Time
	}
	samples := make(chan sample, 1024)
	readErr := make(chan error, 1)
	go func() {
		readErr <- streamBytes(conn, func(b byte, start, end time.Time) error {
			samples <- sample{b, start, end}
			return nil
		})
	}()

	for {
		select {
		case s := <-samples:
			reportEvents(stats, decoder.DecodeByte(s.b, s.start, s.end))

		case <-statsTicker.C:
			stats.CalculateRates()
			fmt.Println()
			fmt.Println(stats.String())
			fmt.Println()

		case err := <-readErr:
			if err == ErrConnectionClosed {
				logger.Info("connection closed")
				return nil
			}
			return err
		}
	}
}
