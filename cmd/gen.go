// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The exbuscope authors

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jetilab/exbuscope/pkg/capture"
	"github.com/jetilab/exbuscope/pkg/exbus"
	"github.com/spf13/cobra"
)

var (
	genOutput   string
	genFrames   int
	genChannels []string
	genPacketID int
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate synthetic ExBus traffic",
	Long: `Build well-formed ExBus frames and either write them to a capture file or
transmit them on the connection.

Each cycle sends a channel-data frame followed by a telemetry request, the
pattern a Jeti receiver produces. Channel values are given in microseconds
with --channel and held constant across frames.

Useful for exercising decoders and bench hardware without a transmitter.`,
	RunE: runGen,
}

func init() {
	rootCmd.AddCommand(genCmd)
	genCmd.Flags().StringVarP(&genOutput, "output", "o", "", "Write a capture file instead of transmitting")
	genCmd.Flags().IntVarP(&genFrames, "frames", "n", 10, "Number of frame cycles to generate")
	genCmd.Flags().StringArrayVarP(&genChannels, "channel", "c", []string{"1500", "1500", "1100", "1900"}, "Channel value in microseconds (repeatable)")
	genCmd.Flags().IntVar(&genPacketID, "packet-id", 0, "Packet id of the first frame")
}

func parseChannels(args []string) ([]float64, error) {
	values := make([]float64, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
		if err != nil {
			return nil, fmt.Errorf("bad channel value %q", arg)
		}
		if v < 0 || v > 8191 {
			return nil, fmt.Errorf("channel value %v out of encodable range", v)
		}
		values = append(values, v)
	}
	return values, nil
}

func runGen(cmd *cobra.Command, args []string) error {
	channels, err := parseChannels(genChannels)
	if err != nil {
		return err
	}

	// One cycle is what a receiver emits per period: channel data, then a
	// telemetry request slaves may answer.
	cycle := func(packetID byte) [][]byte {
		return [][]byte{
			exbus.BuildChannelFrame(packetID, false, channels),
			exbus.BuildTelemetryRequest(packetID),
		}
	}

	if genOutput != "" {
		return genToCapture(cycle)
	}
	return genToConnection(cycle)
}

func genToCapture(cycle func(byte) [][]byte) error {
	f, err := os.Create(genOutput)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := capture.NewWriter(f)
	if err != nil {
		return err
	}

	dur := byteTime()
	now := time.Now()
	total := 0
	for i := 0; i < genFrames; i++ {
		for _, frame := range cycle(byte(genPacketID + i)) {
			for _, b := range frame {
				if err := w.Append(capture.NewSample(b, now, now.Add(dur))); err != nil {
					return err
				}
				now = now.Add(dur)
				total++
			}
			// Inter-frame gap, roughly what the bus shows at 10ms periods.
			now = now.Add(2 * time.Millisecond)
		}
	}

	logger.Info("wrote synthetic capture", "file", genOutput, "cycles", genFrames, "bytes", total)
	return nil
}

func genToConnection(cycle func(byte) [][]byte) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Exbuscope - Frame Generator\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Cycles: %d\n\n", genFrames)

	for i := 0; i < genFrames; i++ {
		for _, frame := range cycle(byte(genPacketID + i)) {
			if _, err := conn.Write(frame); err != nil {
				return fmt.Errorf("writing frame: %w", err)
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	logger.Info("transmitted frame cycles", "cycles", genFrames)
	return nil
}
