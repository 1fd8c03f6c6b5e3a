// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package capture

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ReadCSV imports a logic-analyzer async-serial export: one row per decoded
// byte, first column the start time in seconds, second column the byte value
// (hex with 0x prefix or decimal). A leading header row is skipped. The
// analyzer exports only start times, so each sample's end is derived from
// byteDuration (one byte time at the bus baud rate).
func ReadCSV(r io.Reader, byteDuration time.Duration) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var samples []Sample
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		line++
		if len(record) < 2 {
			return nil, fmt.Errorf("csv line %d: want at least 2 columns, got %d", line, len(record))
		}

		seconds, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			if line == 1 {
				// Header row.
				continue
			}
			return nil, fmt.Errorf("csv line %d: bad timestamp %q", line, record[0])
		}
		value, err := parseByteValue(record[1])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		startNs := int64(seconds * float64(time.Second))
		samples = append(samples, Sample{
			Byte:    value,
			StartNs: startNs,
			EndNs:   startNs + int64(byteDuration),
		})
	}
	return samples, nil
}

func parseByteValue(field string) (byte, error) {
	field = strings.TrimSpace(field)
	base := 10
	if rest, ok := strings.CutPrefix(field, "0x"); ok {
		field = rest
		base = 16
	}
	v, err := strconv.ParseUint(field, base, 8)
	if err != nil {
		return 0, fmt.Errorf("bad byte value %q", field)
	}
	return byte(v), nil
}
