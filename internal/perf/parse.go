package perf

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Parsing of the text 'perf stat' writes to stderr. Lines are matched by substring and
// split at fixed positions, the same way perf lays them out. Anything that does not
// match is noise and is skipped.

import (
	"log/slog"
	"strconv"
	"strings"

	"perfsample/internal/encode"
)

// byteLabel marks counters perf has scaled from cache lines into bytes.
const byteLabel = "Byte"

// ParseOptions control unit handling while parsing counter values.
type ParseOptions struct {
	// LineConversion divides counters labeled as bytes by LineSize, turning them back
	// into cache line counts. Most events perf labels as bytes were multiplied by the
	// line size, so this is usually what's wanted, but not always.
	LineConversion bool
	LineSize       int64
}

// DefaultParseOptions enables byte to cache line conversion with 64 byte lines.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{LineConversion: true, LineSize: encode.CacheLineSize}
}

// parseCounter parses the counter token of a line, i.e., the text before the event name,
// e.g., "    8,795 " or "   640 Bytes ".
func parseCounter(text string, opts ParseOptions) (int64, bool) {
	valStr := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	isBytes := false
	if before, _, found := strings.Cut(valStr, byteLabel); found {
		valStr = strings.TrimSpace(before)
		isBytes = true
	}
	val, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil {
		return 0, false
	}
	if isBytes && opts.LineConversion {
		val = encode.BytesToLines(val, opts.LineSize)
	}
	return val, true
}

// ParseUnitEvents extracts the count of one event on every instance of unitKind, e.g.,
// "   8,795      uncore_cha_1/event=0xb3,umask=0x8/" yields {"1": 8795} for code
// "0xb3". The result is keyed by instance id.
func ParseUnitEvents(raw string, unitKind string, code string, opts ParseOptions) map[string]int64 {
	infix := unitKind + "_"
	suffix := "/event=" + code
	result := make(map[string]int64)
	skipped := 0
	for line := range strings.SplitSeq(raw, "\n") {
		if !strings.Contains(line, infix) || !strings.Contains(line, suffix) {
			continue
		}
		countStr, rest, _ := strings.Cut(line, infix)
		count, ok := parseCounter(countStr, opts)
		if !ok {
			skipped++
			continue
		}
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			skipped++
			continue
		}
		result[rest[:idx]] = count
	}
	if skipped > 0 {
		slog.Debug("skipped uncounted uncore lines", slog.String("unit", unitKind), slog.String("code", code), slog.Int("lines", skipped))
	}
	return result
}

// ParseMultipleUnitEvents parses each code independently. The result is keyed by event
// code, then instance id.
func ParseMultipleUnitEvents(raw string, unitKind string, codes []string, opts ParseOptions) map[string]map[string]int64 {
	result := make(map[string]map[string]int64, len(codes))
	for _, code := range codes {
		result[code] = ParseUnitEvents(raw, unitKind, code, opts)
	}
	return result
}

// ParseCoreEvents extracts the count of each event from lines of the form
// "  1,234,567      cycles". When an event name appears on several lines the last one wins.
func ParseCoreEvents(raw string, events []string, opts ParseOptions) map[string]int64 {
	result := make(map[string]int64, len(events))
	for line := range strings.SplitSeq(raw, "\n") {
		for _, event := range events {
			idx := strings.Index(line, event)
			if idx < 0 {
				continue
			}
			if count, ok := parseCounter(line[:idx], opts); ok {
				result[event] = count
			}
		}
	}
	return result
}

// ParsePerCoreEvent extracts per core counts of one event from 'perf stat --per-core -x;'
// output, e.g., "S0-D0-C3;1;123456;;cycles;100.00;;". Empty fields are dropped, the
// first field identifies socket, die, and core, the third is the count. The result is
// keyed by socket number, then core label ("3" above).
func ParsePerCoreEvent(raw string, event string) map[int]map[string]int64 {
	result := make(map[int]map[string]int64)
	for line := range strings.SplitSeq(raw, "\n") {
		if !strings.Contains(line, event) {
			continue
		}
		var fields []string
		for field := range strings.SplitSeq(line, ";") {
			if field != "" {
				fields = append(fields, field)
			}
		}
		if len(fields) < 3 {
			continue
		}
		socket, core, ok := parseCoreID(fields[0])
		if !ok {
			continue
		}
		count, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil {
			slog.Debug("skipped per-core line", slog.String("event", event), slog.String("line", line))
			continue
		}
		if _, ok := result[socket]; !ok {
			result[socket] = make(map[string]int64)
		}
		result[socket][core] = count
	}
	return result
}

// parseCoreID splits "S<socket>-D<die>-C<core>" into the socket number and core label.
func parseCoreID(id string) (socket int, core string, ok bool) {
	parts := strings.Split(strings.TrimSpace(id), "-")
	if len(parts) < 3 || len(parts[0]) < 2 || len(parts[2]) < 2 {
		return
	}
	socket, err := strconv.Atoi(parts[0][1:])
	if err != nil {
		return
	}
	return socket, parts[2][1:], true
}
