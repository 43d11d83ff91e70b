package perf

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"perfsample/internal/encode"

	mapset "github.com/deckarep/golang-set/v2"
)

// MaxUncoreEvents is the number of distinct uncore events sampled in one call. Most
// uncore units have four general purpose counters.
const MaxUncoreEvents = 4

const (
	MinRestrictionLevel = -1
	MaxRestrictionLevel = 3
)

var (
	ErrTooManyEvents           = errors.New("too many events")
	ErrNoEvents                = errors.New("no events requested")
	ErrInvalidRestrictionLevel = errors.New("invalid perf_event_paranoid level")
	ErrAmbiguousEventCode      = errors.New("event code is a prefix of another requested code")
)

// CommandOptions control how command lines are prefixed.
type CommandOptions struct {
	PerfPath string // path to the perf binary, "perf" if empty
	Sudo     bool   // prefix commands with sudo
}

// DefaultCommandOptions returns options that run the perf found in PATH under sudo.
func DefaultCommandOptions() CommandOptions {
	return CommandOptions{PerfPath: "perf", Sudo: true}
}

func (o CommandOptions) prefix(args ...string) []string {
	var parts []string
	if o.Sudo {
		parts = append(parts, "sudo")
	}
	return append(parts, args...)
}

func (o CommandOptions) perfPath() string {
	if o.PerfPath == "" {
		return "perf"
	}
	return o.PerfPath
}

// ValidateEventSpecs checks the caller contract for one uncore sampling call: at most
// MaxUncoreEvents specs, valid codes and masks, and no code that is textually identical to
// or a prefix of another. Output lines are matched by "/event=<code>" containment, so 0xb
// would also match 0xb3 lines.
func ValidateEventSpecs(specs []EventSpec) error {
	if len(specs) == 0 {
		return ErrNoEvents
	}
	if len(specs) > MaxUncoreEvents {
		return fmt.Errorf("%w: %d requested, at most %d can be sampled at once", ErrTooManyEvents, len(specs), MaxUncoreEvents)
	}
	codes := mapset.NewThreadUnsafeSet[string]()
	for _, spec := range specs {
		if !codes.Add(spec.Code) {
			return fmt.Errorf("%w: %s (hint: prepend zeros, e.g., 0xF, 0x0F, 0x00F)", ErrDuplicateEventCode, spec.Code)
		}
		if err := validateEventCode(spec.Code); err != nil {
			return err
		}
		if _, err := encode.BinaryMaskToHex(spec.Mask); err != nil {
			return err
		}
	}
	for _, spec := range specs {
		for _, other := range specs {
			if spec.Code != other.Code && strings.HasPrefix(other.Code, spec.Code) {
				return fmt.Errorf("%w: %s, %s (hint: prepend zeros, e.g., 0x0b)", ErrAmbiguousEventCode, spec.Code, other.Code)
			}
		}
	}
	return nil
}

// UncoreSamplingArgs returns the selectors for every spec on every unit instance as
// repeated -e flags.
func UncoreSamplingArgs(unitKind string, instanceCount int, specs []EventSpec) ([]string, error) {
	if err := ValidateEventSpecs(specs); err != nil {
		return nil, err
	}
	var args []string
	for _, spec := range specs {
		maskHex, err := encode.BinaryMaskToHex(spec.Mask)
		if err != nil {
			return nil, err
		}
		selectors, err := AllInstanceSelectors(unitKind, instanceCount, spec.Code, maskHex)
		if err != nil {
			return nil, err
		}
		for _, selector := range selectors {
			args = append(args, "-e", selector)
		}
	}
	return args, nil
}

// UncoreSamplingCommand assembles the system-wide perf stat command line that samples
// specs on all instanceCount instances of unitKind while workload runs.
func UncoreSamplingCommand(opts CommandOptions, workload string, unitKind string, instanceCount int, specs []EventSpec) (string, error) {
	eventArgs, err := UncoreSamplingArgs(unitKind, instanceCount, specs)
	if err != nil {
		return "", err
	}
	parts := opts.prefix(opts.perfPath(), "stat", "-a")
	parts = append(parts, eventArgs...)
	parts = append(parts, "--", workload)
	cmd := strings.Join(parts, " ")
	slog.Debug("built uncore sampling command", slog.String("unit", unitKind), slog.Int("instances", instanceCount), slog.Int("events", len(specs)))
	return cmd, nil
}

// CoreSamplingCommand assembles a perf stat command line for caller-qualified event
// names, passed through unchanged.
func CoreSamplingCommand(opts CommandOptions, workload string, events []string) (string, error) {
	if len(events) == 0 {
		return "", ErrNoEvents
	}
	parts := opts.prefix(opts.perfPath(), "stat")
	parts = append(parts, eventFlags(events)...)
	parts = append(parts, workload)
	return strings.Join(parts, " "), nil
}

// PerCoreSamplingCommand assembles a system-wide perf stat command line that reports
// each event per core in perf's ';' separated format.
func PerCoreSamplingCommand(opts CommandOptions, workload string, events []string) (string, error) {
	if len(events) == 0 {
		return "", ErrNoEvents
	}
	parts := opts.prefix(opts.perfPath(), "stat", "--per-core", "-x", `\;`, "-a")
	parts = append(parts, eventFlags(events)...)
	parts = append(parts, workload)
	return strings.Join(parts, " "), nil
}

// RestrictionLevelCommand returns the sysctl command line that sets
// kernel.perf_event_paranoid. Levels:
//
//	-1  no restrictions
//	 0  normal access, system-wide tracepoints may be restricted
//	 1  restricted access to CPU events
//	 2  no CPU events for unprivileged users
//	 3  maximum restriction
func RestrictionLevelCommand(opts CommandOptions, level int) (string, error) {
	if level < MinRestrictionLevel || level > MaxRestrictionLevel {
		return "", fmt.Errorf("%w: %d, allowed values are %d through %d", ErrInvalidRestrictionLevel, level, MinRestrictionLevel, MaxRestrictionLevel)
	}
	parts := opts.prefix("sysctl", "-w", fmt.Sprintf("kernel.perf_event_paranoid=%d", level))
	return strings.Join(parts, " "), nil
}

func eventFlags(events []string) []string {
	flags := make([]string, 0, 2*len(events))
	for _, event := range events {
		flags = append(flags, "-e", event)
	}
	return flags
}
