/*
Package sample runs perf against a workload and returns the counters it reports. Each call
validates its request, builds one perf command line, runs it through an Executor, and
parses perf's stderr.
*/
package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strconv"
	"strings"

	"perfsample/internal/encode"
	"perfsample/internal/perf"
	"perfsample/internal/target"

	mapset "github.com/deckarep/golang-set/v2"
)

// CyclesEvent is the reference event per core counts are normalized against.
const CyclesEvent = "cycles"

const paranoidPath = "/proc/sys/kernel/perf_event_paranoid"

var (
	ErrZeroCycles      = errors.New("zero cycles counted")
	ErrInvalidSocket   = errors.New("invalid socket")
	ErrNoUnitInstances = errors.New("no unit instances found")
)

// Executor runs a command and reports its output and exit code. target.LocalTarget
// satisfies it.
type Executor interface {
	RunCommand(cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error)
}

// Topology answers the questions about the host that command construction depends on.
type Topology interface {
	UnitInstanceCount(unitKind string) (int, error)
	NUMANodeCPUs(node int) ([]int, error)
	SocketCount() (int, error)
}

// ExecutionError is returned when a command exits with a status other than zero or
// target.ExitCodeTimeout. Stderr holds everything the command wrote, which usually
// includes perf's reason for rejecting an event.
type ExecutionError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command failed with exit code %d: %s\n%s", e.ExitCode, e.Command, strings.TrimSpace(e.Stderr))
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Options configure a Sampler.
type Options struct {
	Command perf.CommandOptions
	Parse   perf.ParseOptions
	Timeout int // seconds, zero means no timeout
}

// DefaultOptions returns the default command and parse options with no timeout.
func DefaultOptions() Options {
	return Options{
		Command: perf.DefaultCommandOptions(),
		Parse:   perf.DefaultParseOptions(),
	}
}

type Sampler struct {
	executor Executor
	topology Topology
	Options  Options
}

func NewSampler(executor Executor, topology Topology, opts Options) *Sampler {
	return &Sampler{executor: executor, topology: topology, Options: opts}
}

// run executes commandLine in a shell and returns its stderr. A timeout is not a failure,
// whatever was written before it expired is returned.
func (s *Sampler) run(commandLine string) (string, error) {
	slog.Info("running command", slog.String("cmd", commandLine), slog.Int("timeout", s.Options.Timeout))
	stdout, stderr, exitCode, err := s.executor.RunCommand(target.ShellCommand(commandLine), s.Options.Timeout)
	if exitCode == target.ExitCodeTimeout {
		slog.Info("command timed out as expected", slog.String("cmd", commandLine))
		return stderr, nil
	}
	if err != nil || exitCode != 0 {
		slog.Error("command failed", slog.String("cmd", commandLine), slog.Int("exitCode", exitCode), slog.String("stderr", stderr))
		return "", &ExecutionError{Command: commandLine, ExitCode: exitCode, Stderr: stderr, Err: err}
	}
	slog.Debug("command completed", slog.String("cmd", commandLine), slog.Int("stdoutLen", len(stdout)), slog.Int("stderrLen", len(stderr)))
	return stderr, nil
}

func (s *Sampler) instanceCount(unitKind string) (int, error) {
	count, err := s.topology.UnitInstanceCount(unitKind)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s instances: %w", unitKind, err)
	}
	if count < 1 {
		return 0, fmt.Errorf("%w: %s", ErrNoUnitInstances, unitKind)
	}
	return count, nil
}

// SampleUncoreEvents samples up to perf.MaxUncoreEvents specs on every instance of
// unitKind while workload runs. The result maps event code to instance id to count.
// Codes must be textually distinct, see perf.DisambiguateEventCodes.
func (s *Sampler) SampleUncoreEvents(workload string, unitKind string, specs []perf.EventSpec) (map[string]map[string]int64, error) {
	if err := perf.ValidateEventSpecs(specs); err != nil {
		return nil, err
	}
	count, err := s.instanceCount(unitKind)
	if err != nil {
		return nil, err
	}
	commandLine, err := perf.UncoreSamplingCommand(s.Options.Command, workload, unitKind, count, specs)
	if err != nil {
		return nil, err
	}
	raw, err := s.run(commandLine)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(specs))
	for _, spec := range specs {
		codes = append(codes, spec.Code)
	}
	return perf.ParseMultipleUnitEvents(raw, unitKind, codes, s.Options.Parse), nil
}

// SampleUncoreEvent samples a single event and returns its count per instance.
func (s *Sampler) SampleUncoreEvent(workload string, unitKind string, code string, mask string) (map[string]int64, error) {
	result, err := s.SampleUncoreEvents(workload, unitKind, []perf.EventSpec{{Code: code, Mask: mask}})
	if err != nil {
		return nil, err
	}
	return result[code], nil
}

// SampleNamedMasks samples one event code under several unit masks at once. Codes are
// padded in the order masks are given, and the result is keyed by mask name.
func (s *Sampler) SampleNamedMasks(workload string, unitKind string, code string, masks []perf.NamedMask) (map[string]map[string]int64, error) {
	specs, err := perf.NamedMaskSpecs(code, masks)
	if err != nil {
		return nil, err
	}
	byCode, err := s.SampleUncoreEvents(workload, unitKind, specs)
	if err != nil {
		return nil, err
	}
	result := make(map[string]map[string]int64, len(specs))
	for _, spec := range specs {
		result[spec.Name] = byCode[spec.Code]
	}
	return result, nil
}

// SampleCoreEvents samples caller-qualified events, passed to perf unchanged. The
// result maps event name to count.
func (s *Sampler) SampleCoreEvents(workload string, events []string) (map[string]int64, error) {
	events = uniqueEvents(events)
	commandLine, err := perf.CoreSamplingCommand(s.Options.Command, workload, events)
	if err != nil {
		return nil, err
	}
	raw, err := s.run(commandLine)
	if err != nil {
		return nil, err
	}
	return perf.ParseCoreEvents(raw, events, s.Options.Parse), nil
}

// SampleCoreEvent samples a single event and returns its count. An event perf did not
// report counts as zero.
func (s *Sampler) SampleCoreEvent(workload string, event string) (int64, error) {
	result, err := s.SampleCoreEvents(workload, []string{event})
	if err != nil {
		return 0, err
	}
	return result[event], nil
}

// SampleDataFabricEvents samples AMD data fabric events. The result is keyed by the
// selector passed to perf, e.g., "amd_df/event=0x1f,umask=0x1/".
func (s *Sampler) SampleDataFabricEvents(workload string, specs []perf.EventSpec) (map[string]int64, error) {
	if err := perf.ValidateEventSpecs(specs); err != nil {
		return nil, err
	}
	selectors := make([]string, 0, len(specs))
	for _, spec := range specs {
		maskHex, err := encode.BinaryMaskToHex(spec.Mask)
		if err != nil {
			return nil, err
		}
		selectors = append(selectors, perf.DataFabricSelector(spec.Code, maskHex))
	}
	return s.SampleCoreEvents(workload, selectors)
}

func (s *Sampler) validateSocket(socket int) error {
	sockets, err := s.topology.SocketCount()
	if err != nil {
		return fmt.Errorf("failed to count sockets: %w", err)
	}
	if socket < 0 || socket >= sockets {
		return fmt.Errorf("%w: %d, host has %d socket(s)", ErrInvalidSocket, socket, sockets)
	}
	return nil
}

// SamplePerCoreEvents samples events on every core and returns the counts of the cores
// on socket, keyed by event then core label.
func (s *Sampler) SamplePerCoreEvents(workload string, events []string, socket int) (map[string]map[string]int64, error) {
	events = uniqueEvents(events)
	if len(events) == 0 {
		return nil, perf.ErrNoEvents
	}
	if err := s.validateSocket(socket); err != nil {
		return nil, err
	}
	commandLine, err := perf.PerCoreSamplingCommand(s.Options.Command, workload, events)
	if err != nil {
		return nil, err
	}
	raw, err := s.run(commandLine)
	if err != nil {
		return nil, err
	}
	result := make(map[string]map[string]int64, len(events))
	for _, event := range events {
		counts := perf.ParsePerCoreEvent(raw, event)[socket]
		if counts == nil {
			counts = make(map[string]int64)
		}
		result[event] = counts
	}
	return result, nil
}

// SampleAndNormalizePerCore samples events together with cycles and divides each core's
// count by that core's cycles. The result is keyed by event then core label. A core
// with no cycles counted fails with ErrZeroCycles.
func (s *Sampler) SampleAndNormalizePerCore(workload string, events []string, socket int) (map[string]map[string]float64, error) {
	if len(events) == 0 {
		return nil, perf.ErrNoEvents
	}
	counts, err := s.SamplePerCoreEvents(workload, append(append([]string{}, events...), CyclesEvent), socket)
	if err != nil {
		return nil, err
	}
	ratios, err := Normalize(counts, CyclesEvent)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(events, CyclesEvent) {
		delete(ratios, CyclesEvent)
	}
	return ratios, nil
}

// Normalize divides every event's per core counts by the reference event's count on the
// same core. The reference is normalized along with the rest, so its ratios are 1.
func Normalize(counts map[string]map[string]int64, reference string) (map[string]map[string]float64, error) {
	cycles := counts[reference]
	result := make(map[string]map[string]float64, len(counts))
	for event, perCore := range counts {
		ratios := make(map[string]float64, len(perCore))
		for core, count := range perCore {
			denominator, ok := cycles[core]
			if !ok || denominator == 0 {
				return nil, fmt.Errorf("%w: core %s while normalizing %s", ErrZeroCycles, core, event)
			}
			ratios[core] = float64(count) / float64(denominator)
		}
		result[event] = ratios
	}
	return result, nil
}

// SetRestrictionLevel sets kernel.perf_event_paranoid to level.
func (s *Sampler) SetRestrictionLevel(level int) error {
	commandLine, err := perf.RestrictionLevelCommand(s.Options.Command, level)
	if err != nil {
		return err
	}
	_, err = s.run(commandLine)
	return err
}

// RestrictionLevel returns the current value of kernel.perf_event_paranoid.
func (s *Sampler) RestrictionLevel() (int, error) {
	commandLine := "cat " + paranoidPath
	stdout, stderr, exitCode, err := s.executor.RunCommand(target.ShellCommand(commandLine), 0)
	if err != nil || exitCode != 0 {
		return 0, &ExecutionError{Command: commandLine, ExitCode: exitCode, Stderr: stderr, Err: err}
	}
	level, err := strconv.Atoi(strings.TrimSpace(stdout))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", paranoidPath, err)
	}
	return level, nil
}

// uniqueEvents drops repeated event names, keeping the first occurrence.
func uniqueEvents(events []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	unique := make([]string, 0, len(events))
	for _, event := range events {
		if seen.Add(event) {
			unique = append(unique, event)
		}
	}
	return unique
}
