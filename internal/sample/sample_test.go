package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"os/exec"
	"testing"

	"perfsample/internal/encode"
	"perfsample/internal/perf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
	calls    []string
	timeouts []int
}

func (f *fakeExecutor) RunCommand(cmd *exec.Cmd, timeout int) (string, string, int, error) {
	f.calls = append(f.calls, cmd.Args[len(cmd.Args)-1])
	f.timeouts = append(f.timeouts, timeout)
	return f.stdout, f.stderr, f.exitCode, f.err
}

type fakeTopology struct {
	instances map[string]int
	sockets   int
}

func (f *fakeTopology) UnitInstanceCount(unitKind string) (int, error) {
	return f.instances[unitKind], nil
}

func (f *fakeTopology) NUMANodeCPUs(node int) ([]int, error) {
	return []int{0, 1}, nil
}

func (f *fakeTopology) SocketCount() (int, error) {
	return f.sockets, nil
}

func newTestSampler(executor *fakeExecutor) *Sampler {
	topology := &fakeTopology{instances: map[string]int{"uncore_cha": 2}, sockets: 2}
	return NewSampler(executor, topology, DefaultOptions())
}

func TestSampleUncoreEventsTooManyEvents(t *testing.T) {
	executor := &fakeExecutor{}
	sampler := newTestSampler(executor)
	specs := []perf.EventSpec{
		{Code: "0x01", Mask: "1"},
		{Code: "0x02", Mask: "1"},
		{Code: "0x03", Mask: "1"},
		{Code: "0x04", Mask: "1"},
		{Code: "0x05", Mask: "1"},
	}
	_, err := sampler.SampleUncoreEvents("sleep 1", "uncore_cha", specs)
	assert.ErrorIs(t, err, perf.ErrTooManyEvents)
	assert.Empty(t, executor.calls)
}

func TestSampleUncoreEventsValidation(t *testing.T) {
	tests := []struct {
		name    string
		unit    string
		specs   []perf.EventSpec
		wantErr error
	}{
		{"bad mask", "uncore_cha", []perf.EventSpec{{Code: "0xb3", Mask: "10201"}}, encode.ErrInvalidMask},
		{"wide mask", "uncore_cha", []perf.EventSpec{{Code: "0xb3", Mask: "100000000"}}, encode.ErrMaskTooWide},
		{"duplicate code", "uncore_cha", []perf.EventSpec{{Code: "0xb3", Mask: "1"}, {Code: "0xb3", Mask: "10"}}, perf.ErrDuplicateEventCode},
		{"prefix code", "uncore_cha", []perf.EventSpec{{Code: "0xb", Mask: "1"}, {Code: "0xb3", Mask: "1"}}, perf.ErrAmbiguousEventCode},
		{"no events", "uncore_cha", nil, perf.ErrNoEvents},
		{"no instances", "uncore_imc", []perf.EventSpec{{Code: "0xb3", Mask: "1"}}, ErrNoUnitInstances},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := &fakeExecutor{}
			_, err := newTestSampler(executor).SampleUncoreEvents("sleep 1", tt.unit, tt.specs)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, executor.calls)
		})
	}
}

func TestSampleUncoreEvents(t *testing.T) {
	executor := &fakeExecutor{stderr: `
 Performance counter stats for 'system wide':

             8,795      uncore_cha_1/event=0xb3,umask=0x8/
            12,001      uncore_cha_0/event=0xb3,umask=0x8/
               640 Bytes uncore_cha_0/event=0x0c,umask=0x1/

       1.001234567 seconds time elapsed
`}
	sampler := newTestSampler(executor)
	result, err := sampler.SampleUncoreEvents("sleep 1", "uncore_cha", []perf.EventSpec{
		{Code: "0xb3", Mask: "00001000"},
		{Code: "0x0c", Mask: "1"},
	})
	require.NoError(t, err)
	require.Len(t, executor.calls, 1)
	assert.Equal(t, "sudo perf stat -a"+
		" -e uncore_cha_0/event=0xb3,umask=0x8/ -e uncore_cha_1/event=0xb3,umask=0x8/"+
		" -e uncore_cha_0/event=0x0c,umask=0x1/ -e uncore_cha_1/event=0x0c,umask=0x1/"+
		" -- sleep 1", executor.calls[0])
	assert.Equal(t, map[string]map[string]int64{
		"0xb3": {"0": 12001, "1": 8795},
		"0x0c": {"0": 10},
	}, result)
}

func TestSampleUncoreEvent(t *testing.T) {
	executor := &fakeExecutor{stderr: "   8,795      uncore_cha_1/event=0xb3,umask=0x8/\n"}
	result, err := newTestSampler(executor).SampleUncoreEvent("sleep 1", "uncore_cha", "0xb3", "00001000")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"1": 8795}, result)
}

func TestSampleNamedMasks(t *testing.T) {
	executor := &fakeExecutor{stderr: `
               100      uncore_cha_0/event=0xb3,umask=0x1/
               200      uncore_cha_0/event=0x0b3,umask=0x2/
               300      uncore_cha_1/event=0x0b3,umask=0x2/
`}
	result, err := newTestSampler(executor).SampleNamedMasks("sleep 1", "uncore_cha", "0xb3", []perf.NamedMask{
		{Name: "hit", Mask: "00000001"},
		{Name: "miss", Mask: "00000010"},
	})
	require.NoError(t, err)
	require.Len(t, executor.calls, 1)
	assert.Contains(t, executor.calls[0], "-e uncore_cha_1/event=0x0b3,umask=0x2/")
	assert.Equal(t, map[string]map[string]int64{
		"hit":  {"0": 100},
		"miss": {"0": 200, "1": 300},
	}, result)
}

func TestSampleCoreEvents(t *testing.T) {
	executor := &fakeExecutor{stderr: `
 Performance counter stats for 'sleep 1':

         1,234,567      cycles
           987,654      instructions              #    0.80  insn per cycle
`}
	sampler := newTestSampler(executor)
	sampler.Options.Command.Sudo = false
	result, err := sampler.SampleCoreEvents("sleep 1", []string{"cycles", "instructions", "cycles"})
	require.NoError(t, err)
	assert.Equal(t, []string{"perf stat -e cycles -e instructions sleep 1"}, executor.calls)
	assert.Equal(t, map[string]int64{"cycles": 1234567, "instructions": 987654}, result)

	count, err := sampler.SampleCoreEvent("sleep 1", "instructions")
	require.NoError(t, err)
	assert.Equal(t, int64(987654), count)
}

func TestSampleDataFabricEvents(t *testing.T) {
	executor := &fakeExecutor{stderr: "             6,400 Bytes amd_df/event=0x1f,umask=0x1/\n"}
	result, err := newTestSampler(executor).SampleDataFabricEvents("sleep 1", []perf.EventSpec{{Code: "0x1f", Mask: "00000001"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"sudo perf stat -e amd_df/event=0x1f,umask=0x1/ sleep 1"}, executor.calls)
	assert.Equal(t, map[string]int64{"amd_df/event=0x1f,umask=0x1/": 100}, result)
}

func TestTimeoutIsNotAnError(t *testing.T) {
	executor := &fakeExecutor{
		stderr:   "   8,795      uncore_cha_1/event=0xb3,umask=0x8/\n",
		exitCode: 124,
		err:      errors.New("signal: killed"),
	}
	sampler := newTestSampler(executor)
	sampler.Options.Timeout = 5
	result, err := sampler.SampleUncoreEvent("sleep 10", "uncore_cha", "0xb3", "1000")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"1": 8795}, result)
	assert.Equal(t, []int{5}, executor.timeouts)
}

func TestExecutionError(t *testing.T) {
	executor := &fakeExecutor{
		stderr:   "event syntax error: 'uncore_cha_0/event=0xb3,umask=0x8/'",
		exitCode: 129,
		err:      errors.New("exit status 129"),
	}
	result, err := newTestSampler(executor).SampleUncoreEvent("sleep 1", "uncore_cha", "0xb3", "1000")
	assert.Nil(t, result)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 129, execErr.ExitCode)
	assert.Contains(t, execErr.Stderr, "event syntax error")
	assert.Contains(t, err.Error(), "event syntax error")
}

const perCoreOutput = `S0-D0-C0;1;1000;;cycles;100.00;;
S0-D0-C0;1;250;;instructions;100.00;;
S0-D0-C1;1;2000;;cycles;100.00;;
S0-D0-C1;1;1500;;instructions;100.00;;
S1-D0-C0;1;3000;;cycles;100.00;;
S1-D0-C0;1;600;;instructions;100.00;;
`

func TestSamplePerCoreEvents(t *testing.T) {
	executor := &fakeExecutor{stderr: perCoreOutput}
	result, err := newTestSampler(executor).SamplePerCoreEvents("sleep 1", []string{"instructions"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{`sudo perf stat --per-core -x \; -a -e instructions sleep 1`}, executor.calls)
	assert.Equal(t, map[string]map[string]int64{"instructions": {"0": 600}}, result)
}

func TestSamplePerCoreEventsInvalidSocket(t *testing.T) {
	for _, socket := range []int{-1, 2} {
		executor := &fakeExecutor{stderr: perCoreOutput}
		_, err := newTestSampler(executor).SamplePerCoreEvents("sleep 1", []string{"instructions"}, socket)
		assert.ErrorIs(t, err, ErrInvalidSocket)
		assert.Empty(t, executor.calls)
	}
}

func TestSampleAndNormalizePerCore(t *testing.T) {
	executor := &fakeExecutor{stderr: perCoreOutput}
	result, err := newTestSampler(executor).SampleAndNormalizePerCore("sleep 1", []string{"instructions"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{`sudo perf stat --per-core -x \; -a -e instructions -e cycles sleep 1`}, executor.calls)
	assert.Equal(t, map[string]map[string]float64{"instructions": {"0": 0.25, "1": 0.75}}, result)
}

func TestSampleAndNormalizePerCoreKeepsRequestedCycles(t *testing.T) {
	executor := &fakeExecutor{stderr: perCoreOutput}
	result, err := newTestSampler(executor).SampleAndNormalizePerCore("sleep 1", []string{"cycles"}, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]float64{"cycles": {"0": 1, "1": 1}}, result)
}

func TestNormalizeZeroCycles(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]map[string]int64
	}{
		{"zero", map[string]map[string]int64{"cycles": {"0": 0}, "instructions": {"0": 10}}},
		{"missing", map[string]map[string]int64{"cycles": {"1": 10}, "instructions": {"0": 10}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.counts, CyclesEvent)
			assert.ErrorIs(t, err, ErrZeroCycles)
		})
	}
}

func TestRestrictionLevel(t *testing.T) {
	executor := &fakeExecutor{}
	sampler := newTestSampler(executor)
	require.NoError(t, sampler.SetRestrictionLevel(-1))
	assert.Equal(t, []string{"sudo sysctl -w kernel.perf_event_paranoid=-1"}, executor.calls)

	err := sampler.SetRestrictionLevel(4)
	assert.ErrorIs(t, err, perf.ErrInvalidRestrictionLevel)
	assert.Len(t, executor.calls, 1)

	executor.stdout = "2\n"
	level, err := sampler.RestrictionLevel()
	require.NoError(t, err)
	assert.Equal(t, 2, level)
}
