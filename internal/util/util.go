/*
Package util includes small helpers shared by the sampling packages and the command line.
*/
package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ExpandUser expands '~' to user's home directory, if found, otherwise returns original path
func ExpandUser(path string) string {
	usr, err := user.Current()
	if err != nil {
		return path
	}
	if path == "~" {
		return usr.HomeDir
	} else if strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Join(usr.HomeDir, path[2:])
	}
	return path
}

// AbsPath returns absolute path after expanding '~' to user's home dir
func AbsPath(path string) (string, error) {
	return filepath.Abs(ExpandUser(path))
}

// DirectoryExists checks if the specified directory exists.
// It returns an error if the path refers to anything other than a directory.
func DirectoryExists(path string) (exists bool, err error) {
	var fileInfo fs.FileInfo
	fileInfo, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = nil
		}
		return
	}
	if !fileInfo.Mode().IsDir() {
		err = fmt.Errorf("%s not a directory", path)
		return
	}
	exists = true
	return
}

// SignalChildren sends a signal to all children of this process, e.g., the perf
// process and the workload it launched.
func SignalChildren(sig os.Signal) {
	cmd := exec.Command("pgrep", "-P", strconv.Itoa(os.Getpid()))
	out, err := cmd.Output()
	if err != nil {
		slog.Error("failed to get child processes", slog.String("error", err.Error()))
		return
	}
	for pid := range strings.SplitSeq(string(out), "\n") {
		if pid == "" {
			continue
		}
		pidInt, err := strconv.Atoi(pid)
		if err != nil {
			slog.Error("failed to convert pid to int", slog.String("pid", pid), slog.String("error", err.Error()))
			continue
		}
		proc, err := os.FindProcess(pidInt)
		if err != nil {
			slog.Error("failed to find process", slog.Int("pid", pidInt), slog.String("error", err.Error()))
			continue
		}
		slog.Info("sending signal to child process", slog.Int("pid", pidInt), slog.String("signal", sig.String()))
		if err = proc.Signal(sig); err != nil {
			slog.Error("failed to send signal to process", slog.Int("pid", pidInt), slog.String("error", err.Error()))
		}
	}
}

// IsValidHex checks if a string is a valid hex string
// Valid hex strings are non-empty, optionally prefixed with "0x" or "0X",
// and contain only valid hex characters (0-9, a-f, A-F).
func IsValidHex(hexStr string) bool {
	if strings.HasPrefix(hexStr, "0x") || strings.HasPrefix(hexStr, "0X") {
		hexStr = hexStr[2:]
	}
	if hexStr == "" {
		return false
	}
	for _, c := range hexStr {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// IsPrefixedHex is IsValidHex that also requires the "0x" or "0X" prefix, the only
// form perf accepts for event codes in a PMU selector.
func IsPrefixedHex(hexStr string) bool {
	return (strings.HasPrefix(hexStr, "0x") || strings.HasPrefix(hexStr, "0X")) && IsValidHex(hexStr)
}

var rxIntRange = regexp.MustCompile(`^(\d+)(?:-(\d+))?$`)

// IntRangeToIntList expands a string representing a range of integers into a slice of integers.
// For example, "1-3" will be expanded to [1, 2, 3]. And, "5" will be expanded to [5].
func IntRangeToIntList(input string) ([]int, error) {
	matches := rxIntRange.FindStringSubmatch(input)
	if len(matches) == 0 {
		return nil, fmt.Errorf("invalid input format: %s", input)
	}
	start, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid start value: %s", matches[1])
	}
	if matches[2] == "" {
		return []int{start}, nil
	}
	end, err := strconv.Atoi(matches[2])
	if err != nil {
		return nil, fmt.Errorf("invalid end value: %s", matches[2])
	}
	if start > end {
		return nil, fmt.Errorf("start value is greater than end value: %d > %d", start, end)
	}
	result := make([]int, end-start+1)
	for i := start; i <= end; i++ {
		result[i-start] = i
	}
	return result, nil
}

// SelectiveIntRangeToIntList expands a list of ranges, the format lscpu uses for NUMA
// node CPU lists. For example "0-3,7,9-10" will be expanded to [0, 1, 2, 3, 7, 9, 10].
func SelectiveIntRangeToIntList(input string) ([]int, error) {
	var result []int
	for r := range strings.SplitSeq(strings.TrimSpace(input), ",") {
		ints, err := IntRangeToIntList(strings.TrimSpace(r))
		if err != nil {
			return nil, err
		}
		result = append(result, ints...)
	}
	return result, nil
}

// IntSliceToStringSlice converts a slice of integers to a slice of strings.
func IntSliceToStringSlice(ints []int) []string {
	strs := make([]string, len(ints))
	for i, v := range ints {
		strs[i] = strconv.Itoa(v)
	}
	return strs
}
