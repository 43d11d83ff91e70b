/*
Package perf builds 'perf stat' event selectors and command lines and parses the text
'perf stat' writes to stderr back into counter values.
*/
package perf

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"strings"

	"perfsample/internal/encode"
	"perfsample/internal/util"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	ErrDuplicateEventCode = errors.New("duplicate event code")
	ErrNegativeInstance   = errors.New("negative unit instance index")
)

// EventSpec is one requested event: a hex event code, a binary unit mask, and an
// optional human readable name.
type EventSpec struct {
	Code string
	Mask string
	Name string
}

// NamedMask is one entry of an ordered name -> mask mapping where all masks share a
// single base event code.
type NamedMask struct {
	Name string
	Mask string
}

// String returns the spec as "code:mask", the form used on the command line.
func (s EventSpec) String() string {
	return s.Code + ":" + s.Mask
}

// ParseEventSpec parses "code:mask", e.g., "0xb3:00001000".
func ParseEventSpec(s string) (EventSpec, error) {
	code, mask, found := strings.Cut(s, ":")
	if !found || code == "" || mask == "" {
		return EventSpec{}, fmt.Errorf("event %q is not of the form <code>:<binary mask>", s)
	}
	return EventSpec{Code: code, Mask: mask}, nil
}

// ParseNamedMask parses "name=mask", e.g., "local=00000001".
func ParseNamedMask(s string) (NamedMask, error) {
	name, mask, found := strings.Cut(s, "=")
	if !found || name == "" || mask == "" {
		return NamedMask{}, fmt.Errorf("mask %q is not of the form <name>=<binary mask>", s)
	}
	return NamedMask{Name: name, Mask: mask}, nil
}

// UnitEventSelector formats the selector for one event on one unit instance, e.g.,
// "uncore_cha_3/event=0xb3,umask=0x8/".
func UnitEventSelector(unitKind string, instance int, code string, maskHex string) (string, error) {
	if instance < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegativeInstance, instance)
	}
	return fmt.Sprintf("%s_%d/event=%s,umask=%s/", unitKind, instance, code, maskHex), nil
}

// AllInstanceSelectors returns one selector per unit instance, in ascending instance order.
func AllInstanceSelectors(unitKind string, instanceCount int, code string, maskHex string) ([]string, error) {
	selectors := make([]string, 0, max(instanceCount, 0))
	for instance := range instanceCount {
		selector, err := UnitEventSelector(unitKind, instance, code, maskHex)
		if err != nil {
			return nil, err
		}
		selectors = append(selectors, selector)
	}
	return selectors, nil
}

// DataFabricSelector formats an AMD data fabric selector. The data fabric PMU is not
// split into numbered instances so these go through the core event path.
func DataFabricSelector(code string, maskHex string) string {
	return fmt.Sprintf("amd_df/event=%s,umask=%s/", code, maskHex)
}

// DisambiguateEventCodes gives the i-th requested event i extra zeros after the "0x"
// prefix of its code. Events sharing one base code thereby stay textually distinct in
// perf's output while counting the same hardware event. The padding depends only on the
// position in requested, so callers control it through ordering.
func DisambiguateEventCodes(requested []EventSpec) ([]EventSpec, error) {
	seen := mapset.NewThreadUnsafeSet[string]()
	padded := make([]EventSpec, 0, len(requested))
	for i, spec := range requested {
		code, err := encode.PadEventCode(spec.Code, i)
		if err != nil {
			return nil, err
		}
		if !seen.Add(code) {
			return nil, fmt.Errorf("%w: %s collides after padding", ErrDuplicateEventCode, code)
		}
		padded = append(padded, EventSpec{Code: code, Mask: spec.Mask, Name: spec.Name})
	}
	return padded, nil
}

// NamedMaskSpecs expands masks sharing one base code into event specs with
// disambiguated codes, named after their masks, in the order given.
func NamedMaskSpecs(code string, masks []NamedMask) ([]EventSpec, error) {
	names := mapset.NewThreadUnsafeSet[string]()
	specs := make([]EventSpec, 0, len(masks))
	for _, m := range masks {
		if !names.Add(m.Name) {
			return nil, fmt.Errorf("mask name %q is used more than once", m.Name)
		}
		specs = append(specs, EventSpec{Code: code, Mask: m.Mask, Name: m.Name})
	}
	return DisambiguateEventCodes(specs)
}

// validateEventCode requires the 0x-prefixed hex form perf accepts in selectors.
func validateEventCode(code string) error {
	if !util.IsPrefixedHex(code) {
		return fmt.Errorf("%w: %q is not a 0x prefixed hex value", encode.ErrInvalidEventCode, code)
	}
	return nil
}
