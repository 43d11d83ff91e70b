/*
Package profile loads sampling profiles: YAML files that name the uncore, core, per core,
and data fabric events to sample around a workload, plus metrics derived from them.

Example:

	name: llc
	uncore:
	  - name: llc lookups
	    unit: uncore_cha
	    code: "0x34"
	    masks:
	      hit: "00000001"
	      miss: "00000010"
	core:
	  events: [cycles, instructions]
	  metrics:
	    - name: ipc
	      expression: instructions / cycles
	percore:
	  events: [LLC-load-misses]
	  socket: 0
	  normalize: true
	df:
	  events: ["0x1f:00000001"]

Masks are kept in file order because the padding applied to their shared event code
depends on it. Quote masks, unquoted digits are read as numbers.
*/
package profile

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"

	"perfsample/internal/perf"
	"perfsample/internal/sample"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Profile struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Uncore      []UncoreGroup `yaml:"uncore"`
	Core        *CoreGroup    `yaml:"core"`
	PerCore     *PerCoreGroup `yaml:"percore"`
	DataFabric  *CoreGroup    `yaml:"df"`
}

// UncoreGroup is one perf invocation on an uncore unit. It either lists event specs
// ("code:mask") or names masks that share Code.
type UncoreGroup struct {
	Name   string        `yaml:"name"`
	Unit   string        `yaml:"unit"` // empty selects the host's default unit
	Code   string        `yaml:"code"`
	Masks  yaml.MapSlice `yaml:"masks"`
	Events []string      `yaml:"events"`
}

// CoreGroup lists events passed to perf as they are and metrics derived from their counts.
type CoreGroup struct {
	Events  []string                  `yaml:"events"`
	Metrics []sample.MetricDefinition `yaml:"metrics"`
}

type PerCoreGroup struct {
	Events    []string `yaml:"events"`
	Socket    int      `yaml:"socket"`
	Normalize bool     `yaml:"normalize"`
}

// Load reads and validates a profile.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read profile")
	}
	profile, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid profile %s", path)
	}
	return profile, nil
}

// Parse decodes and validates a profile.
func Parse(data []byte) (*Profile, error) {
	var profile Profile
	if err := yaml.UnmarshalStrict(data, &profile); err != nil {
		return nil, errors.Wrap(err, "failed to parse profile")
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Validate checks every group the way the sampler would, so that a bad profile fails
// before any workload runs.
func (p *Profile) Validate() error {
	if len(p.Uncore) == 0 && p.Core == nil && p.PerCore == nil && p.DataFabric == nil {
		return errors.New("profile does not define any events")
	}
	for i, group := range p.Uncore {
		specs, err := group.EventSpecs()
		if err != nil {
			return errors.Wrapf(err, "uncore group %d (%s)", i, group.Name)
		}
		if err := perf.ValidateEventSpecs(specs); err != nil {
			return errors.Wrapf(err, "uncore group %d (%s)", i, group.Name)
		}
	}
	if p.Core != nil && len(p.Core.Events) == 0 {
		return errors.Wrap(perf.ErrNoEvents, "core group")
	}
	if p.PerCore != nil {
		if len(p.PerCore.Events) == 0 {
			return errors.Wrap(perf.ErrNoEvents, "percore group")
		}
		if p.PerCore.Socket < 0 {
			return errors.Wrapf(sample.ErrInvalidSocket, "percore group: %d", p.PerCore.Socket)
		}
	}
	if p.DataFabric != nil {
		specs, err := ParseEventSpecs(p.DataFabric.Events)
		if err != nil {
			return errors.Wrap(err, "df group")
		}
		if err := perf.ValidateEventSpecs(specs); err != nil {
			return errors.Wrap(err, "df group")
		}
	}
	return nil
}

// IsNamed reports whether the group samples named masks of a single code.
func (g UncoreGroup) IsNamed() bool {
	return len(g.Masks) > 0
}

// NamedMasks returns the group's masks in file order.
func (g UncoreGroup) NamedMasks() ([]perf.NamedMask, error) {
	masks := make([]perf.NamedMask, 0, len(g.Masks))
	for _, item := range g.Masks {
		name := fmt.Sprint(item.Key)
		mask, ok := item.Value.(string)
		if !ok {
			return nil, fmt.Errorf("mask %s must be a quoted string, got %v", name, item.Value)
		}
		masks = append(masks, perf.NamedMask{Name: name, Mask: mask})
	}
	return masks, nil
}

// EventSpecs returns the specs the group samples. Named mask groups get disambiguated codes.
func (g UncoreGroup) EventSpecs() ([]perf.EventSpec, error) {
	switch {
	case g.IsNamed() && len(g.Events) > 0:
		return nil, errors.New("masks and events are mutually exclusive")
	case g.IsNamed():
		if g.Code == "" {
			return nil, errors.New("masks require a code")
		}
		masks, err := g.NamedMasks()
		if err != nil {
			return nil, err
		}
		return perf.NamedMaskSpecs(g.Code, masks)
	default:
		return ParseEventSpecs(g.Events)
	}
}

// ParseEventSpecs parses "code:mask" strings.
func ParseEventSpecs(events []string) ([]perf.EventSpec, error) {
	specs := make([]perf.EventSpec, 0, len(events))
	for _, event := range events {
		spec, err := perf.ParseEventSpec(event)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
