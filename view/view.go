// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package view implements the configuration layer that rewrites an
// instrument's default aggregation, attribute keys, or name before
// its first measurement is recorded. A View is an ordered list of
// Clauses; the first Clause matching an instrument wins.
package view

import (
	"fmt"
	"regexp"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/errs"
)

const (
	unsetInstrumentKind = aggregation.InstrumentKind(-1)
	unsetNumberKind     = -1
)

// InstrumentDescriptor is the identity a Clause matches against:
// what the instrument's creator declared, before any view is applied.
type InstrumentDescriptor struct {
	Name        string
	Description string
	Unit        string
	Kind        aggregation.InstrumentKind
	NumberKind  int8 // mirrors number.Kind without importing it, kept decoupled from the numeric package
}

// Clause is one rewrite rule. Clauses are built with ClauseOptions and
// are immutable once constructed.
type Clause struct {
	instrumentName       string
	instrumentNameRegexp *regexp.Regexp
	instrumentKind       aggregation.InstrumentKind
	numberKind           int8

	name             string
	description      string
	keys             []attribute.Key
	keysSet          bool
	aggregationKind  aggregation.Kind
	boundaries       []float64
	recordMinMax     bool
	hasRecordMinMax  bool
}

type ClauseOption func(*Clause)

func NewClause(opts ...ClauseOption) Clause {
	c := Clause{instrumentKind: unsetInstrumentKind, numberKind: unsetNumberKind}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func MatchInstrumentName(name string) ClauseOption {
	return func(c *Clause) { c.instrumentName = name }
}

func MatchInstrumentNameRegexp(re *regexp.Regexp) ClauseOption {
	return func(c *Clause) { c.instrumentNameRegexp = re }
}

func MatchInstrumentKind(k aggregation.InstrumentKind) ClauseOption {
	return func(c *Clause) { c.instrumentKind = k }
}

// WithKeys overwrites the set of attribute keys retained by the
// aggregation; nil (the default) keeps all keys, an empty non-nil
// slice drops every key down to a single bucket.
func WithKeys(keys []attribute.Key) ClauseOption {
	return func(c *Clause) { c.keys = keys; c.keysSet = keys != nil }
}

func WithName(name string) ClauseOption {
	return func(c *Clause) { c.name = name }
}

func WithDescription(desc string) ClauseOption {
	return func(c *Clause) { c.description = desc }
}

func WithAggregation(kind aggregation.Kind) ClauseOption {
	return func(c *Clause) { c.aggregationKind = kind }
}

func WithExplicitBoundaries(boundaries []float64) ClauseOption {
	return func(c *Clause) { c.boundaries = boundaries }
}

func WithRecordMinMax(v bool) ClauseOption {
	return func(c *Clause) { c.recordMinMax = v; c.hasRecordMinMax = true }
}

func (c *Clause) IsSingleInstrument() bool { return c.instrumentName != "" }
func (c *Clause) HasName() bool            { return c.name != "" }

func stringMismatch(test, value string) bool {
	return test != "" && test != value
}

func (c *Clause) Matches(desc InstrumentDescriptor) bool {
	if stringMismatch(c.instrumentName, desc.Name) {
		return false
	}
	if c.instrumentNameRegexp != nil && !c.instrumentNameRegexp.MatchString(desc.Name) {
		return false
	}
	if c.instrumentKind != unsetInstrumentKind && c.instrumentKind != desc.Kind {
		return false
	}
	if c.numberKind != unsetNumberKind && c.numberKind != desc.NumberKind {
		return false
	}
	return true
}

// Config is the rewritten view an InstrumentStream builds from the
// original descriptor plus whichever Clause matched it (or the
// defaults, if none did).
type Config struct {
	Name            string
	Description     string
	Unit            string
	Keys            []attribute.Key
	KeysSet         bool
	AggregationKind aggregation.Kind
	Boundaries      []float64
	RecordMinMax    bool
}

func (c *Clause) resolve(desc InstrumentDescriptor, defaultAgg aggregation.Kind) Config {
	cfg := Config{
		Name:            desc.Name,
		Description:     desc.Description,
		Unit:            desc.Unit,
		AggregationKind: defaultAgg,
		RecordMinMax:    true,
	}
	if c == nil {
		return cfg
	}
	if c.HasName() {
		cfg.Name = c.name
	}
	if c.description != "" {
		cfg.Description = c.description
	}
	if c.keysSet {
		cfg.Keys = c.keys
		cfg.KeysSet = true
	}
	if c.aggregationKind != aggregation.UndefinedKind {
		cfg.AggregationKind = c.aggregationKind
	}
	if c.boundaries != nil {
		cfg.Boundaries = c.boundaries
	}
	if c.hasRecordMinMax {
		cfg.RecordMinMax = c.recordMinMax
	}
	return cfg
}

// Views is an ordered collection of Clauses plus the duplicate-name
// conflicts discovered as instruments were registered against them.
type Views struct {
	clauses []Clause
	seen    map[string]InstrumentDescriptor
}

func New(clauses ...Clause) *Views {
	return &Views{clauses: clauses, seen: make(map[string]InstrumentDescriptor)}
}

// Resolve finds the first matching Clause for desc (or none) and
// returns the Config an InstrumentStream should be built from, plus a
// non-nil error if the resolved name collides with a different
// instrument identity already registered under it. The error is
// non-fatal: the caller logs it and continues with the computed
// Config, same as the instrument still gets created, per §7's closed
// error taxonomy.
func (v *Views) Resolve(desc InstrumentDescriptor, defaultAgg aggregation.Kind) (Config, error) {
	var matched *Clause
	for i := range v.clauses {
		if v.clauses[i].Matches(desc) {
			matched = &v.clauses[i]
			break
		}
	}
	cfg := matched.resolve(desc, defaultAgg)

	if prior, ok := v.seen[cfg.Name]; ok && !sameIdentity(prior, desc) {
		return cfg, &errs.DuplicateInstrument{
			Name: cfg.Name,
			Details: fmt.Sprintf("conflicts with previously registered instrument kind %v vs %v",
				prior.Kind, desc.Kind),
		}
	}
	v.seen[cfg.Name] = desc
	return cfg, nil
}

func sameIdentity(a, b InstrumentDescriptor) bool {
	return a.Kind == b.Kind && a.NumberKind == b.NumberKind
}
