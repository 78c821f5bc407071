// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package params models the tunable shape parameters of a prosthetic
// device build: a fixed schema of named, typed, defaulted fields, a
// per-build parameter set, and a sticky override layer that remembers
// the most recent adjustment to each field across builds.
package params

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Kind is the type of a parameter value. Exactly three kinds exist:
// booleans, numbers, and short text strings.
type Kind int

const (
	// KindBool is a true/false toggle.
	KindBool Kind = iota
	// KindNumber is a float64 dimension or factor.
	KindNumber
	// KindText is a short string, truncated to MaxTextLen on emission.
	KindText
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MaxTextLen is the longest text value the solid-modeling source can
// carry; longer values are truncated, never rejected.
const MaxTextLen = 15

// Value is a tagged union holding one parameter value. The zero Value
// is a false boolean.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Text   string
}

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NumberValue wraps a number.
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// Field declares one schema entry: a parameter name, its kind, and its
// default value.
type Field struct {
	Name    string
	Kind    Kind
	Default Value
	// Doc is the one-line description shown in the CLI and tuner.
	Doc string
}

// Schema is the full field roster. Order here is declaration order,
// not emission order — the assembler's canonical schedules own that.
var Schema = []Field{
	{Name: "scale", Kind: KindNumber, Default: NumberValue(1.0), Doc: "overall scale factor applied by the compiler"},
	{Name: "left_hand", Kind: KindBool, Default: BoolValue(false), Doc: "mirror the build for a left hand"},
	{Name: "palm_width", Kind: KindNumber, Default: NumberValue(65), Doc: "palm width across the knuckles, mm"},
	{Name: "palm_length", Kind: KindNumber, Default: NumberValue(95), Doc: "wrist crease to knuckle line, mm"},
	{Name: "wrist_width", Kind: KindNumber, Default: NumberValue(50), Doc: "wrist width at the crease, mm"},
	{Name: "knuckle_height", Kind: KindNumber, Default: NumberValue(14), Doc: "knuckle block height, mm"},
	{Name: "gauntlet_length", Kind: KindNumber, Default: NumberValue(90), Doc: "forearm gauntlet length, mm"},
	{Name: "padding_thickness", Kind: KindNumber, Default: NumberValue(3), Doc: "foam padding allowance, mm"},
	{Name: "thumb", Kind: KindBool, Default: BoolValue(true), Doc: "include the thumb assembly"},
	{Name: "tensioner_pins", Kind: KindNumber, Default: NumberValue(3), Doc: "number of tensioner pins"},
	{Name: "label", Kind: KindText, Default: TextValue(""), Doc: "engraved wearer label"},
	{Name: "serial", Kind: KindText, Default: TextValue(""), Doc: "engraved serial; today's date when empty"},
}

// FieldByName returns the schema field with the given name.
func FieldByName(name string) (Field, bool) {
	for _, f := range Schema {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Set is one build's parameter mapping. Absent names mean "use the
// default". A Set is created fresh per build; persistence across
// builds lives in Overrides.
type Set struct {
	values map[string]Value
}

// NewSet returns an empty parameter set (all defaults).
func NewSet() *Set {
	return &Set{values: make(map[string]Value)}
}

// Put stores a value under name. Names outside the schema are kept —
// the assembler's canonical schedules simply never emit them.
func (s *Set) Put(name string, v Value) {
	s.values[name] = v
}

// Get returns the stored value for name and whether one is present.
func (s *Set) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Resolve returns the effective value for a schema field: the stored
// value if present and of the declared kind, otherwise the default.
// A stored value of the wrong kind counts as absent.
func (s *Set) Resolve(name string) Value {
	field, ok := FieldByName(name)
	if !ok {
		return Value{}
	}
	v, present := s.values[name]
	if !present || v.Kind != field.Kind {
		return field.Default
	}
	if field.Kind == KindNumber && (math.IsNaN(v.Number) || math.IsInf(v.Number, 0)) {
		return field.Default
	}
	return v
}

// Names returns the stored names in sorted order, for diagnostics.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	out := NewSet()
	for name, v := range s.values {
		out.values[name] = v
	}
	return out
}

// Overrides is the sticky, process-wide override layer: the most
// recently applied value for each parameter, surviving across builds
// until explicitly replaced by a loaded snapshot. It is an explicitly
// owned resource — construct one and pass it to everything that reads
// parameters, rather than reaching for a global.
//
// Overrides is safe for concurrent use.
type Overrides struct {
	mu     sync.Mutex
	values map[string]Value
}

// NewOverrides returns an empty override store.
func NewOverrides() *Overrides {
	return &Overrides{values: make(map[string]Value)}
}

// Apply records an override for name. The most recent application
// wins, regardless of which surface it came from.
func (o *Overrides) Apply(name string, v Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values[name] = v
}

// Replace discards all overrides and installs the given set, as when a
// saved configuration is loaded.
func (o *Overrides) Replace(values map[string]Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values = make(map[string]Value, len(values))
	for name, v := range values {
		o.values[name] = v
	}
}

// Merge returns a fresh Set: the base set's values with every recorded
// override layered on top. The base is not modified.
func (o *Overrides) Merge(base *Set) *Set {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := base.Clone()
	for name, v := range o.values {
		out.values[name] = v
	}
	return out
}
