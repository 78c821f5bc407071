// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package params

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// Snapshot renders the effective value of every schema field as a
// flat key→value JSON document. The document round-trips through
// Load + Overrides.Replace: loading it back reproduces the same
// effective values.
func Snapshot(s *Set) ([]byte, error) {
	doc := make(map[string]any, len(Schema))
	for _, field := range Schema {
		v := s.Resolve(field.Name)
		switch v.Kind {
		case KindBool:
			doc[field.Name] = v.Bool
		case KindNumber:
			doc[field.Name] = v.Number
		case KindText:
			doc[field.Name] = v.Text
		}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("params: encoding snapshot: %w", err)
	}
	return append(out, '\n'), nil
}

// Load parses a flat key→value snapshot document. Comments and
// trailing commas are tolerated (hand-edited files are common).
// JSON booleans, numbers, and strings map onto the three value kinds;
// any other value type fails with the offending key named. Keys
// outside the schema are kept — merge rules drop them at emission.
func Load(data []byte) (map[string]Value, error) {
	var doc map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("params: parsing snapshot (%d bytes): %w", len(data), err)
	}
	values := make(map[string]Value, len(doc))
	for key, raw := range doc {
		switch v := raw.(type) {
		case bool:
			values[key] = BoolValue(v)
		case float64:
			values[key] = NumberValue(v)
		case string:
			values[key] = TextValue(v)
		default:
			return nil, fmt.Errorf("params: snapshot key %q has unsupported value type %T", key, raw)
		}
	}
	return values, nil
}
