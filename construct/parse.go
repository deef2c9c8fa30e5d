// Package construct implements the construction engine (C5): parsing a
// model's configSets into a flat entry list per set, linearising that
// graph with Kahn's topological sort, and running the Carpenter execute
// phase over the result.
package construct

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type entryKind int

const (
	configEntry entryKind = iota
	setRefEntry
)

// entry is one element of a configSet's entry list: either a bare
// ConfigDefinition name or a reference to another configSet.
type entry struct {
	kind entryKind
	name string
}

// parseConfigSets returns every configSet's flattened entry list. If the
// model carries no explicit configSets key, an implicit
// default -> [config] set is synthesised (§4.5 Parse phase).
func parseConfigSets(m *model.Model) (map[string][]entry, error) {
	if !m.HasConfigSets() {
		if !m.IsConfigName(model.DefaultConfigName) {
			return nil, &errs.NoSuchConfigError{Name: model.DefaultConfigName}
		}
		return map[string][]entry{
			model.DefaultConfigSetName: {{kind: configEntry, name: model.DefaultConfigName}},
		}, nil
	}

	raw, _ := m.RawConfigSets()
	var top map[string]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("construct: parsing configSets: %w", err)
	}
	out := make(map[string][]entry, len(top))
	for name, v := range top {
		items, err := flattenEntries(v)
		if err != nil {
			return nil, fmt.Errorf("construct: configSet %q: %w", name, err)
		}
		out[name] = items
	}
	return out, nil
}

// flattenEntries recurses into nested arrays in place (§4.5: "a list
// recurses"), so the returned slice is always a flat sequence of config
// and configSet-reference entries, in declaration order.
func flattenEntries(raw jsoniter.RawMessage) ([]entry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var items []jsoniter.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		var out []entry
		for _, it := range items {
			sub, err := flattenEntries(it)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []entry{{kind: configEntry, name: s}}, nil
	case '{':
		var ref struct {
			ConfigSet string `json:"ConfigSet"`
		}
		if err := json.Unmarshal(raw, &ref); err != nil {
			return nil, err
		}
		if ref.ConfigSet == "" {
			return nil, fmt.Errorf("invalid configSet entry %s: missing ConfigSet key", string(raw))
		}
		return []entry{{kind: setRefEntry, name: ref.ConfigSet}}, nil
	default:
		return nil, fmt.Errorf("invalid configSet entry: %s", string(raw))
	}
}
