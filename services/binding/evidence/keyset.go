// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import (
	"sort"
	"strings"
)

// KeySet is a set of normalized identifier keys.
type KeySet map[string]struct{}

// Add inserts a key after normalization.
func (s KeySet) Add(key string) {
	s[NormalizeKey(key)] = struct{}{}
}

// Has reports whether the normalized form of key is in the set.
func (s KeySet) Has(key string) bool {
	_, ok := s[NormalizeKey(key)]
	return ok
}

// Names returns the normalized keys in the set, sorted for stable output.
func (s KeySet) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// KeySets holds the six identifier sets a helper call key is checked against.
//
// Description:
//
//	Built once per validation cycle from Evidence. Each helper kind in a
//	binding's props block resolves its key against exactly one of these sets
//	(nestedProps resolves against the instance-swap and string sets).
type KeySets struct {
	String   KeySet
	Boolean  KeySet
	Enum     KeySet
	Instance KeySet
	Text     KeySet
	Slot     KeySet
}

// booleanAxisValuePairs are the two-valued variant axes that are legally
// readable through the boolean helper, matched case-insensitively.
var booleanAxisValuePairs = [][2]string{
	{"false", "true"},
	{"no", "yes"},
	{"off", "on"},
}

// BuildKeySets derives the six normalized key sets from evidence.
//
// Description:
//
//	Every variant axis populates both the enum set and the string set (an
//	axis is legally readable either way). A two-valued axis whose values
//	case-insensitively match false/true, no/yes or off/on additionally
//	populates the boolean set. Typed component properties populate the set
//	matching their declared kind; an unrecognized kind falls back into the
//	string set rather than being silently dropped.
//
// Thread Safety: The returned KeySets is read-only by convention and safe
// to share across goroutines.
func BuildKeySets(ev *Evidence) *KeySets {
	sets := &KeySets{
		String:   KeySet{},
		Boolean:  KeySet{},
		Enum:     KeySet{},
		Instance: KeySet{},
		Text:     KeySet{},
		Slot:     KeySet{},
	}

	for axis, raw := range ev.VariantProperties {
		sets.Enum.Add(axis)
		sets.String.Add(axis)
		if isBooleanAxis(raw) {
			sets.Boolean.Add(axis)
		}
	}

	for _, prop := range ev.ComponentProperties {
		switch prop.Kind {
		case KindString:
			sets.String.Add(prop.Name)
		case KindBoolean:
			sets.Boolean.Add(prop.Name)
		case KindInstanceSwap:
			sets.Instance.Add(prop.Name)
		default:
			// Conservative fallback for kinds this build predates.
			sets.String.Add(prop.Name)
		}
	}

	for _, layer := range ev.TextLayers {
		sets.Text.Add(layer.Name)
	}
	for _, layer := range ev.SlotLayers {
		sets.Slot.Add(layer.Name)
	}

	return sets
}

// isBooleanAxis reports whether a variant axis has exactly two values that
// case-insensitively form one of the recognized boolean-ish pairs.
func isBooleanAxis(values []any) bool {
	if len(values) != 2 {
		return false
	}
	a := strings.ToLower(stringifyValue(values[0]))
	b := strings.ToLower(stringifyValue(values[1]))
	for _, pair := range booleanAxisValuePairs {
		if (a == pair[0] && b == pair[1]) || (a == pair[1] && b == pair[0]) {
			return true
		}
	}
	return false
}
