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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvidence() *Evidence {
	return &Evidence{
		ComponentName: "Button",
		VariantProperties: map[string][]any{
			"Size":     {"Small", "Medium", "Large"},
			"Disabled": {false, true},
			"State":    {"Off", "On"},
		},
		ComponentProperties: []ComponentProperty{
			{Name: "Label", Kind: KindString},
			{Name: "Has Icon", Kind: KindBoolean},
			{Name: "Icon", Kind: KindInstanceSwap},
			{Name: "Future", Kind: PropertyKind("SOMETHING_NEW")},
		},
		TextLayers: []Layer{{Name: "Caption Text"}},
		SlotLayers: []Layer{{Name: "Slot"}},
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"Label":      "label",
		".label":     "label",
		"Size?":      "size",
		" .Size? ":   "size",
		"Has Icon":   "has icon",
		"":           "",
		"?":          "",
		"CamelCase?": "camelcase",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeKey(in), "input %q", in)
	}
}

func TestBuildKeySets_VariantAxes(t *testing.T) {
	sets := BuildKeySets(testEvidence())

	// Every axis is readable through both the enum and string helpers.
	assert.True(t, sets.Enum.Has("Size"))
	assert.True(t, sets.String.Has("Size"))
	assert.True(t, sets.Enum.Has("size"))

	// The optional-marker spelling resolves to the same entry.
	assert.True(t, sets.Enum.Has("Size?"))
	assert.True(t, sets.Enum.Has(".size"))

	assert.False(t, sets.Enum.Has("Color"))
}

func TestBuildKeySets_BooleanishAxes(t *testing.T) {
	sets := BuildKeySets(testEvidence())

	// A two-valued false/true axis also lands in the boolean set.
	assert.True(t, sets.Boolean.Has("Disabled"))
	// So does an off/on axis, case-insensitively.
	assert.True(t, sets.Boolean.Has("State"))
	// A three-valued axis does not.
	assert.False(t, sets.Boolean.Has("Size"))
}

func TestBuildKeySets_ComponentProperties(t *testing.T) {
	sets := BuildKeySets(testEvidence())

	assert.True(t, sets.String.Has("Label"))
	assert.True(t, sets.Boolean.Has("Has Icon"))
	assert.True(t, sets.Instance.Has("Icon"))

	// Kinds this build does not recognize fall back to the string set.
	assert.True(t, sets.String.Has("Future"))
	assert.False(t, sets.Boolean.Has("Future"))
}

func TestBuildKeySets_Layers(t *testing.T) {
	sets := BuildKeySets(testEvidence())

	assert.True(t, sets.Text.Has("Caption Text"))
	assert.True(t, sets.Text.Has("caption text"))
	assert.True(t, sets.Slot.Has("Slot"))
	assert.False(t, sets.Slot.Has("Caption Text"))
}

func TestBuildKeySets_EmptyEvidence(t *testing.T) {
	sets := BuildKeySets(&Evidence{ComponentName: "Empty"})

	assert.Empty(t, sets.String.Names())
	assert.Empty(t, sets.Enum.Names())
	assert.False(t, sets.String.Has("anything"))
}

func TestKeySet_Names_Sorted(t *testing.T) {
	s := KeySet{}
	s.Add("Zeta")
	s.Add("Alpha")
	s.Add("mid")

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.Names())
}

func TestAxisValues(t *testing.T) {
	ev := testEvidence()

	values, name := ev.AxisValues("size")
	require.Equal(t, "Size", name)
	assert.Equal(t, []string{"Small", "Medium", "Large"}, values)

	// Optional-marker spelling resolves too.
	values, name = ev.AxisValues("Size?")
	assert.Equal(t, "Size", name)
	assert.Len(t, values, 3)

	// Boolean values render as "true"/"false".
	values, name = ev.AxisValues("Disabled")
	require.Equal(t, "Disabled", name)
	assert.Equal(t, []string{"false", "true"}, values)

	values, name = ev.AxisValues("Nope")
	assert.Nil(t, values)
	assert.Empty(t, name)
}

func TestAxisValues_NumericValues(t *testing.T) {
	ev := &Evidence{
		ComponentName: "Grid",
		VariantProperties: map[string][]any{
			// JSON numbers decode as float64.
			"Columns": {float64(2), float64(4)},
		},
	}

	values, name := ev.AxisValues("Columns")
	require.Equal(t, "Columns", name)
	assert.Equal(t, []string{"2", "4"}, values)
}

func TestParse(t *testing.T) {
	data := []byte(`{
		"componentName": "Button",
		"variantProperties": {"Size": ["Small", "Large"], "Disabled": [false, true]},
		"componentProperties": [{"name": "Label", "kind": "STRING"}],
		"textLayers": [{"name": "Caption"}]
	}`)

	ev, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Button", ev.ComponentName)
	assert.Len(t, ev.VariantProperties, 2)
	require.Len(t, ev.ComponentProperties, 1)
	assert.Equal(t, KindString, ev.ComponentProperties[0].Kind)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"variantProperties": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "componentName")
}
