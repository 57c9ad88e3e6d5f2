package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFieldChanges(t *testing.T) {
	p := Product{Name: "Widget", Category: "tools"}

	err := p.ApplyFieldChanges(map[string]any{
		"name":      "Widget Pro",
		"length_mm": 120.5,
		"weight_g":  80, // ints are accepted too
	})
	require.NoError(t, err)

	assert.Equal(t, "Widget Pro", p.Name)
	assert.Equal(t, "tools", p.Category)
	assert.Equal(t, 120.5, p.Dimensions.LengthMM)
	assert.Equal(t, 80.0, p.Dimensions.WeightG)
}

func TestApplyFieldChangesRejectsUnknownField(t *testing.T) {
	p := Product{}
	err := p.ApplyFieldChanges(map[string]any{"confidence": 100})

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "confidence", fe.Field)
}

func TestApplyFieldChangesRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		changes map[string]any
	}{
		{"string for dimension", map[string]any{"width_mm": "wide"}},
		{"negative dimension", map[string]any{"height_mm": -5.0}},
		{"number for name", map[string]any{"name": 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{}
			err := p.ApplyFieldChanges(tt.changes)
			var fe *FieldError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestEditableField(t *testing.T) {
	assert.True(t, EditableField("name"))
	assert.True(t, EditableField("weight_g"))
	assert.False(t, EditableField("confidence"))
	assert.False(t, EditableField("created_by"))
}
