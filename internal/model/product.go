package model

import (
	"time"
)

// Product is a catalog entry for a single product's packaging record.
// Confidence is derived; only the trust service writes it.
type Product struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Category       string     `json:"category,omitempty"`
	Description    string     `json:"description,omitempty"`
	Dimensions     Dimensions `json:"dimensions"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	LastModified   time.Time  `json:"last_modified"`
	LastModifiedBy string     `json:"last_modified_by"`
	Likes          int        `json:"likes"`
	Views          int        `json:"views"`
	Confidence     int        `json:"confidence"`
}

// Dimensions holds measured packaging dimensions in millimeters and grams.
type Dimensions struct {
	LengthMM float64 `json:"length_mm"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
	WeightG  float64 `json:"weight_g"`
}

// editableFields lists the product fields a provisional editor may change.
var editableFields = map[string]bool{
	"name":        true,
	"category":    true,
	"description": true,
	"length_mm":   true,
	"width_mm":    true,
	"height_mm":   true,
	"weight_g":    true,
}

// EditableField reports whether the given field key may be changed
// through a provisional edit.
func EditableField(key string) bool {
	return editableFields[key]
}

// ApplyFieldChanges applies the given field changes to the product.
// Unknown field keys are rejected; numeric dimension fields accept
// float64 (the JSON decoding of numbers).
func (p *Product) ApplyFieldChanges(changes map[string]any) error {
	for key, val := range changes {
		if !EditableField(key) {
			return &FieldError{Field: key, Reason: "not editable"}
		}
		switch key {
		case "name", "category", "description":
			s, ok := val.(string)
			if !ok {
				return &FieldError{Field: key, Reason: "expected string"}
			}
			switch key {
			case "name":
				p.Name = s
			case "category":
				p.Category = s
			case "description":
				p.Description = s
			}
		default:
			f, ok := toFloat(val)
			if !ok || f < 0 {
				return &FieldError{Field: key, Reason: "expected non-negative number"}
			}
			switch key {
			case "length_mm":
				p.Dimensions.LengthMM = f
			case "width_mm":
				p.Dimensions.WidthMM = f
			case "height_mm":
				p.Dimensions.HeightMM = f
			case "weight_g":
				p.Dimensions.WeightG = f
			}
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// FieldError reports an invalid field change.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return "field " + e.Field + ": " + e.Reason
}
