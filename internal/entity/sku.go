package entity

import (
	"regexp"
	"strings"
)

var skuPattern = regexp.MustCompile(`^[A-Z0-9-]+$`)

// SKU is a stock keeping unit: upper-case letters, digits and hyphens.
type SKU struct {
	value string
}

func NewSKU(value string) (SKU, error) {
	v := strings.TrimSpace(value)
	switch {
	case v == "":
		return SKU{}, NewError(CodeValidation, "entity.NewSKU", "SKU cannot be empty", nil)
	case len(v) > 50:
		return SKU{}, NewError(CodeValidation, "entity.NewSKU", "SKU cannot exceed 50 characters", nil)
	case !skuPattern.MatchString(v):
		return SKU{}, NewError(CodeValidation, "entity.NewSKU", "SKU must contain only uppercase letters, numbers, and hyphens", nil)
	}
	return SKU{value: v}, nil
}

func (s SKU) String() string { return s.value }
func (s SKU) Equals(o SKU) bool { return s.value == o.value }
func (s SKU) IsZero() bool { return s.value == "" }
