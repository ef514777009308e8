package entity

import (
	"strings"
	"unicode"
)

// Address is a postal address. Country is an ISO 3166 alpha-2 code.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func NewAddress(street, city, postalCode, country string) (Address, error) {
	a := Address{
		Street:     strings.TrimSpace(street),
		City:       strings.TrimSpace(city),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    strings.ToUpper(strings.TrimSpace(country)),
	}
	switch {
	case a.Street == "":
		return Address{}, NewError(CodeValidation, "entity.NewAddress", "street is required", nil)
	case a.City == "":
		return Address{}, NewError(CodeValidation, "entity.NewAddress", "city is required", nil)
	case a.PostalCode == "":
		return Address{}, NewError(CodeValidation, "entity.NewAddress", "postal code is required", nil)
	case !isAlpha2(a.Country):
		return Address{}, Errorf(CodeValidation, "entity.NewAddress", "country must be an ISO alpha-2 code, got %q", country)
	}
	return a, nil
}

func (a Address) Equals(o Address) bool { return a == o }

func isAlpha2(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
