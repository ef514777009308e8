package entity

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email is a normalized (trimmed, lower-case) e-mail address.
type Email struct {
	value string
}

func NewEmail(value string) (Email, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if !emailPattern.MatchString(v) {
		return Email{}, Errorf(CodeValidation, "entity.NewEmail", "invalid email address %q", value)
	}
	return Email{value: v}, nil
}

func (e Email) String() string { return e.value }
func (e Email) Equals(o Email) bool { return e.value == o.value }
