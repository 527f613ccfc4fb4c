// Package validation adapts a validator instance to echo's Validator
// interface. The same instance is shared with the controllers so
// binder-level and handler-level checks run one rule set.
package validation

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

func New(v *validator.Validate) *Validator {
	return &Validator{v: v}
}

func (v *Validator) Validate(i interface{}) error {
	return v.v.Struct(i)
}
