package utils

import (
	"github.com/pkg/errors"
)

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}

// NewUnsupportedModelError is used when a configuration names a model that is not registered.
func NewUnsupportedModelError(kind, model string) error {
	return errors.Errorf("unsupported %s model %q", kind, model)
}
