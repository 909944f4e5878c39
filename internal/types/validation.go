package types

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord is returned when a record is missing required fields.
var ErrInvalidRecord = errors.New("invalid loved one")

// ValidateLovedOne checks the required fields of a normalized record.
func ValidateLovedOne(l LovedOne) error {
	if l.FullName == "" {
		return fmt.Errorf("%w: fullName is required", ErrInvalidRecord)
	}
	if len(l.FullName) > 256 {
		return fmt.Errorf("%w: fullName exceeds 256 characters", ErrInvalidRecord)
	}
	if l.Relationship == "" {
		return fmt.Errorf("%w: relationship is required", ErrInvalidRecord)
	}
	return nil
}
