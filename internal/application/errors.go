package application

import "errors"

var (
	// ErrUnitNotFound is returned when the requested unit does not exist.
	ErrUnitNotFound = errors.New("application: unit not found")
	// ErrRangeConflict is returned when a reservation loses the range to an
	// existing block.
	ErrRangeConflict = errors.New("application: range conflict")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
