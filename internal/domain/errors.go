package domain

import "fmt"

// ParseError reports a malformed station or observation line.
type ParseError struct {
	Kind  string // "station" or "observation"
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("parse %s: field %s %q: %v", e.Kind, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
