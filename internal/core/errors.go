package core

import (
	"errors"
	"strings"
)

// Issue types reported in FieldIssue.Type.
const (
	IssueMissing       = "value_error.missing"
	IssueInvalidString = "type_error.str"
	IssueInvalidDate   = "value_error.date"
	IssueInvalidAmount = "type_error.decimal"
	IssueAmountRange   = "value_error"
)

// FieldIssue is one field-level validation failure.
type FieldIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError collects every field issue found in one input.
type ValidationError struct {
	Details []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, strings.Join(d.Loc, ".")+": "+d.Msg)
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg, typ string) {
	e.Details = append(e.Details, FieldIssue{Loc: []string{field}, Msg: msg, Type: typ})
}

func (e *ValidationError) empty() bool {
	return len(e.Details) == 0
}

// GuardError aborts a write that reached the repository with an amount
// outside the allowed range.
type GuardError struct {
	Err error
}

func (e *GuardError) Error() string {
	return "expense write aborted: " + e.Err.Error()
}

func (e *GuardError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries field-level issues.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
