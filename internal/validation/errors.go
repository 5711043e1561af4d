package validation

import (
	"errors"
	"sort"
	"strings"
)

// ErrInvalid matches any Errors value under errors.Is.
var ErrInvalid = errors.New("invalid input")

// Errors maps a request field to its failed-rule messages.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

// Fields returns the failing field names in sorted order.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range e.Fields() {
		parts = append(parts, f+": "+strings.Join(e[f], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) Is(target error) bool {
	return target == ErrInvalid
}

// OrNil returns nil when no rule failed so callers can return it as error.
func (e Errors) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}
