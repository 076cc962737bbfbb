// Package validation gates persistence of content records on required-field and
// format rules. A Checker stops at the first violation so callers can report
// exactly one problem per save attempt.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// SelectionNone is the picker value meaning "nothing chosen yet".
const SelectionNone = "none"

// ErrInvalid is the sentinel wrapped by every *Error.
var ErrInvalid = errors.New("validation: invalid record")

// Rule names the check that rejected a field.
type Rule string

const (
	RuleRequired  Rule = "required"
	RuleURL       Rule = "url"
	RuleSelection Rule = "selection"
	RuleNonEmpty  Rule = "non_empty"
	RuleDuplicate Rule = "duplicate"
	RuleEmail     Rule = "email"
	RuleMaxLength Rule = "max_length"
)

// Error describes the first violated rule for a record. Cause is set when a
// caller rejected the field with its own sentinel.
type Error struct {
	Field   string
	Rule    Rule
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrInvalid}
	}
	return []error{ErrInvalid, e.Cause}
}

var fieldValidate = validator.New()

// IsURL reports whether value parses as an absolute URL.
func IsURL(value string) bool {
	return fieldValidate.Var(strings.TrimSpace(value), "required,url") == nil
}

// IsEmail reports whether value is a syntactically valid email address.
func IsEmail(value string) bool {
	return fieldValidate.Var(strings.TrimSpace(value), "required,email") == nil
}

// Checker accumulates the first rule violation for a single record.
type Checker struct {
	label string
	err   *Error
}

// For starts a checker; label names the record in messages (for example `skill "Go"`).
func For(label string) *Checker {
	return &Checker{label: label}
}

// Text requires a non-blank value.
func (c *Checker) Text(field, value string) *Checker {
	if c.err == nil && strings.TrimSpace(value) == "" {
		c.fail(field, RuleRequired, "%s is required", field)
	}
	return c
}

// URL requires an absolute URL.
func (c *Checker) URL(field, value string) *Checker {
	if c.err != nil {
		return c
	}
	if strings.TrimSpace(value) == "" {
		c.fail(field, RuleRequired, "%s is required", field)
		return c
	}
	if !IsURL(value) {
		c.fail(field, RuleURL, "%s must be a valid URL", field)
	}
	return c
}

// OptionalURL accepts an empty value but rejects malformed ones.
func (c *Checker) OptionalURL(field, value string) *Checker {
	if c.err == nil && strings.TrimSpace(value) != "" && !IsURL(value) {
		c.fail(field, RuleURL, "%s must be a valid URL", field)
	}
	return c
}

// Email requires a syntactically valid address.
func (c *Checker) Email(field, value string) *Checker {
	if c.err != nil {
		return c
	}
	if strings.TrimSpace(value) == "" {
		c.fail(field, RuleRequired, "%s is required", field)
		return c
	}
	if !IsEmail(value) {
		c.fail(field, RuleEmail, "%s must be a valid email address", field)
	}
	return c
}

// MaxLength rejects values longer than limit runes.
func (c *Checker) MaxLength(field, value string, limit int) *Checker {
	if c.err == nil && utf8.RuneCountInString(value) > limit {
		c.fail(field, RuleMaxLength, "%s must be at most %d characters", field, limit)
	}
	return c
}

// Selection rejects an empty picker or the SelectionNone sentinel.
func (c *Checker) Selection(field, value string) *Checker {
	if c.err != nil {
		return c
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, SelectionNone) {
		c.fail(field, RuleSelection, "%s must be selected", field)
	}
	return c
}

// NonEmpty requires at least one element in a collection.
func (c *Checker) NonEmpty(field string, length int) *Checker {
	if c.err == nil && length == 0 {
		c.fail(field, RuleNonEmpty, "at least one %s is required", field)
	}
	return c
}

// Err returns the first violation or nil.
func (c *Checker) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

func (c *Checker) fail(field string, rule Rule, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	if c.label != "" {
		message = c.label + ": " + message
	}
	c.err = &Error{Field: field, Rule: rule, Message: message}
}

// Each runs check on every element with an indexed field prefix such as "links[2]",
// stopping at the first failing element.
func Each[E any](c *Checker, field string, items []E, check func(c *Checker, prefix string, item E)) *Checker {
	for index, item := range items {
		if c.err != nil {
			break
		}
		check(c, fmt.Sprintf("%s[%d]", field, index), item)
	}
	return c
}

// Reject records a caller-detected violation, such as a duplicate reference.
// The resulting *Error matches cause under errors.Is.
func (c *Checker) Reject(field string, rule Rule, cause error) *Checker {
	if c.err == nil {
		c.fail(field, rule, "%s", cause.Error())
		c.err.Cause = cause
	}
	return c
}
