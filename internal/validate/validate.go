// Package validate holds the field constraint table of every request entity.
// Rules run in declaration order and the first failing rule decides the
// message, so the order of a schema is part of the API.
package validate

import (
	"regexp"
	"strings"
	"time"

	"smart-check/internal/apperr"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// now is replaced in tests.
var now = time.Now

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	must(val.RegisterValidation("email_format", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}))
	must(val.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, ok := ParseTime(fl.Field().String())
		return ok
	}))
	must(val.RegisterValidation("notpast", func(fl validator.FieldLevel) bool {
		t, ok := ParseTime(fl.Field().String())
		return ok && !t.Before(now())
	}))
	must(val.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		t, ok := ParseTime(fl.Field().String())
		return ok && !t.After(now())
	}))
	return val
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Rule constrains one value with a validator tag. When Other is set the tag
// compares Value against it (eqfield, nefield...).
type Rule struct {
	Value   any
	Other   any
	Tag     string
	Message string
}

type Schema []Rule

// Check returns an apperr validation error for the first rule that fails.
func (s Schema) Check() error {
	for _, r := range s {
		var err error
		if r.Other != nil {
			err = v.VarWithValue(r.Value, r.Other, r.Tag)
		} else {
			err = v.Var(r.Value, r.Tag)
		}
		if err != nil {
			return apperr.Validation(r.Message)
		}
	}
	return nil
}

// ParseTime accepts ISO-8601 timestamps with or without zone, and plain dates.
// Values without a zone are read in local time.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ID checks a path parameter: "O <name> deve ser um UUID válido."
func ID(name, value string) error {
	return Schema{
		{Value: value, Tag: "uuid", Message: "O " + name + " deve ser um UUID válido."},
	}.Check()
}
