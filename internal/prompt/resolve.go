package prompt

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jfpatrick/bipy-gui-manager/internal/output"
)

// Resolver validates a raw answer and turns it into a typed value.
type Resolver[T any] interface {
	Resolve(candidate string) (T, error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc[T any] func(candidate string) (T, error)

func (f ResolverFunc[T]) Resolve(candidate string) (T, error) { return f(candidate) }

// ValidationError reports a value that could not be accepted.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

// Invalid builds a ValidationError for resolvers.
func Invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks a resolver error that must stop the question loop instead of
// asking again.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was produced by Fatal.
func IsFatal(err error) bool {
	var f *fatalError
	return errors.As(err, &f)
}

func unwrapFatal(err error) error {
	var f *fatalError
	if errors.As(err, &f) {
		return f.err
	}
	return err
}

// Field describes one value to collect.
type Field[T any] struct {
	Name     string
	Initial  string
	Question string
	Resolver Resolver[T]

	// Invalid is shown instead of the resolver error when an answer is rejected.
	Invalid string
	Hints   []string
	// Accepted is a format string with one verb, printed on success.
	Accepted string
}

// Session carries the interaction settings shared by every Field.
type Session struct {
	Asker       Asker
	UI          *output.UI
	Interactive bool
}

// Resolve returns the resolved Initial value when it is valid. Otherwise it
// fails right away in non-interactive mode, or keeps asking until the
// resolver accepts an answer.
func Resolve[T any](s *Session, f Field[T]) (T, error) {
	var zero T

	if f.Initial != "" {
		v, err := f.Resolver.Resolve(f.Initial)
		if err == nil {
			accepted(s, f, v)
			return v, nil
		}
		if IsFatal(err) {
			return zero, unwrapFatal(err)
		}
		if !s.Interactive {
			return zero, asValidation(f, f.Initial, err)
		}
		rejected(s, f, err)
	} else if !s.Interactive {
		return zero, &ValidationError{Field: f.Name, Reason: "no value given and prompting is disabled"}
	}

	for {
		answer, err := s.Asker.Ask(f.Question)
		if err != nil {
			return zero, err
		}
		v, err := f.Resolver.Resolve(answer)
		if err == nil {
			accepted(s, f, v)
			return v, nil
		}
		if IsFatal(err) {
			return zero, unwrapFatal(err)
		}
		rejected(s, f, err)
	}
}

// YesNo asks a yes/no question. In non-interactive mode it returns the default.
func (s *Session) YesNo(question string, defaultYes bool) (bool, error) {
	if !s.Interactive {
		return defaultYes, nil
	}
	return s.Asker.Confirm(question, defaultYes)
}

func accepted[T any](s *Session, f Field[T], v T) {
	if f.Accepted != "" {
		s.UI.Success(f.Accepted, v)
	}
}

func rejected[T any](s *Session, f Field[T], err error) {
	msg := f.Invalid
	if msg == "" {
		msg = err.Error()
	}
	s.UI.Error("%s", msg)
	for _, h := range f.Hints {
		s.UI.Hint("%s", h)
	}
}

func asValidation[T any](f Field[T], value string, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	reason := f.Invalid
	if reason == "" {
		reason = err.Error()
	}
	return &ValidationError{Field: f.Name, Value: value, Reason: reason}
}

// OneOf accepts only the given answers, case-insensitively.
func OneOf(field string, options ...string) Resolver[string] {
	return ResolverFunc[string](func(candidate string) (string, error) {
		c := strings.ToLower(strings.TrimSpace(candidate))
		if slices.Contains(options, c) {
			return c, nil
		}
		return "", Invalid(field, candidate, "expected one of "+strings.Join(options, ", "))
	})
}
