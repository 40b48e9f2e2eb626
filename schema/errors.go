package schema

import (
	"errors"
	"fmt"
	"strings"

	oaerrors "github.com/go-openapi/errors"
	"github.com/hashicorp/go-multierror"
)

// ErrInvalid is matched (with errors.Is) by every [*ValidationError].
var ErrInvalid = errors.New("validation failed")

// Locations used to tag a ValidationError
const (
	LocationPath     = "path"
	LocationQuery    = "query"
	LocationBody     = "body"
	LocationResponse = "response"
	LocationArgs     = "args"
)

// FieldError describes a single failed constraint.
type FieldError struct {
	// Field is the dotted name of the offending field. It is empty when the
	// failure applies to the value as a whole.
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" || strings.Contains(e.Message, e.Field) {
		return e.Message
	}

	return e.Field + ": " + e.Message
}

// ValidationError is returned when a value does not conform to its schema.
type ValidationError struct {
	// Location is where the value came from - one of the Location* constants,
	// or empty when the value was validated directly.
	Location string
	Errors   []FieldError
}

func (e *ValidationError) Error() string {
	merr := &multierror.Error{ErrorFormat: listFormat}
	for _, fe := range e.Errors {
		merr = multierror.Append(merr, fe)
	}

	where := e.Location
	if where == "" {
		where = "value"
	}

	return fmt.Sprintf("invalid %s: %s", where, merr.Error())
}

// Is reports whether target is ErrInvalid
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Fields returns the names of all offending fields, skipping empty names.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Errors))

	for _, fe := range e.Errors {
		if fe.Field != "" {
			fields = append(fields, fe.Field)
		}
	}

	return fields
}

func listFormat(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}

	return strings.Join(msgs, "; ")
}

// Errorf builds a single-field ValidationError.
func Errorf(location, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Location: location,
		Errors:   []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}},
	}
}

// At validates data with v, tagging any ValidationError with location. A nil
// v accepts data unchanged.
func At(location string, v Validator, data any) (any, error) {
	if v == nil {
		return data, nil
	}

	out, err := v.Validate(data)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Location = location

			return nil, verr
		}

		return nil, err
	}

	return out, nil
}

// IsValidationError reports whether err (or anything it wraps) is a
// ValidationError.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// fieldErrors flattens the errors from a go-openapi validation result.
func fieldErrors(errs []error) []FieldError {
	out := make([]FieldError, 0, len(errs))

	for _, err := range errs {
		var cerr *oaerrors.CompositeError
		if errors.As(err, &cerr) {
			out = append(out, fieldErrors(cerr.Errors)...)

			continue
		}

		var verr *oaerrors.Validation
		if errors.As(err, &verr) {
			field := strings.TrimPrefix(verr.Name, ".")

			out = append(out, FieldError{Field: field, Message: fieldMessage(verr, field)})

			continue
		}

		out = append(out, FieldError{Message: err.Error()})
	}

	return out
}

// fieldMessage drops the "in body" the validator puts in every message. The
// location is already carried by the ValidationError, and it is often not the
// body at all.
func fieldMessage(verr *oaerrors.Validation, field string) string {
	msg := verr.Error()
	if verr.In == "" {
		return msg
	}

	return strings.TrimSpace(strings.Replace(msg, verr.Name+" in "+verr.In, field, 1))
}
