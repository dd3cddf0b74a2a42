package errors

import (
	"fmt"
	"strings"
)

/*
Error aggregates several underlying errors and free-form messages into a single
error value. It is used where a component keeps going after a failure and wants
to report everything that went wrong at the end, for example when a catalogue
of agents is built and some of them cannot be configured.
*/
type Error struct {
	Errs []error
	Msgs []any
}

func NewError(errs ...any) error {
	err := &Error{}

	for _, msg := range errs {
		switch v := msg.(type) {
		case nil:
			continue
		case error:
			err.Errs = append(err.Errs, v)
		case string:
			err.Msgs = append(err.Msgs, v)
		default:
			err.Msgs = append(err.Msgs, v)
		}
	}

	if len(err.Errs) == 0 && len(err.Msgs) == 0 {
		return nil
	}

	return err
}

func (err *Error) Error() string {
	builder := &strings.Builder{}

	for _, e := range err.Errs {
		builder.WriteString(e.Error())
		builder.WriteString("\n")
	}

	for _, msg := range err.Msgs {
		builder.WriteString(fmt.Sprintf("%v\n", msg))
	}

	return strings.TrimRight(builder.String(), "\n")
}

/*
Unwrap exposes the aggregated errors to errors.Is and errors.As.
*/
func (err *Error) Unwrap() []error {
	return err.Errs
}
