package formula

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownOption is matched by *UnknownOptionError.
	ErrUnknownOption = errors.New("unknown option")

	// ErrOptionType is matched by *OptionTypeError.
	ErrOptionType = errors.New("option value is not a boolean")
)

// UnknownOptionError reports an override naming an option outside the
// fixed set.
type UnknownOptionError struct {
	Name string
}

func (e *UnknownOptionError) Error() string {
	names := make([]string, len(Decls))
	for i, d := range Decls {
		names[i] = d.Name
	}
	return fmt.Sprintf("%s %q (known: %s)", ErrUnknownOption, e.Name, strings.Join(names, ", "))
}

func (e *UnknownOptionError) Unwrap() error { return ErrUnknownOption }

// OptionTypeError reports an override whose value is not a bool.
type OptionTypeError struct {
	Name  string
	Value any
}

func (e *OptionTypeError) Error() string {
	return fmt.Sprintf("option %q: %s (got %T %v)", e.Name, ErrOptionType, e.Value, e.Value)
}

func (e *OptionTypeError) Unwrap() error { return ErrOptionType }
