package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"qslack/internal/command"
	"qslack/internal/config"
)

// Operations known to the dispatcher.
const (
	OpAsk  = "ask"
	OpHelp = "help"
)

// OptionDev selects the dev environment for a single request.
const OptionDev = "--dev"

var (
	ErrUnknownOperation   = errors.New("unknown operation")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidArguments   = errors.New("invalid arguments")
	ErrUnrecognizedOption = errors.New("unrecognized option")
	ErrMissingOption      = errors.New("missing option")
)

// ValidationError carries the message shown to the user. Unwrap yields one
// of the Err* kinds above.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Kind }

type Validator struct {
	table        *Table
	slashCommand string
}

func NewValidator(table *Table, slashCommand string) *Validator {
	return &Validator{table: table, slashCommand: slashCommand}
}

// ResolveEnv picks the environment for one request: --dev forces dev,
// anything else falls back to def.
func ResolveEnv(cmd command.Command, def config.Env) config.Env {
	if cmd.HasOption(OptionDev) {
		return config.EnvDev
	}
	return def
}

// Validate checks cmd for username against the policy of env. It has no
// side effects.
func (v *Validator) Validate(env config.Env, username string, cmd command.Command) error {
	p, ok := v.table.Lookup(env, cmd.Operation)
	if cmd.Operation == "" || !ok {
		return &ValidationError{
			Kind:    ErrUnknownOperation,
			Message: fmt.Sprintf("Invalid input. To view the list of available operations, type %s %s.", v.slashCommand, OpHelp),
		}
	}

	if !p.AllowsUser(username) {
		return &ValidationError{
			Kind:    ErrForbidden,
			Message: "You don't have permission to access this resource.",
		}
	}

	if p.Arity != nil && len(cmd.Args) != *p.Arity {
		return &ValidationError{Kind: ErrInvalidArguments, Message: v.usage(cmd.Operation, p)}
	}
	if p.MinArgLength > 0 {
		for _, arg := range cmd.Args {
			if utf8.RuneCountInString(strings.TrimSpace(arg)) < p.MinArgLength {
				return &ValidationError{Kind: ErrInvalidArguments, Message: "The input text is too short."}
			}
		}
	}

	for _, key := range sortedKeys(cmd.Options) {
		if !p.AcceptedOptions.Has(key) {
			return &ValidationError{
				Kind:    ErrUnrecognizedOption,
				Message: fmt.Sprintf("Unrecognized option %q for operation %q.", key, cmd.Operation),
			}
		}
	}

	for _, req := range p.RequiredOptions.Sorted() {
		if !cmd.HasOption(req) {
			return &ValidationError{
				Kind:    ErrMissingOption,
				Message: fmt.Sprintf("Missing required option %q for operation %q.", req, cmd.Operation),
			}
		}
	}

	return nil
}

func (v *Validator) usage(op string, p OperationPolicy) string {
	if p.Usage == "" {
		return fmt.Sprintf("Invalid arguments for operation %q.", op)
	}
	return strings.ReplaceAll(p.Usage, "{command}", v.slashCommand)
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
