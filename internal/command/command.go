// Package command turns the free text of a slash command into a Command.
package command

import (
	"sort"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// Command is a parsed slash command. Option keys keep their "--" prefix.
type Command struct {
	Operation string
	Args      []string
	Options   map[string]string
}

func (c Command) HasOption(key string) bool {
	_, ok := c.Options[key]
	return ok
}

// String renders the command back into text that Parse reads as the same
// command. Options come last, sorted by key.
func (c Command) String() string {
	tokens := make([]string, 0, 1+len(c.Args)+len(c.Options))
	if c.Operation != "" {
		tokens = append(tokens, c.Operation)
	}
	tokens = append(tokens, c.Args...)

	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := c.Options[k]; v != "" {
			tokens = append(tokens, k+"="+v)
		} else {
			tokens = append(tokens, k)
		}
	}
	return Join(tokens)
}

// Join quotes each token for a POSIX shell and joins them with spaces.
func Join(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = shellescape.Quote(t)
	}
	return strings.Join(quoted, " ")
}
