package command

import (
	"fmt"
	"strings"
)

// OptionPrefix marks a token as an option rather than a positional argument.
const OptionPrefix = "--"

type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

// Parse splits raw command text into an operation, positional arguments and
// options. Text without any positional token yields an empty Operation and
// no error; the validator decides what that means.
func Parse(text string) (Command, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return Command{}, err
	}

	cmd := Command{Options: map[string]string{}}
	var positional []string
	for _, tok := range tokens {
		if strings.HasPrefix(tok, OptionPrefix) {
			key, value, _ := strings.Cut(tok, "=")
			cmd.Options[key] = value
			continue
		}
		positional = append(positional, tok)
	}
	if len(positional) > 0 {
		cmd.Operation = positional[0]
		cmd.Args = positional[1:]
	}
	return cmd, nil
}

type lexState int

const (
	stateSpace lexState = iota
	stateWord
	stateSingle
	stateDouble
)

// Tokenize follows POSIX shell word splitting: whitespace separates words,
// single quotes are literal, double quotes allow \" \\ \$ and \` escapes, and a
// backslash outside quotes escapes the next character. Adjacent quoted and
// unquoted segments join into one word.
func Tokenize(text string) ([]string, error) {
	var (
		tokens []string
		buf    strings.Builder
		state  = stateSpace
	)
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch state {
		case stateSpace, stateWord:
			switch {
			case isSpace(r):
				if state == stateWord {
					tokens = append(tokens, buf.String())
					buf.Reset()
					state = stateSpace
				}
			case r == '\'':
				state = stateSingle
			case r == '"':
				state = stateDouble
			case r == '\\':
				if i+1 >= len(runes) {
					return nil, &ParseError{Input: text, Reason: "no escaped character"}
				}
				i++
				buf.WriteRune(runes[i])
				state = stateWord
			default:
				buf.WriteRune(r)
				state = stateWord
			}
		case stateSingle:
			if r == '\'' {
				state = stateWord
				continue
			}
			buf.WriteRune(r)
		case stateDouble:
			switch {
			case r == '"':
				state = stateWord
			case r == '\\' && i+1 < len(runes) && escapableInDouble(runes[i+1]):
				i++
				buf.WriteRune(runes[i])
			default:
				buf.WriteRune(r)
			}
		}
	}

	switch state {
	case stateSingle, stateDouble:
		return nil, &ParseError{Input: text, Reason: "no closing quotation"}
	case stateWord:
		tokens = append(tokens, buf.String())
	}
	return tokens, nil
}

func escapableInDouble(r rune) bool {
	return r == '"' || r == '\\' || r == '$' || r == '`'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
