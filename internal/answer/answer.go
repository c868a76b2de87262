// Package answer queries the knowledge base behind the chat bot.
package answer

import (
	"context"
	"errors"

	"qslack/internal/config"
)

var ErrEmptyQuestion = errors.New("empty question")

type Query struct {
	Env      config.Env
	Question string
}

// Source is a document the answer was drawn from.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

type Answerer interface {
	Ask(ctx context.Context, q Query) (*Answer, error)
}
