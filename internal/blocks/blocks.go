// Package blocks renders Slack Block Kit messages from JSON templates.
//
// Templates are text/template documents with the sprig function set plus
// two helpers: mrkdwn escapes &, < and > for mrkdwn text, and clip cuts a
// string to at most n runes. Every template must produce a JSON array of
// blocks.
package blocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/Masterminds/sprig/v3"
	"github.com/slack-go/slack"
)

// Template names.
const (
	TemplateResponse   = "response"
	TemplateProcessing = "processing"
	TemplateError      = "error_response"
	TemplateHelp       = "help"
	TemplateOnboarding = "onboarding"
	TemplateHome       = "home"
)

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func extraFuncs() template.FuncMap {
	return template.FuncMap{
		"mrkdwn": mrkdwnEscaper.Replace,
		"clip":   clip,
	}
}

func clip(n int, s string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

type Renderer struct {
	src Source
}

func NewRenderer(src Source) *Renderer {
	return &Renderer{src: src}
}

// Render executes the named template with data and decodes the result.
func (r *Renderer) Render(ctx context.Context, name string, data any) (slack.Blocks, error) {
	text, err := r.src.Load(ctx, name)
	if err != nil {
		return slack.Blocks{}, err
	}

	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Funcs(extraFuncs()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return slack.Blocks{}, fmt.Errorf("parse template %q: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return slack.Blocks{}, fmt.Errorf("execute template %q: %w", name, err)
	}

	var out slack.Blocks
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		return slack.Blocks{}, fmt.Errorf("template %q produced invalid blocks: %w", name, err)
	}
	return out, nil
}
