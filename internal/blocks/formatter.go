package blocks

import (
	"context"
	"strings"

	"github.com/slack-go/slack"
)

// Citation links an answer to the document it came from.
type Citation struct {
	Title string
	URL   string
}

// FilterCitations drops citations served from the internal bucket, keeps
// the first citation of each title and stops after max entries. An empty
// bucket disables the bucket rule; max <= 0 disables the cap.
func FilterCitations(in []Citation, internalBucket string, max int) []Citation {
	internal := ""
	if internalBucket != "" {
		internal = "https://" + internalBucket
	}

	seen := make(map[string]struct{}, len(in))
	out := make([]Citation, 0, len(in))
	for _, c := range in {
		if internal != "" && strings.HasPrefix(c.URL, internal) {
			continue
		}
		if _, dup := seen[c.Title]; dup {
			continue
		}
		seen[c.Title] = struct{}{}
		out = append(out, c)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// Formatter builds every message the app sends.
type Formatter struct {
	renderer       *Renderer
	slashCommand   string
	internalBucket string
	maxCitations   int
}

func NewFormatter(r *Renderer, slashCommand, internalBucket string, maxCitations int) *Formatter {
	return &Formatter{
		renderer:       r,
		slashCommand:   slashCommand,
		internalBucket: internalBucket,
		maxCitations:   maxCitations,
	}
}

type responseData struct {
	Question  string
	Answer    string
	Citations []Citation
}

// Response renders an answer. The sources section is left out when no
// citation survives FilterCitations.
func (f *Formatter) Response(ctx context.Context, question, answer string, citations []Citation) (slack.Blocks, error) {
	return f.renderer.Render(ctx, TemplateResponse, responseData{
		Question:  question,
		Answer:    answer,
		Citations: FilterCitations(citations, f.internalBucket, f.maxCitations),
	})
}

func (f *Formatter) Processing(ctx context.Context, question string) (slack.Blocks, error) {
	return f.renderer.Render(ctx, TemplateProcessing, map[string]any{"Question": question})
}

func (f *Formatter) Error(ctx context.Context, question, reason string) (slack.Blocks, error) {
	return f.renderer.Render(ctx, TemplateError, map[string]any{"Question": question, "Error": reason})
}

func (f *Formatter) Help(ctx context.Context, operations []string) (slack.Blocks, error) {
	return f.renderer.Render(ctx, TemplateHelp, map[string]any{
		"SlashCommand": f.slashCommand,
		"Operations":   operations,
	})
}

func (f *Formatter) Onboarding(ctx context.Context) (slack.Blocks, error) {
	return f.renderer.Render(ctx, TemplateOnboarding, map[string]any{"SlashCommand": f.slashCommand})
}

func (f *Formatter) Home(ctx context.Context) (slack.Blocks, error) {
	return f.renderer.Render(ctx, TemplateHome, map[string]any{
		"SlashCommand": f.slashCommand,
		"MaxCitations": f.maxCitations,
	})
}

// PlainText returns the text of the first section block, used as the
// notification fallback.
func PlainText(b slack.Blocks) string {
	for _, blk := range b.BlockSet {
		if s, ok := blk.(*slack.SectionBlock); ok && s.Text != nil {
			return s.Text.Text
		}
	}
	return ""
}
