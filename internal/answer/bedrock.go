package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	bedrockruntime "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type BedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock answers with a Claude model on Amazon Bedrock. It has no
// retrieval index, so answers carry the sources the model cites, if any.
type Bedrock struct {
	client    BedrockClient
	modelID   string
	maxTokens int
}

func NewBedrock(client BedrockClient, modelID string) *Bedrock {
	return &Bedrock{client: client, modelID: modelID, maxTokens: 1024}
}

func buildPrompt(question string) string {
	return fmt.Sprintf(`
You answer questions from employees in a Slack workspace.

OUTPUT: valid JSON ONLY.

RULES:
- Answer in Slack mrkdwn, at most a few short paragraphs.
- If you do not know, say so. Never invent links.
- List a source only when you can name its title and URL.

USER QUESTION:
%s

Return JSON:
{
  "answer": "...",
  "sources": [{"title": "...", "url": "..."}]
}
`, question)
}

func (b *Bedrock) Ask(ctx context.Context, query Query) (*Answer, error) {
	question := strings.TrimSpace(query.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if b.modelID == "" {
		return nil, fmt.Errorf("missing env BEDROCK_MODEL_ID")
	}

	payload := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        b.maxTokens,
		"temperature":       0.0,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": buildPrompt(question)},
				},
			},
		},
	}
	body, _ := json.Marshal(payload)

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock InvokeModel: %w", err)
	}

	var raw struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(out.Body, &raw); err != nil {
		return nil, fmt.Errorf("bedrock response unmarshal: %w", err)
	}

	var text string
	for _, c := range raw.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("model returned no text")
	}

	// Models sometimes answer in prose despite the prompt. Keep the prose.
	jsonStr := extractFirstJSONObject(text)
	if jsonStr == "" {
		return &Answer{Text: text}, nil
	}
	var res struct {
		Answer  string   `json:"answer"`
		Sources []Source `json:"sources"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &res); err != nil || strings.TrimSpace(res.Answer) == "" {
		return &Answer{Text: text}, nil
	}
	return &Answer{Text: strings.TrimSpace(res.Answer), Sources: res.Sources}, nil
}

// extractFirstJSONObject finds the first balanced {...} block, skipping
// braces inside JSON strings.
func extractFirstJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
