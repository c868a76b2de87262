// Package webhook decodes the bodies Slack posts to the app.
package webhook

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/slack-go/slack"
)

const payloadPrefix = "payload="

var ErrMalformedBody = errors.New("malformed webhook body")

type Kind int

const (
	KindSlashCommand Kind = iota
	KindInteraction
)

func (k Kind) String() string {
	if k == KindInteraction {
		return "interaction"
	}
	return "slash_command"
}

// Request is the part of an inbound webhook the app acts on. Interaction
// payloads carry no command text.
type Request struct {
	Kind        Kind
	UserID      string
	Username    string
	ChannelID   string
	Command     string
	Text        string
	ResponseURL string
	TriggerID   string
}

// RawBody returns the body exactly as Slack signed it.
func RawBody(req events.APIGatewayV2HTTPRequest) (string, error) {
	if !req.IsBase64Encoded {
		return req.Body, nil
	}
	b, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return "", fmt.Errorf("decode base64 body: %w", err)
	}
	return string(b), nil
}

// Decode reads a form-encoded slash command or a payload= interaction body.
func Decode(body string) (*Request, error) {
	if strings.HasPrefix(body, payloadPrefix) {
		return decodeInteraction(body)
	}
	return decodeSlashCommand(body)
}

func decodeSlashCommand(body string) (*Request, error) {
	r, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build form request: %w", err)
	}
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	sc, err := slack.SlashCommandParse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if sc.UserID == "" || sc.ChannelID == "" {
		return nil, fmt.Errorf("%w: missing user_id or channel_id", ErrMalformedBody)
	}

	return &Request{
		Kind:        KindSlashCommand,
		UserID:      sc.UserID,
		Username:    sc.UserName,
		ChannelID:   sc.ChannelID,
		Command:     sc.Command,
		Text:        sc.Text,
		ResponseURL: sc.ResponseURL,
		TriggerID:   sc.TriggerID,
	}, nil
}

// interactionEnvelope holds the fields of a block_actions payload the app
// reads. slack.User has no username field, so the envelope is decoded here.
type interactionEnvelope struct {
	TriggerID   string `json:"trigger_id"`
	ResponseURL string `json:"response_url"`
	User        struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"user"`
	Container struct {
		ChannelID string `json:"channel_id"`
	} `json:"container"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

func decodeInteraction(body string) (*Request, error) {
	form, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	var env interactionEnvelope
	if err := json.Unmarshal([]byte(form.Get("payload")), &env); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformedBody, err)
	}

	username := env.User.Username
	if username == "" {
		username = env.User.Name
	}
	channel := env.Container.ChannelID
	if channel == "" {
		channel = env.Channel.ID
	}
	if env.User.ID == "" || channel == "" {
		return nil, fmt.Errorf("%w: payload missing user or channel", ErrMalformedBody)
	}

	return &Request{
		Kind:        KindInteraction,
		UserID:      env.User.ID,
		Username:    username,
		ChannelID:   channel,
		ResponseURL: env.ResponseURL,
		TriggerID:   env.TriggerID,
	}, nil
}
