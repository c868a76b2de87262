// Package slackapi wraps the Slack Web API calls the app makes.
package slackapi

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Result mirrors Slack's {ok, error} envelope. Transport failures are
// folded into Error so callers branch on OK only.
type Result struct {
	OK        bool
	Error     string
	Channel   string
	Timestamp string
}

func resultOf(channel, ts string, err error) Result {
	if err != nil {
		return Result{Error: err.Error(), Channel: channel}
	}
	return Result{OK: true, Channel: channel, Timestamp: ts}
}

type Messenger interface {
	PostMessage(ctx context.Context, channelID string, blocks slack.Blocks, text string) Result
	PostEphemeral(ctx context.Context, channelID, userID string, blocks slack.Blocks, text string) Result
	UpdateMessage(ctx context.Context, channelID, ts string, blocks slack.Blocks, text string) Result
	DeleteMessage(ctx context.Context, channelID, ts string) Result
	UserEmail(ctx context.Context, userID string) (string, error)
	PublishHome(ctx context.Context, userID string, blocks slack.Blocks) error
}

// Client implements Messenger with slack-go.
type Client struct {
	api *slack.Client
}

func New(token string, opts ...slack.Option) *Client {
	return &Client{api: slack.New(token, opts...)}
}

func messageOptions(blocks slack.Blocks, text string) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if len(blocks.BlockSet) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks.BlockSet...))
	}
	return opts
}

func (c *Client) PostMessage(ctx context.Context, channelID string, blocks slack.Blocks, text string) Result {
	ch, ts, err := c.api.PostMessageContext(ctx, channelID, messageOptions(blocks, text)...)
	if ch == "" {
		ch = channelID
	}
	return resultOf(ch, ts, err)
}

func (c *Client) PostEphemeral(ctx context.Context, channelID, userID string, blocks slack.Blocks, text string) Result {
	ts, err := c.api.PostEphemeralContext(ctx, channelID, userID, messageOptions(blocks, text)...)
	return resultOf(channelID, ts, err)
}

func (c *Client) UpdateMessage(ctx context.Context, channelID, ts string, blocks slack.Blocks, text string) Result {
	ch, newTS, _, err := c.api.UpdateMessageContext(ctx, channelID, ts, messageOptions(blocks, text)...)
	if ch == "" {
		ch = channelID
	}
	return resultOf(ch, newTS, err)
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, ts string) Result {
	ch, delTS, err := c.api.DeleteMessageContext(ctx, channelID, ts)
	if ch == "" {
		ch = channelID
	}
	return resultOf(ch, delTS, err)
}

// UserEmail returns the e-mail on the user's profile.
func (c *Client) UserEmail(ctx context.Context, userID string) (string, error) {
	p, err := c.api.GetUserProfileContext(ctx, &slack.GetUserProfileParameters{UserID: userID})
	if err != nil {
		return "", fmt.Errorf("users.profile.get %s: %w", userID, err)
	}
	return p.Email, nil
}

// PublishHome replaces the user's App Home tab.
func (c *Client) PublishHome(ctx context.Context, userID string, blocks slack.Blocks) error {
	_, err := c.api.PublishViewContext(ctx, slack.PublishViewContextRequest{
		UserID: userID,
		View: slack.HomeTabViewRequest{
			Type:   slack.VTHomeTab,
			Blocks: blocks,
		},
	})
	if err != nil {
		return fmt.Errorf("views.publish %s: %w", userID, err)
	}
	return nil
}
