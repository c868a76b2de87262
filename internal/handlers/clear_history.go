package handlers

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"qslack/internal/dispatch"
	"qslack/internal/slackapi"
)

const deletePause = time.Second

type ClearHistoryResult struct {
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}

type ClearHistoryHandler struct {
	slack slackapi.Messenger
	sleep func(context.Context, time.Duration) error
	log   *zap.Logger
}

func NewClearHistoryHandler(messenger slackapi.Messenger, log *zap.Logger) *ClearHistoryHandler {
	return &ClearHistoryHandler{slack: messenger, sleep: sleepCtx, log: log}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TSFromPermalink extracts the message timestamp from a Slack permalink:
// .../p1749383429772189 is message 1749383429.772189.
func TSFromPermalink(permalink string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(permalink))
	if err != nil {
		return "", fmt.Errorf("permalink %q: %w", permalink, err)
	}
	last := path.Base(u.Path)
	digits, ok := strings.CutPrefix(last, "p")
	if !ok || len(digits) <= 6 {
		return "", fmt.Errorf("permalink %q: no message id", permalink)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("permalink %q: no message id", permalink)
		}
	}
	cut := len(digits) - 6
	return digits[:cut] + "." + digits[cut:], nil
}

// Handle deletes each linked message, pausing between calls to stay under
// the chat.delete rate limit. Messages that cannot be deleted are skipped.
func (h *ClearHistoryHandler) Handle(ctx context.Context, p dispatch.ClearHistoryPayload) (ClearHistoryResult, error) {
	var out ClearHistoryResult
	if p.ChannelID == "" {
		return out, fmt.Errorf("clear-chat-history: channel_id is required")
	}

	for i, link := range p.MessageURLs {
		if i > 0 {
			if err := h.sleep(ctx, deletePause); err != nil {
				return out, err
			}
		}
		ts, err := TSFromPermalink(link)
		if err != nil {
			h.log.Warn("skipping message", zap.Error(err))
			out.Skipped++
			continue
		}
		if res := h.slack.DeleteMessage(ctx, p.ChannelID, ts); !res.OK {
			h.log.Warn("delete failed",
				zap.String("channel", p.ChannelID),
				zap.String("ts", ts),
				zap.String("error", res.Error),
			)
			out.Skipped++
			continue
		}
		out.Deleted++
	}

	h.log.Info("chat history cleared",
		zap.String("channel", p.ChannelID),
		zap.Int("deleted", out.Deleted),
		zap.Int("skipped", out.Skipped),
	)
	return out, nil
}
