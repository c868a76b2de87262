package handlers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"qslack/internal/alerts"
	"qslack/internal/answer"
	"qslack/internal/blocks"
	"qslack/internal/config"
	"qslack/internal/dispatch"
	"qslack/internal/slackapi"
)

type ChatSyncHandler struct {
	answerer   answer.Answerer
	formatter  *blocks.Formatter
	slack      slackapi.Messenger
	alerts     *alerts.Notifier
	defaultEnv config.Env
	log        *zap.Logger
}

func NewChatSyncHandler(
	answerer answer.Answerer,
	formatter *blocks.Formatter,
	messenger slackapi.Messenger,
	notifier *alerts.Notifier,
	defaultEnv config.Env,
	log *zap.Logger,
) *ChatSyncHandler {
	return &ChatSyncHandler{
		answerer:   answerer,
		formatter:  formatter,
		slack:      messenger,
		alerts:     notifier,
		defaultEnv: defaultEnv,
		log:        log,
	}
}

// Handle answers p.Text and replaces the processing message with the
// answer. On any failure the message shows the error blocks instead.
// Failures are not returned: a retried event would answer twice.
func (h *ChatSyncHandler) Handle(ctx context.Context, p dispatch.ChatSyncPayload) error {
	if p.ChannelID == "" || p.TS == "" {
		return fmt.Errorf("chat-sync: channel_id and ts are required")
	}
	env := dispatch.EnvOr(p.Env, h.defaultEnv)

	err := h.answer(ctx, env, p)
	if err == nil {
		return nil
	}

	h.log.Error("chat-sync failed",
		zap.String("env", env.String()),
		zap.String("channel", p.ChannelID),
		zap.String("ts", p.TS),
		zap.Error(err),
	)
	if !errors.Is(err, answer.ErrEmptyQuestion) {
		h.alerts.Notify(ctx, env, "chat-sync failed", err, map[string]string{
			"channel": p.ChannelID,
			"ts":      p.TS,
		})
	}
	showError(ctx, h.slack, h.formatter, h.log, p.ChannelID, p.TS, p.Text)
	return nil
}

func (h *ChatSyncHandler) answer(ctx context.Context, env config.Env, p dispatch.ChatSyncPayload) error {
	ans, err := h.answerer.Ask(ctx, answer.Query{Env: env, Question: p.Text})
	if err != nil {
		return &DownstreamError{Op: "answer", Err: err}
	}

	citations := make([]blocks.Citation, 0, len(ans.Sources))
	for _, s := range ans.Sources {
		citations = append(citations, blocks.Citation{Title: s.Title, URL: s.URL})
	}
	resp, err := h.formatter.Response(ctx, p.Text, ans.Text, citations)
	if err != nil {
		return err
	}

	res := h.slack.UpdateMessage(ctx, p.ChannelID, p.TS, resp, ans.Text)
	if !res.OK {
		return &DownstreamError{Op: "chat.update", Err: errors.New(res.Error)}
	}
	h.log.Info("answer delivered",
		zap.String("env", env.String()),
		zap.String("channel", p.ChannelID),
		zap.Int("sources", len(ans.Sources)),
	)
	return nil
}
