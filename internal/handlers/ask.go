package handlers

import (
	"context"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"qslack/internal/alerts"
	"qslack/internal/blocks"
	"qslack/internal/config"
	"qslack/internal/dispatch"
	"qslack/internal/policy"
	"qslack/internal/slackapi"
)

const processingText = "Processing..."

var emptyBlocks slack.Blocks

// AskHandler acknowledges a question in the channel and hands it to
// chat-sync, which replaces the acknowledgement with the answer.
type AskHandler struct {
	workerBase
	formatter  *blocks.Formatter
	dispatcher *dispatch.Dispatcher
	chatSyncFn string
	alerts     *alerts.Notifier
}

func NewAskHandler(
	validator *policy.Validator,
	messenger slackapi.Messenger,
	formatter *blocks.Formatter,
	dispatcher *dispatch.Dispatcher,
	chatSyncFn string,
	notifier *alerts.Notifier,
	slashCommand string,
	defaultEnv config.Env,
	log *zap.Logger,
) *AskHandler {
	return &AskHandler{
		workerBase: workerBase{
			validator:    validator,
			slack:        messenger,
			slashCommand: slashCommand,
			defaultEnv:   defaultEnv,
			log:          log,
		},
		formatter:  formatter,
		dispatcher: dispatcher,
		chatSyncFn: chatSyncFn,
		alerts:     notifier,
	}
}

// Question is the text asked, the arguments of an ask command.
func Question(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func (h *AskHandler) Handle(ctx context.Context, p dispatch.WorkerPayload) error {
	fw, ok, err := h.accept(ctx, p)
	if err != nil || !ok {
		return err
	}
	question := Question(fw.cmd.Args)

	processing, err := h.formatter.Processing(ctx, question)
	if err != nil {
		return err
	}
	posted := h.slack.PostMessage(ctx, fw.req.ChannelID, processing, processingText)
	if !posted.OK {
		h.log.Error("processing message not posted",
			zap.String("channel", fw.req.ChannelID),
			zap.String("error", posted.Error),
		)
		return nil
	}

	payload := dispatch.ChatSyncPayload{
		Text:      question,
		TS:        posted.Timestamp,
		ChannelID: posted.Channel,
		Env:       fw.env,
	}
	if err := h.dispatcher.Invoke(ctx, h.chatSyncFn, fw.env, payload); err != nil {
		h.fail(ctx, fw.env, posted, question, &DownstreamError{Op: "invoke chat-sync", Err: err})
		return nil
	}
	h.log.Info("question forwarded",
		zap.String("user", fw.req.Username),
		zap.String("env", fw.env.String()),
		zap.String("ts", posted.Timestamp),
	)
	return nil
}

// fail replaces the processing message with the error blocks.
func (h *AskHandler) fail(ctx context.Context, env config.Env, posted slackapi.Result, question string, cause error) {
	h.log.Error("ask failed", zap.Error(cause))
	h.alerts.Notify(ctx, env, "ask failed", cause, map[string]string{
		"channel": posted.Channel,
		"ts":      posted.Timestamp,
	})

	showError(ctx, h.slack, h.formatter, h.log, posted.Channel, posted.Timestamp, question)
}
