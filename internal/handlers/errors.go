package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"qslack/internal/blocks"
	"qslack/internal/slackapi"
)

// DownstreamError is a failure of a service the app depends on after the
// request was accepted: the answer backend, Slack or Lambda.
type DownstreamError struct {
	Op  string
	Err error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DownstreamError) Unwrap() error { return e.Err }

const answerFailedText = "Sorry, the answer could not be retrieved. Please try again later."

// showError replaces the message at ts with the error blocks for question.
func showError(ctx context.Context, messenger slackapi.Messenger, f *blocks.Formatter, log *zap.Logger, channelID, ts, question string) {
	errBlocks, err := f.Error(ctx, question, answerFailedText)
	if err != nil {
		log.Error("render error blocks", zap.Error(err))
		return
	}
	if res := messenger.UpdateMessage(ctx, channelID, ts, errBlocks, answerFailedText); !res.OK {
		log.Warn("error message not shown", zap.String("channel", channelID), zap.String("error", res.Error))
	}
}
