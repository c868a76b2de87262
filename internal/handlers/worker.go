package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"qslack/internal/command"
	"qslack/internal/config"
	"qslack/internal/dispatch"
	"qslack/internal/pipeline"
	"qslack/internal/policy"
	"qslack/internal/slackapi"
	"qslack/internal/webhook"
)

// forwarded is a slash command re-read from a WorkerPayload.
type forwarded struct {
	req *webhook.Request
	cmd command.Command
	env config.Env
}

// workerBase re-checks forwarded commands. Workers can be invoked directly,
// so they never trust that the endpoint validated the body.
type workerBase struct {
	validator    *policy.Validator
	slack        slackapi.Messenger
	slashCommand string
	defaultEnv   config.Env
	log          *zap.Logger
}

// accept decodes and validates p. On a user error it tells the user and
// returns ok == false with a nil error.
func (w *workerBase) accept(ctx context.Context, p dispatch.WorkerPayload) (fw forwarded, ok bool, err error) {
	env := dispatch.EnvOr(p.Env, w.defaultEnv)

	req, err := webhook.Decode(p.Body)
	if err != nil {
		return forwarded{}, false, fmt.Errorf("decode forwarded body: %w", err)
	}

	cmd, err := command.Parse(req.Text)
	if err == nil {
		err = w.validator.Validate(env, req.Username, cmd)
	}
	if err != nil {
		w.log.Info("forwarded command rejected", zap.String("user", req.Username), zap.Error(err))
		msg := pipeline.UserMessage(err, w.slashCommand)
		if res := w.slack.PostEphemeral(ctx, req.ChannelID, req.UserID, emptyBlocks, msg); !res.OK {
			w.log.Warn("ephemeral error not sent", zap.String("error", res.Error))
		}
		return forwarded{}, false, nil
	}
	return forwarded{req: req, cmd: cmd, env: env}, true, nil
}
