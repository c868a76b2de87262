package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"qslack/internal/config"
	"qslack/internal/dispatch"
	"qslack/internal/pipeline"
	"qslack/internal/policy"
	"qslack/internal/signature"
	"qslack/internal/webhook"
)

type SlashCommandHandler struct {
	stages []pipeline.Stage
	log    *zap.Logger
}

func NewSlashCommandHandler(
	verifier *signature.Verifier,
	validator *policy.Validator,
	dispatcher *dispatch.Dispatcher,
	defaultEnv config.Env,
	slashCommand string,
	log *zap.Logger,
) *SlashCommandHandler {
	return &SlashCommandHandler{
		stages: []pipeline.Stage{
			pipeline.Authenticate(verifier, log),
			pipeline.Decode(log),
			pipeline.Parse(slashCommand, log),
			pipeline.Validate(validator, defaultEnv, log),
			pipeline.Dispatch(dispatcher, log),
		},
		log: log,
	}
}

func (h *SlashCommandHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := webhook.RawBody(req)
	if err != nil {
		h.log.Warn("unreadable request body", zap.Error(err))
		return pipeline.Unauthorized(), nil
	}

	state := &pipeline.State{
		Headers: signature.Headers(req.Headers),
		Body:    body,
	}
	return pipeline.Run(ctx, state, h.stages...), nil
}
