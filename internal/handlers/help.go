package handlers

import (
	"context"

	"go.uber.org/zap"

	"qslack/internal/blocks"
	"qslack/internal/config"
	"qslack/internal/dispatch"
	"qslack/internal/policy"
	"qslack/internal/slackapi"
)

const helpText = "Application help"

type HelpHandler struct {
	workerBase
	table     *policy.Table
	formatter *blocks.Formatter
}

func NewHelpHandler(
	table *policy.Table,
	validator *policy.Validator,
	messenger slackapi.Messenger,
	formatter *blocks.Formatter,
	slashCommand string,
	defaultEnv config.Env,
	log *zap.Logger,
) *HelpHandler {
	return &HelpHandler{
		workerBase: workerBase{
			validator:    validator,
			slack:        messenger,
			slashCommand: slashCommand,
			defaultEnv:   defaultEnv,
			log:          log,
		},
		table:     table,
		formatter: formatter,
	}
}

// Handle shows the requesting user the operations of its environment.
func (h *HelpHandler) Handle(ctx context.Context, p dispatch.WorkerPayload) error {
	fw, ok, err := h.accept(ctx, p)
	if err != nil || !ok {
		return err
	}

	help, err := h.formatter.Help(ctx, h.table.Operations(fw.env))
	if err != nil {
		return err
	}
	if res := h.slack.PostEphemeral(ctx, fw.req.ChannelID, fw.req.UserID, help, helpText); !res.OK {
		h.log.Error("help not posted",
			zap.String("channel", fw.req.ChannelID),
			zap.String("error", res.Error),
		)
	}
	return nil
}
