package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"qslack/internal/config"
	"qslack/internal/onboarding"
	"qslack/internal/pipeline"
	"qslack/internal/signature"
	"qslack/internal/webhook"
)

// EventClaimer reports whether an event id was already handled.
type EventClaimer interface {
	Claim(ctx context.Context, id, kind string) (bool, error)
}

type SlackEventHandler struct {
	verifier  *signature.Verifier
	onboarder *onboarding.Onboarder
	claimer   EventClaimer
	env       config.Env
	log       *zap.Logger
}

// NewSlackEventHandler builds the Events API handler. claimer may be nil,
// in which case redelivered events are handled again.
func NewSlackEventHandler(verifier *signature.Verifier, onboarder *onboarding.Onboarder, claimer EventClaimer, env config.Env, log *zap.Logger) *SlackEventHandler {
	return &SlackEventHandler{verifier: verifier, onboarder: onboarder, claimer: claimer, env: env, log: log}
}

// Handle answers the Events API. Every accepted event is acknowledged with
// 200 so Slack does not redeliver it.
func (h *SlackEventHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := webhook.RawBody(req)
	if err != nil {
		h.log.Warn("unreadable request body", zap.Error(err))
		return pipeline.Unauthorized(), nil
	}

	state := &pipeline.State{Headers: signature.Headers(req.Headers), Body: body}
	if resp := pipeline.Run(ctx, state, pipeline.Authenticate(h.verifier, h.log)); resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		h.log.Warn("unparseable event", zap.Error(err))
		return pipeline.Ack(), nil
	}

	switch ev.Type {
	case slackevents.URLVerification:
		v, ok := ev.Data.(*slackevents.EventsAPIURLVerificationEvent)
		if !ok {
			return pipeline.Ack(), nil
		}
		return pipeline.JSON(http.StatusOK, map[string]string{"challenge": v.Challenge}), nil

	case slackevents.CallbackEvent:
		if h.duplicate(ctx, ev) {
			return pipeline.Ack(), nil
		}
		switch inner := ev.InnerEvent.Data.(type) {
		case *slackevents.AppHomeOpenedEvent:
			h.appHomeOpened(ctx, inner)
		default:
			h.log.Debug("ignored event", zap.String("type", ev.InnerEvent.Type))
		}
	}
	return pipeline.Ack(), nil
}

func (h *SlackEventHandler) duplicate(ctx context.Context, ev slackevents.EventsAPIEvent) bool {
	cb, ok := ev.Data.(*slackevents.EventsAPICallbackEvent)
	if h.claimer == nil || !ok {
		return false
	}
	dup, err := h.claimer.Claim(ctx, cb.EventID, ev.InnerEvent.Type)
	if err != nil {
		h.log.Warn("event claim failed", zap.String("event_id", cb.EventID), zap.Error(err))
		return false
	}
	if dup {
		h.log.Info("duplicate event", zap.String("event_id", cb.EventID))
	}
	return dup
}

func (h *SlackEventHandler) appHomeOpened(ctx context.Context, ev *slackevents.AppHomeOpenedEvent) {
	if ev.User == "" || ev.Channel == "" {
		return
	}
	isNew, err := h.onboarder.Onboard(ctx, h.env, ev.User, ev.Channel)
	if err != nil {
		h.log.Error("onboarding failed", zap.String("user_id", ev.User), zap.Error(err))
		return
	}
	h.log.Info("app home opened", zap.String("user_id", ev.User), zap.Bool("new_user", isNew))
}
