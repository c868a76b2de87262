// Package pipeline runs a slash command through its stages:
// authenticate, decode, parse, validate and dispatch. A stage either ends
// the request with a response or lets the next stage run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"qslack/internal/command"
	"qslack/internal/config"
	"qslack/internal/dispatch"
	"qslack/internal/policy"
	"qslack/internal/signature"
	"qslack/internal/webhook"
)

const dispatchFailedMessage = "Your request could not be processed right now. Please try again in a moment."

// State accumulates what the stages learn about one request.
type State struct {
	Headers http.Header
	Body    string

	Request *webhook.Request
	Command command.Command
	Env     config.Env
}

// Stage returns nil to continue or a response to stop.
type Stage func(ctx context.Context, s *State) *Response

// Run applies stages in order and acknowledges the request when all of
// them continue.
func Run(ctx context.Context, s *State, stages ...Stage) Response {
	for _, stage := range stages {
		if resp := stage(ctx, s); resp != nil {
			return *resp
		}
	}
	return Ack()
}

func stop(r Response) *Response { return &r }

// UserMessage turns a parse or validation error into the text shown to the
// user. Other errors get a generic retry message.
func UserMessage(err error, slashCommand string) string {
	var perr *command.ParseError
	if errors.As(err, &perr) {
		return fmt.Sprintf("Invalid input: %s. To view the list of available operations, type %s %s.",
			perr.Reason, slashCommand, policy.OpHelp)
	}
	var verr *policy.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return dispatchFailedMessage
}

func Authenticate(v *signature.Verifier, log *zap.Logger) Stage {
	return func(_ context.Context, s *State) *Response {
		if err := v.Verify(s.Headers, s.Body); err != nil {
			var aerr *signature.AuthError
			reason := err.Error()
			if errors.As(err, &aerr) {
				reason = aerr.Reason
			}
			log.Warn("request rejected", zap.String("reason", reason))
			return stop(Unauthorized())
		}
		return nil
	}
}

func Decode(log *zap.Logger) Stage {
	return func(_ context.Context, s *State) *Response {
		req, err := webhook.Decode(s.Body)
		if err != nil {
			log.Warn("undecodable body", zap.Error(err))
			return stop(Ephemeral("Your request could not be read."))
		}
		s.Request = req
		log.Debug("webhook decoded", zap.Stringer("kind", req.Kind), zap.String("user", req.Username))
		return nil
	}
}

func Parse(slashCommand string, log *zap.Logger) Stage {
	return func(_ context.Context, s *State) *Response {
		cmd, err := command.Parse(s.Request.Text)
		if err != nil {
			log.Info("unparseable command", zap.String("user", s.Request.Username), zap.Error(err))
			return stop(Ephemeral(UserMessage(err, slashCommand)))
		}
		s.Command = cmd
		return nil
	}
}

// Validate resolves the request environment from defaultEnv and --dev,
// then checks the command against that environment's policy.
func Validate(v *policy.Validator, defaultEnv config.Env, log *zap.Logger) Stage {
	return func(_ context.Context, s *State) *Response {
		s.Env = policy.ResolveEnv(s.Command, defaultEnv)
		if err := v.Validate(s.Env, s.Request.Username, s.Command); err != nil {
			var verr *policy.ValidationError
			if errors.As(err, &verr) {
				log.Info("command rejected",
					zap.String("user", s.Request.Username),
					zap.String("operation", s.Command.Operation),
					zap.String("env", s.Env.String()),
					zap.Error(verr.Kind),
				)
				return stop(Ephemeral(verr.Message))
			}
			log.Error("validator failed", zap.Error(err))
			return stop(Ephemeral(dispatchFailedMessage))
		}
		return nil
	}
}

// Dispatch forwards the raw body and environment to the function serving
// the operation and acknowledges at once.
func Dispatch(d *dispatch.Dispatcher, log *zap.Logger) Stage {
	return func(ctx context.Context, s *State) *Response {
		payload := dispatch.WorkerPayload{Body: s.Body, Env: s.Env}
		if err := d.Dispatch(ctx, s.Command.Operation, s.Env, payload); err != nil {
			log.Error("dispatch failed",
				zap.String("operation", s.Command.Operation),
				zap.String("env", s.Env.String()),
				zap.Error(err),
			)
			return stop(Ephemeral(dispatchFailedMessage))
		}
		log.Info("command dispatched",
			zap.String("user", s.Request.Username),
			zap.Stringer("command", s.Command),
			zap.String("env", s.Env.String()),
		)
		return nil
	}
}
