// Package onboarding welcomes users the first time they open the app.
package onboarding

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/mo"
	"go.uber.org/zap"

	"qslack/internal/blocks"
	"qslack/internal/config"
	"qslack/internal/slackapi"
	"qslack/internal/users"
)

type UserStore interface {
	Get(ctx context.Context, env config.Env, username string) (mo.Option[users.User], error)
	Put(ctx context.Context, env config.Env, u users.User) error
}

type Onboarder struct {
	users     UserStore
	slack     slackapi.Messenger
	formatter *blocks.Formatter
	log       *zap.Logger
}

func New(store UserStore, slack slackapi.Messenger, formatter *blocks.Formatter, log *zap.Logger) *Onboarder {
	return &Onboarder{users: store, slack: slack, formatter: formatter, log: log}
}

// Username is the local part of the profile e-mail, or the Slack user ID
// when the profile has no usable e-mail.
func Username(email, userID string) string {
	if local, _, ok := strings.Cut(strings.TrimSpace(email), "@"); ok && local != "" {
		return local
	}
	return userID
}

// Onboard records a user seen for the first time in env, sends the welcome
// message to channelID and publishes the App Home. It reports whether the
// user was new. Known users are left alone. A failed profile lookup aborts
// without touching the store.
func (o *Onboarder) Onboard(ctx context.Context, env config.Env, userID, channelID string) (bool, error) {
	email, err := o.slack.UserEmail(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("profile lookup %s: %w", userID, err)
	}
	username := Username(email, userID)

	existing, err := o.users.Get(ctx, env, username)
	if err != nil {
		return false, err
	}
	if existing.IsPresent() {
		o.log.Debug("user already onboarded", zap.String("username", username))
		return false, nil
	}

	if err := o.users.Put(ctx, env, users.User{Username: username, ChannelID: channelID, UserID: userID}); err != nil {
		return false, err
	}
	o.log.Info("user onboarded",
		zap.String("username", username),
		zap.String("env", env.String()),
	)

	welcome, err := o.formatter.Onboarding(ctx)
	if err != nil {
		return true, fmt.Errorf("render onboarding: %w", err)
	}
	if res := o.slack.PostMessage(ctx, channelID, welcome, blocks.PlainText(welcome)); !res.OK {
		o.log.Warn("welcome message not sent", zap.String("channel", channelID), zap.String("error", res.Error))
	}

	home, err := o.formatter.Home(ctx)
	if err != nil {
		return true, fmt.Errorf("render home: %w", err)
	}
	if err := o.slack.PublishHome(ctx, userID, home); err != nil {
		o.log.Warn("app home not published", zap.String("user_id", userID), zap.Error(err))
	}
	return true, nil
}
