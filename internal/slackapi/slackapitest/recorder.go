// Package slackapitest provides an in-memory slackapi.Messenger.
package slackapitest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/slack-go/slack"

	"qslack/internal/slackapi"
)

type Call struct {
	Method    string
	ChannelID string
	UserID    string
	TS        string
	Text      string
	Blocks    slack.Blocks
}

// Recorder records every call. Methods listed in Fail return
// {ok: false, error: <value>}.
type Recorder struct {
	mu     sync.Mutex
	Calls  []Call
	Fail   map[string]string
	Emails map[string]string
	seq    int
}

func New() *Recorder {
	return &Recorder{Fail: map[string]string{}, Emails: map[string]string{}}
}

func (r *Recorder) record(c Call) slackapi.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, c)
	if e, ok := r.Fail[c.Method]; ok {
		return slackapi.Result{Error: e, Channel: c.ChannelID}
	}
	ts := c.TS
	if ts == "" {
		r.seq++
		ts = fmt.Sprintf("1749383429.%06d", r.seq)
	}
	return slackapi.Result{OK: true, Channel: c.ChannelID, Timestamp: ts}
}

func (r *Recorder) PostMessage(_ context.Context, channelID string, blocks slack.Blocks, text string) slackapi.Result {
	return r.record(Call{Method: "PostMessage", ChannelID: channelID, Blocks: blocks, Text: text})
}

func (r *Recorder) PostEphemeral(_ context.Context, channelID, userID string, blocks slack.Blocks, text string) slackapi.Result {
	return r.record(Call{Method: "PostEphemeral", ChannelID: channelID, UserID: userID, Blocks: blocks, Text: text})
}

func (r *Recorder) UpdateMessage(_ context.Context, channelID, ts string, blocks slack.Blocks, text string) slackapi.Result {
	return r.record(Call{Method: "UpdateMessage", ChannelID: channelID, TS: ts, Blocks: blocks, Text: text})
}

func (r *Recorder) DeleteMessage(_ context.Context, channelID, ts string) slackapi.Result {
	return r.record(Call{Method: "DeleteMessage", ChannelID: channelID, TS: ts})
}

func (r *Recorder) UserEmail(_ context.Context, userID string) (string, error) {
	res := r.record(Call{Method: "UserEmail", UserID: userID})
	if !res.OK {
		return "", errors.New(res.Error)
	}
	return r.Emails[userID], nil
}

func (r *Recorder) PublishHome(_ context.Context, userID string, blocks slack.Blocks) error {
	res := r.record(Call{Method: "PublishHome", UserID: userID, Blocks: blocks})
	if !res.OK {
		return errors.New(res.Error)
	}
	return nil
}

// Method returns the calls made to method, in order.
func (r *Recorder) Method(method string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

var _ slackapi.Messenger = (*Recorder)(nil)
