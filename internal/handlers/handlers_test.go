package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/samber/mo"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qslack/internal/alerts"
	"qslack/internal/answer"
	"qslack/internal/blocks"
	"qslack/internal/config"
	"qslack/internal/dispatch"
	"qslack/internal/onboarding"
	"qslack/internal/policy"
	"qslack/internal/signature"
	"qslack/internal/slackapi/slackapitest"
	"qslack/internal/users"
)

const (
	secret   = "signing-secret"
	question = "Where is the VPN guide?"
)

var now = time.Unix(1_750_000_000, 0)

type recordingInvoker struct {
	inputs []*lambda.InvokeInput
	err    error
}

func (r *recordingInvoker) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	r.inputs = append(r.inputs, in)
	if r.err != nil {
		return nil, r.err
	}
	return &lambda.InvokeOutput{StatusCode: 202}, nil
}

type stubAnswerer struct {
	ans   *answer.Answer
	err   error
	asked []answer.Query
}

func (s *stubAnswerer) Ask(_ context.Context, q answer.Query) (*answer.Answer, error) {
	s.asked = append(s.asked, q)
	return s.ans, s.err
}

type memoryUsers struct {
	records map[string]users.User
}

func (m *memoryUsers) Get(_ context.Context, env config.Env, username string) (mo.Option[users.User], error) {
	if u, ok := m.records[env.String()+"/"+username]; ok {
		return mo.Some(u), nil
	}
	return mo.None[users.User](), nil
}

func (m *memoryUsers) Put(_ context.Context, env config.Env, u users.User) error {
	m.records[env.String()+"/"+u.Username] = u
	return nil
}

func formBody(text string) string {
	v := url.Values{}
	v.Set("user_id", "U1")
	v.Set("user_name", "alice")
	v.Set("channel_id", "C1")
	v.Set("command", "/qbot")
	v.Set("text", text)
	return v.Encode()
}

func formatter() *blocks.Formatter {
	return blocks.NewFormatter(blocks.NewRenderer(blocks.EmbeddedSource{}), "/qbot", "internal-bucket", 3)
}

func validator(t *testing.T) (*policy.Table, *policy.Validator) {
	t.Helper()
	table, err := policy.LoadFile("")
	require.NoError(t, err)
	return table, policy.NewValidator(table, "/qbot")
}

func signedRequest(body string, at time.Time) events.APIGatewayV2HTTPRequest {
	ts := strconv.FormatInt(at.Unix(), 10)
	return events.APIGatewayV2HTTPRequest{
		Headers: map[string]string{
			"x-slack-request-timestamp": ts,
			"x-slack-signature":         signature.Sign([]byte(secret), ts, body),
		},
		Body: body,
	}
}

func verifier() *signature.Verifier {
	return signature.NewVerifier(secret).WithClock(func() time.Time { return now })
}

func newAsk(t *testing.T, rec *slackapitest.Recorder, inv *recordingInvoker) *AskHandler {
	_, v := validator(t)
	log := zap.NewNop()
	d := dispatch.New(inv, nil, log)
	return NewAskHandler(v, rec, formatter(), d, "fn-chat-sync", alerts.New(nil, "", "ask", log), "/qbot", config.EnvProd, log)
}

func TestSlashCommandHandlerDispatches(t *testing.T) {
	_, v := validator(t)
	inv := &recordingInvoker{}
	log := zap.NewNop()
	d := dispatch.New(inv, map[string]string{policy.OpAsk: "fn-ask", policy.OpHelp: "fn-help"}, log)
	h := NewSlashCommandHandler(verifier(), v, d, config.EnvProd, "/qbot", log)

	b := formBody(`ask "` + question + `" --dev`)
	req := signedRequest(b, now)
	req.Body = base64.StdEncoding.EncodeToString([]byte(b))
	req.IsBase64Encoded = true

	resp, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, inv.inputs, 1)
	assert.Equal(t, "fn-ask", aws.ToString(inv.inputs[0].FunctionName))
	assert.Equal(t, "dev", aws.ToString(inv.inputs[0].Qualifier))
}

func TestSlashCommandHandlerRejectsUnsigned(t *testing.T) {
	_, v := validator(t)
	inv := &recordingInvoker{}
	log := zap.NewNop()
	h := NewSlashCommandHandler(verifier(), v, dispatch.New(inv, nil, log), config.EnvProd, "/qbot", log)

	resp, err := h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{Body: formBody("help")})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, inv.inputs)
}

func TestSlackEventURLVerification(t *testing.T) {
	h := NewSlackEventHandler(verifier(), nil, nil, config.EnvProd, zap.NewNop())

	body := `{"token":"tok","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","type":"url_verification"}`
	resp, err := h.Handle(context.Background(), signedRequest(body, now))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	assert.Equal(t, "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P", out["challenge"])
}

func TestSlackEventAppHomeOpenedOnboards(t *testing.T) {
	rec := slackapitest.New()
	rec.Emails["U1"] = "alice@example.com"
	store := &memoryUsers{records: map[string]users.User{}}
	o := onboarding.New(store, rec, formatter(), zap.NewNop())
	h := NewSlackEventHandler(verifier(), o, nil, config.EnvDev, zap.NewNop())

	body := `{"token":"tok","team_id":"T1","api_app_id":"A1","type":"event_callback","event_id":"Ev1","event_time":1750000000,` +
		`"event":{"type":"app_home_opened","user":"U1","channel":"D1","tab":"home","event_ts":"1750000000.000100"}}`

	for i := 0; i < 2; i++ {
		resp, err := h.Handle(context.Background(), signedRequest(body, now))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	assert.Contains(t, store.records, "dev/alice")
	require.Len(t, rec.Method("PostMessage"), 1)
	assert.Equal(t, "D1", rec.Method("PostMessage")[0].ChannelID)
	assert.Len(t, rec.Method("PublishHome"), 1)
}

type seenEvents map[string]bool

func (s seenEvents) Claim(_ context.Context, id, _ string) (bool, error) {
	dup := s[id]
	s[id] = true
	return dup, nil
}

func TestSlackEventSkipsRedelivery(t *testing.T) {
	rec := slackapitest.New()
	store := &memoryUsers{records: map[string]users.User{}}
	o := onboarding.New(store, rec, formatter(), zap.NewNop())
	claimer := seenEvents{}
	h := NewSlackEventHandler(verifier(), o, claimer, config.EnvProd, zap.NewNop())

	body := `{"type":"event_callback","event_id":"Ev9","event":{"type":"app_home_opened","user":"U2","channel":"D2","tab":"home"}}`
	for i := 0; i < 2; i++ {
		resp, err := h.Handle(context.Background(), signedRequest(body, now))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	assert.True(t, claimer["Ev9"])
	assert.Len(t, rec.Method("UserEmail"), 1)
	assert.Contains(t, store.records, "prod/U2")
}

func TestSlackEventRejectsStaleRequest(t *testing.T) {
	h := NewSlackEventHandler(verifier(), nil, nil, config.EnvProd, zap.NewNop())
	body := `{"token":"tok","challenge":"abc","type":"url_verification"}`

	resp, err := h.Handle(context.Background(), signedRequest(body, now.Add(-10*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAskPostsProcessingAndInvokesChatSync(t *testing.T) {
	rec := slackapitest.New()
	inv := &recordingInvoker{}

	err := newAsk(t, rec, inv).Handle(context.Background(), dispatch.WorkerPayload{
		Body: formBody(`ask "` + question + `"`),
		Env:  config.EnvDev,
	})
	require.NoError(t, err)

	posts := rec.Method("PostMessage")
	require.Len(t, posts, 1)
	assert.Equal(t, "C1", posts[0].ChannelID)
	assert.Equal(t, "Processing...", posts[0].Text)
	assert.Len(t, posts[0].Blocks.BlockSet, 2)

	require.Len(t, inv.inputs, 1)
	assert.Equal(t, "fn-chat-sync", aws.ToString(inv.inputs[0].FunctionName))
	assert.Equal(t, "dev", aws.ToString(inv.inputs[0].Qualifier))

	var p dispatch.ChatSyncPayload
	require.NoError(t, json.Unmarshal(inv.inputs[0].Payload, &p))
	assert.Equal(t, dispatch.ChatSyncPayload{
		Text:      question,
		TS:        "1749383429.000001",
		ChannelID: "C1",
		Env:       config.EnvDev,
	}, p)
}

func TestAskRevalidatesForwardedCommand(t *testing.T) {
	rec := slackapitest.New()
	inv := &recordingInvoker{}

	err := newAsk(t, rec, inv).Handle(context.Background(), dispatch.WorkerPayload{Body: formBody(`ask "hi"`)})
	require.NoError(t, err)

	eph := rec.Method("PostEphemeral")
	require.Len(t, eph, 1)
	assert.Equal(t, "U1", eph[0].UserID)
	assert.Equal(t, "The input text is too short.", eph[0].Text)
	assert.Empty(t, rec.Method("PostMessage"))
	assert.Empty(t, inv.inputs)
}

func TestAskSkipsChatSyncWhenPostFails(t *testing.T) {
	rec := slackapitest.New()
	rec.Fail["PostMessage"] = "not_in_channel"
	inv := &recordingInvoker{}

	err := newAsk(t, rec, inv).Handle(context.Background(), dispatch.WorkerPayload{Body: formBody(`ask "` + question + `"`)})
	require.NoError(t, err)
	assert.Empty(t, inv.inputs)
}

func TestAskShowsErrorWhenInvokeFails(t *testing.T) {
	rec := slackapitest.New()
	inv := &recordingInvoker{err: errors.New("throttled")}

	err := newAsk(t, rec, inv).Handle(context.Background(), dispatch.WorkerPayload{Body: formBody(`ask "` + question + `"`)})
	require.NoError(t, err)

	updates := rec.Method("UpdateMessage")
	require.Len(t, updates, 1)
	assert.Equal(t, "1749383429.000001", updates[0].TS)
	assert.Equal(t, answerFailedText, updates[0].Text)
}

func TestAskRejectsMalformedPayload(t *testing.T) {
	rec := slackapitest.New()
	err := newAsk(t, rec, &recordingInvoker{}).Handle(context.Background(), dispatch.WorkerPayload{Body: "%zz"})
	assert.Error(t, err)
	assert.Empty(t, rec.Calls)
}

func TestHelpPostsEphemeral(t *testing.T) {
	rec := slackapitest.New()
	table, v := validator(t)
	h := NewHelpHandler(table, v, rec, formatter(), "/qbot", config.EnvProd, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), dispatch.WorkerPayload{Body: formBody("help")}))

	eph := rec.Method("PostEphemeral")
	require.Len(t, eph, 1)
	assert.Equal(t, "Application help", eph[0].Text)
	assert.Equal(t, "C1", eph[0].ChannelID)
	assert.Equal(t, "U1", eph[0].UserID)
	assert.NotEmpty(t, eph[0].Blocks.BlockSet)
}

func newChatSync(rec *slackapitest.Recorder, a answer.Answerer) *ChatSyncHandler {
	log := zap.NewNop()
	return NewChatSyncHandler(a, formatter(), rec, alerts.New(nil, "", "chat-sync", log), config.EnvProd, log)
}

func TestChatSyncUpdatesMessageWithAnswer(t *testing.T) {
	rec := slackapitest.New()
	a := &stubAnswerer{ans: &answer.Answer{
		Text: "Open the IT portal.",
		Sources: []answer.Source{
			{Title: "VPN", URL: "https://wiki/vpn"},
			{Title: "VPN", URL: "https://wiki/vpn-2"},
			{Title: "Raw", URL: "https://internal-bucket.s3.amazonaws.com/raw.pdf"},
			{Title: "Portal", URL: "https://wiki/portal"},
			{Title: "FAQ", URL: "https://wiki/faq"},
			{Title: "Extra", URL: "https://wiki/extra"},
		},
	}}

	p := dispatch.ChatSyncPayload{Text: question, TS: "1.000001", ChannelID: "C1", Env: config.EnvDev}
	require.NoError(t, newChatSync(rec, a).Handle(context.Background(), p))

	require.Len(t, a.asked, 1)
	assert.Equal(t, answer.Query{Env: config.EnvDev, Question: question}, a.asked[0])

	updates := rec.Method("UpdateMessage")
	require.Len(t, updates, 1)
	assert.Equal(t, "1.000001", updates[0].TS)
	assert.Equal(t, "Open the IT portal.", updates[0].Text)

	set := updates[0].Blocks.BlockSet
	require.Len(t, set, 4)
	sources, ok := set[3].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "*Sources*\n• <https://wiki/vpn|VPN>\n• <https://wiki/portal|Portal>\n• <https://wiki/faq|FAQ>", sources.Text.Text)
}

func TestChatSyncShowsErrorOnFailure(t *testing.T) {
	tests := map[string]struct {
		answerer *stubAnswerer
		fail     string
		updates  int
	}{
		"answer service down": {&stubAnswerer{err: errors.New("AccessDenied")}, "", 1},
		"update rejected":     {&stubAnswerer{ans: &answer.Answer{Text: "ok"}}, "message_not_found", 2},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := slackapitest.New()
			if tt.fail != "" {
				rec.Fail["UpdateMessage"] = tt.fail
			}
			p := dispatch.ChatSyncPayload{Text: question, TS: "1.000001", ChannelID: "C1"}
			require.NoError(t, newChatSync(rec, tt.answerer).Handle(context.Background(), p))

			updates := rec.Method("UpdateMessage")
			require.Len(t, updates, tt.updates)
			last := updates[len(updates)-1]
			assert.Equal(t, answerFailedText, last.Text)
			assert.Equal(t, "1.000001", last.TS)
		})
	}
}

func TestChatSyncRequiresTarget(t *testing.T) {
	rec := slackapitest.New()
	err := newChatSync(rec, &stubAnswerer{}).Handle(context.Background(), dispatch.ChatSyncPayload{Text: question})
	assert.Error(t, err)
	assert.Empty(t, rec.Calls)
}

func TestTSFromPermalink(t *testing.T) {
	ts, err := TSFromPermalink("https://acme.slack.com/archives/C0123/p1749383429772189")
	require.NoError(t, err)
	assert.Equal(t, "1749383429.772189", ts)

	ts, err = TSFromPermalink("https://acme.slack.com/archives/C0123/p1749383429772189?thread_ts=1749383400.000100")
	require.NoError(t, err)
	assert.Equal(t, "1749383429.772189", ts)

	for _, bad := range []string{"", "https://acme.slack.com/archives/C0123", "https://acme.slack.com/archives/C0123/p123", "https://x/p17493834297721a9"} {
		_, err := TSFromPermalink(bad)
		assert.Error(t, err, bad)
	}
}

func TestClearHistoryDeletesAndSkips(t *testing.T) {
	rec := slackapitest.New()
	h := NewClearHistoryHandler(rec, zap.NewNop())
	var pauses []time.Duration
	h.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	out, err := h.Handle(context.Background(), dispatch.ClearHistoryPayload{
		ChannelID: "C1",
		MessageURLs: []string{
			"https://acme.slack.com/archives/C1/p1749383429772189",
			"not a permalink",
			"https://acme.slack.com/archives/C1/p1749383430000001",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ClearHistoryResult{Deleted: 2, Skipped: 1}, out)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, pauses)

	deletes := rec.Method("DeleteMessage")
	require.Len(t, deletes, 2)
	assert.Equal(t, "1749383429.772189", deletes[0].TS)
	assert.Equal(t, "1749383430.000001", deletes[1].TS)
}

func TestClearHistoryContinuesAfterDeleteErrors(t *testing.T) {
	rec := slackapitest.New()
	rec.Fail["DeleteMessage"] = "cant_delete_message"
	h := NewClearHistoryHandler(rec, zap.NewNop())
	h.sleep = func(context.Context, time.Duration) error { return nil }

	out, err := h.Handle(context.Background(), dispatch.ClearHistoryPayload{
		ChannelID:   "C1",
		MessageURLs: []string{"https://a/p1749383429772189", "https://a/p1749383429772190"},
	})
	require.NoError(t, err)
	assert.Equal(t, ClearHistoryResult{Skipped: 2}, out)
	assert.Len(t, rec.Method("DeleteMessage"), 2)
}

func TestHealth(t *testing.T) {
	resp, err := Health("qslack")(context.Background(), events.APIGatewayV2HTTPRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true,"service":"qslack"}`, resp.Body)
}
