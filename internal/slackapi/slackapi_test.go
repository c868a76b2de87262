package slackapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSlack answers Web API calls with canned JSON and records the form
// values of each call.
type fakeSlack struct {
	mu       sync.Mutex
	replies  map[string]string
	requests map[string]map[string]string
}

func newFakeSlack(t *testing.T, replies map[string]string) (*fakeSlack, *Client) {
	t.Helper()
	f := &fakeSlack{replies: replies, requests: map[string]map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, New("xoxb-test", slack.OptionAPIURL(srv.URL+"/"))
}

func (f *fakeSlack) serve(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[1:]
	values := map[string]string{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		for k, v := range body {
			b, _ := json.Marshal(v)
			values[k] = string(b)
		}
	} else {
		_ = r.ParseForm()
		for k := range r.Form {
			values[k] = r.Form.Get(k)
		}
	}

	f.mu.Lock()
	f.requests[method] = values
	reply, ok := f.replies[method]
	f.mu.Unlock()

	if !ok {
		reply = `{"ok":false,"error":"unknown_method"}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(reply))
}

func (f *fakeSlack) request(method string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method]
}

func sampleBlocks() slack.Blocks {
	return slack.Blocks{BlockSet: []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "hello", false, false), nil, nil),
	}}
}

func TestPostMessage(t *testing.T) {
	f, c := newFakeSlack(t, map[string]string{
		"chat.postMessage": `{"ok":true,"channel":"C1","ts":"1749383429.772189"}`,
	})

	res := c.PostMessage(context.Background(), "C1", sampleBlocks(), "Processing...")
	assert.Equal(t, Result{OK: true, Channel: "C1", Timestamp: "1749383429.772189"}, res)

	sent := f.request("chat.postMessage")
	assert.Equal(t, "C1", sent["channel"])
	assert.Equal(t, "Processing...", sent["text"])
	assert.Contains(t, sent["blocks"], "hello")
}

func TestSlackErrorsBecomeResults(t *testing.T) {
	_, c := newFakeSlack(t, map[string]string{
		"chat.update":        `{"ok":false,"error":"message_not_found"}`,
		"chat.postEphemeral": `{"ok":false,"error":"user_not_in_channel"}`,
		"chat.delete":        `{"ok":false,"error":"cant_delete_message"}`,
	})
	ctx := context.Background()

	res := c.UpdateMessage(ctx, "C1", "1.1", sampleBlocks(), "x")
	assert.False(t, res.OK)
	assert.Equal(t, "message_not_found", res.Error)

	res = c.PostEphemeral(ctx, "C1", "U1", sampleBlocks(), "x")
	assert.False(t, res.OK)
	assert.Equal(t, "user_not_in_channel", res.Error)

	res = c.DeleteMessage(ctx, "C1", "1.1")
	assert.False(t, res.OK)
	assert.Equal(t, "C1", res.Channel)
}

func TestUpdateAndDelete(t *testing.T) {
	f, c := newFakeSlack(t, map[string]string{
		"chat.update": `{"ok":true,"channel":"C1","ts":"1.1","text":"answer"}`,
		"chat.delete": `{"ok":true,"channel":"C1","ts":"1.1"}`,
	})
	ctx := context.Background()

	res := c.UpdateMessage(ctx, "C1", "1.1", sampleBlocks(), "answer")
	assert.True(t, res.OK)
	assert.Equal(t, "1.1", f.request("chat.update")["ts"])

	res = c.DeleteMessage(ctx, "C1", "1.1")
	assert.True(t, res.OK)
	assert.Equal(t, "1.1", f.request("chat.delete")["ts"])
}

func TestUserEmail(t *testing.T) {
	f, c := newFakeSlack(t, map[string]string{
		"users.profile.get": `{"ok":true,"profile":{"email":"alice@example.com","real_name":"Alice"}}`,
	})

	email, err := c.UserEmail(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
	assert.Equal(t, "U1", f.request("users.profile.get")["user"])
}

func TestPublishHome(t *testing.T) {
	f, c := newFakeSlack(t, map[string]string{
		"views.publish": `{"ok":true,"view":{"id":"V1","type":"home"}}`,
	})

	require.NoError(t, c.PublishHome(context.Background(), "U1", sampleBlocks()))
	sent := f.request("views.publish")
	assert.Equal(t, `"U1"`, sent["user_id"])
	assert.Contains(t, sent["view"], `"type":"home"`)
}

func TestPublishHomeError(t *testing.T) {
	_, c := newFakeSlack(t, map[string]string{
		"views.publish": `{"ok":false,"error":"invalid_blocks"}`,
	})
	err := c.PublishHome(context.Background(), "U1", sampleBlocks())
	assert.ErrorContains(t, err, "invalid_blocks")
}
