package dispatch

import "qslack/internal/config"

// WorkerPayload is what the slash command endpoint forwards to the ask and
// help functions: the raw webhook body and the environment it resolved.
type WorkerPayload struct {
	Body string     `json:"body"`
	Env  config.Env `json:"env"`
}

// ChatSyncPayload asks chat-sync to answer Text and replace the message at
// TS in ChannelID.
type ChatSyncPayload struct {
	Text      string     `json:"text"`
	TS        string     `json:"ts"`
	ChannelID string     `json:"channel_id"`
	Env       config.Env `json:"env"`
}

// ClearHistoryPayload lists bot messages to delete by permalink.
type ClearHistoryPayload struct {
	ChannelID   string   `json:"channel_id"`
	MessageURLs []string `json:"message_urls"`
}

// EnvOr returns env when it is valid and def otherwise. Payloads written by
// older dispatchers carry no env.
func EnvOr(env, def config.Env) config.Env {
	if env.Valid() {
		return env
	}
	return def
}
