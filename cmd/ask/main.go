package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"qslack/internal/bootstrap"
	"qslack/internal/config"
	"qslack/internal/handlers"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "ask")
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	if err := config.Require("FUNC_CHAT_SYNC", app.Config.Functions.ChatSync); err != nil {
		log.Fatalf("config: %v", err)
	}
	client, err := app.Slack(ctx)
	if err != nil {
		log.Fatalf("slack: %v", err)
	}
	_, validator, err := app.Policy()
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	h := handlers.NewAskHandler(
		validator,
		client,
		app.Formatter(),
		app.Dispatcher(),
		app.Config.Functions.ChatSync,
		app.Alerts(),
		app.Config.SlashCommand,
		app.Config.DefaultEnv,
		app.Log,
	)
	lambda.Start(h.Handle)
}
