package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"qslack/internal/bootstrap"
	"qslack/internal/handlers"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "chat-sync")
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	client, err := app.Slack(ctx)
	if err != nil {
		log.Fatalf("slack: %v", err)
	}
	answerer, err := app.Answerer()
	if err != nil {
		log.Fatalf("answerer: %v", err)
	}

	h := handlers.NewChatSyncHandler(answerer, app.Formatter(), client, app.Alerts(), app.Config.DefaultEnv, app.Log)
	lambda.Start(h.Handle)
}
