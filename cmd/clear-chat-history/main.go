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

	app, err := bootstrap.New(ctx, "clear-chat-history")
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	client, err := app.Slack(ctx)
	if err != nil {
		log.Fatalf("slack: %v", err)
	}

	lambda.Start(handlers.NewClearHistoryHandler(client, app.Log).Handle)
}
