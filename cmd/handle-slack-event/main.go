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

	app, err := bootstrap.New(ctx, "handle-slack-event")
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	verifier, err := app.Verifier(ctx)
	if err != nil {
		log.Fatalf("verifier: %v", err)
	}
	client, err := app.Slack(ctx)
	if err != nil {
		log.Fatalf("slack: %v", err)
	}

	h := handlers.NewSlackEventHandler(verifier, app.Onboarder(client), app.Claimer(), app.Config.DefaultEnv, app.Log)
	lambda.Start(h.Handle)
}
