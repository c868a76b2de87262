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

	app, err := bootstrap.New(ctx, "help")
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	client, err := app.Slack(ctx)
	if err != nil {
		log.Fatalf("slack: %v", err)
	}
	table, validator, err := app.Policy()
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	h := handlers.NewHelpHandler(table, validator, client, app.Formatter(), app.Config.SlashCommand, app.Config.DefaultEnv, app.Log)
	lambda.Start(h.Handle)
}
