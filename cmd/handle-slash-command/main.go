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

	app, err := bootstrap.New(ctx, "handle-slash-command")
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	if err := config.Require("FUNC_ASK", app.Config.Functions.Ask, "FUNC_HELP", app.Config.Functions.Help); err != nil {
		log.Fatalf("config: %v", err)
	}

	verifier, err := app.Verifier(ctx)
	if err != nil {
		log.Fatalf("verifier: %v", err)
	}
	_, validator, err := app.Policy()
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	h := handlers.NewSlashCommandHandler(verifier, validator, app.Dispatcher(), app.Config.DefaultEnv, app.Config.SlashCommand, app.Log)
	lambda.Start(h.Handle)
}
