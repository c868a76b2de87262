package handlers

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"qslack/internal/pipeline"
)

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

// Health returns a liveness handler for service.
func Health(service string) func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return pipeline.JSON(http.StatusOK, HealthResponse{OK: true, Service: service}), nil
	}
}
