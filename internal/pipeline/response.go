package pipeline

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// Response is what every webhook handler returns to API Gateway.
type Response = events.APIGatewayV2HTTPResponse

func JSON(status int, v any) Response {
	b, _ := json.Marshal(v)
	return Response{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(b),
	}
}

// Ack acknowledges a webhook with an empty 200.
func Ack() Response {
	return Response{StatusCode: http.StatusOK}
}

// Ephemeral replies to a slash command with a message only the caller sees.
func Ephemeral(text string) Response {
	return JSON(http.StatusOK, map[string]string{
		"response_type": "ephemeral",
		"text":          text,
	})
}

// Unauthorized never says why a request was rejected.
func Unauthorized() Response {
	return Response{
		StatusCode: http.StatusUnauthorized,
		Headers: map[string]string{
			"Content-Type": "text/plain",
		},
		Body: "Invalid Slack signature.",
	}
}
