package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"qslack/internal/handlers"
)

func main() {
	lambda.Start(handlers.Health("qslack"))
}
