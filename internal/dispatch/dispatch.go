// Package dispatch hands validated work to downstream functions without
// waiting for them.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"go.uber.org/zap"

	"qslack/internal/config"
)

var ErrNoTarget = errors.New("no downstream function for operation")

type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

type Dispatcher struct {
	invoker Invoker
	targets map[string]string
	log     *zap.Logger
}

// New maps operation names to function names. Functions are invoked at
// the alias named after the environment.
func New(invoker Invoker, targets map[string]string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{invoker: invoker, targets: targets, log: log}
}

// Target returns the function serving op.
func (d *Dispatcher) Target(op string) (string, error) {
	fn, ok := d.targets[op]
	if !ok || fn == "" {
		return "", fmt.Errorf("%w %q", ErrNoTarget, op)
	}
	return fn, nil
}

// Dispatch triggers the function serving op. It returns once the invoke
// has been accepted; what the function does afterwards is not observed.
func (d *Dispatcher) Dispatch(ctx context.Context, op string, env config.Env, payload any) error {
	fn, err := d.Target(op)
	if err != nil {
		return err
	}
	return d.Invoke(ctx, fn, env, payload)
}

// Invoke sends payload as JSON to function:env with InvocationType Event.
func (d *Dispatcher) Invoke(ctx context.Context, function string, env config.Env, payload any) error {
	if !env.Valid() {
		return fmt.Errorf("invoke %s: invalid environment %q", function, env)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", function, err)
	}

	out, err := d.invoker.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(function),
		Qualifier:      aws.String(env.String()),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        body,
	})
	if err != nil {
		return fmt.Errorf("invoke %s:%s: %w", function, env, err)
	}

	d.log.Info("downstream invoked",
		zap.String("function", function),
		zap.String("env", env.String()),
		zap.Int32("status", out.StatusCode),
	)
	return nil
}
