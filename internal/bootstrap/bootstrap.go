// Package bootstrap builds the dependencies shared by the Lambda entry
// points from the process configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/qbusiness"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"qslack/internal/alerts"
	"qslack/internal/answer"
	"qslack/internal/blocks"
	"qslack/internal/config"
	"qslack/internal/dedupe"
	"qslack/internal/dispatch"
	"qslack/internal/logging"
	"qslack/internal/onboarding"
	"qslack/internal/policy"
	"qslack/internal/secrets"
	"qslack/internal/signature"
	"qslack/internal/slackapi"
	"qslack/internal/users"
)

type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Function string

	aws     aws.Config
	secrets secrets.Store
	ddb     *dynamodb.Client
}

// New loads configuration, the logger and the AWS credentials of the
// execution role.
func New(ctx context.Context, function string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, function)
	if err != nil {
		return nil, err
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var store secrets.Store
	switch cfg.Secrets.Backend {
	case config.SecretsBackendSSM:
		store = secrets.NewParameterStore(ssm.NewFromConfig(awsCfg), cfg.Secrets.SSMPrefix)
	default:
		store = secrets.NewSecretsManager(secretsmanager.NewFromConfig(awsCfg))
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Function: function,
		aws:      awsCfg,
		secrets:  secrets.NewCache(store),
	}, nil
}

func (a *App) dynamo() *dynamodb.Client {
	if a.ddb == nil {
		a.ddb = dynamodb.NewFromConfig(a.aws)
	}
	return a.ddb
}

func (a *App) Verifier(ctx context.Context) (*signature.Verifier, error) {
	secret, err := a.secrets.Get(ctx, a.Config.Secrets.SigningName)
	if err != nil {
		return nil, fmt.Errorf("signing secret: %w", err)
	}
	return signature.NewVerifier(secret), nil
}

func (a *App) Slack(ctx context.Context) (*slackapi.Client, error) {
	token, err := a.secrets.Get(ctx, a.Config.Secrets.TokenName)
	if err != nil {
		return nil, fmt.Errorf("slack token: %w", err)
	}
	return slackapi.New(token), nil
}

// Formatter renders the embedded block templates, or the ones under
// TEMPLATES_BUCKET when it is set.
func (a *App) Formatter() *blocks.Formatter {
	var src blocks.Source = blocks.EmbeddedSource{}
	if a.Config.Templates.Bucket != "" {
		src = blocks.NewS3Source(s3.NewFromConfig(a.aws), a.Config.Templates.Bucket, a.Config.Templates.Prefix, src)
	}
	return blocks.NewFormatter(blocks.NewRenderer(src), a.Config.SlashCommand, a.Config.BucketName, a.Config.MaxCitations)
}

func (a *App) Policy() (*policy.Table, *policy.Validator, error) {
	table, err := policy.LoadFile(a.Config.PolicyFile)
	if err != nil {
		return nil, nil, err
	}
	return table, policy.NewValidator(table, a.Config.SlashCommand), nil
}

// Dispatcher routes ask and help to their worker functions.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return dispatch.New(lambda.NewFromConfig(a.aws), map[string]string{
		policy.OpAsk:  a.Config.Functions.Ask,
		policy.OpHelp: a.Config.Functions.Help,
	}, a.Log)
}

func (a *App) Alerts() *alerts.Notifier {
	var p alerts.Publisher
	if a.Config.AlertsTopicArn != "" {
		p = sns.NewFromConfig(a.aws)
	}
	return alerts.New(p, a.Config.AlertsTopicArn, a.Function, a.Log)
}

// Claimer is a no-op when EVENTS_DEDUPE_TABLE is unset.
func (a *App) Claimer() *dedupe.Claimer {
	return dedupe.NewClaimer(a.dynamo(), a.Config.EventsDedupeTable, dedupe.DefaultTTL)
}

func (a *App) Onboarder(messenger slackapi.Messenger) *onboarding.Onboarder {
	store := users.NewStore(a.dynamo(), a.Config.UsersTable)
	return onboarding.New(store, messenger, a.Formatter(), a.Log)
}

// Answerer returns the configured answer backend, behind the DynamoDB
// cache when ANSWER_CACHE_TABLE is set.
func (a *App) Answerer() (answer.Answerer, error) {
	var (
		inner     answer.Answerer
		namespace string
	)
	switch a.Config.Answer.Backend {
	case config.AnswerBackendBedrock:
		if err := config.Require("BEDROCK_MODEL_ID", a.Config.Answer.BedrockModelID); err != nil {
			return nil, err
		}
		inner = answer.NewBedrock(bedrockruntime.NewFromConfig(a.aws), a.Config.Answer.BedrockModelID)
		namespace = "bedrock:" + a.Config.Answer.BedrockModelID
	default:
		if err := config.Require("APP_ID", a.Config.Answer.ApplicationID); err != nil {
			return nil, err
		}
		inner = answer.NewQBusiness(qbusiness.NewFromConfig(a.aws), a.Config.Answer.ApplicationID)
		namespace = "qbusiness:" + a.Config.Answer.ApplicationID
	}

	if a.Config.Answer.CacheTable == "" {
		return inner, nil
	}
	ttl := time.Duration(a.Config.Answer.CacheTTLSeconds) * time.Second
	return answer.NewCached(inner, a.dynamo(), a.Config.Answer.CacheTable, namespace, ttl, a.Log), nil
}
