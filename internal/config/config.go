package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	AnswerBackendQBusiness = "qbusiness"
	AnswerBackendBedrock   = "bedrock"

	SecretsBackendSecretsManager = "secretsmanager"
	SecretsBackendSSM            = "ssm"
)

type FunctionsConfig struct {
	Ask      string
	Help     string
	ChatSync string
}

type SecretsConfig struct {
	Backend     string
	SSMPrefix   string
	SigningName string
	TokenName   string
}

type AnswerConfig struct {
	Backend         string
	ApplicationID   string
	BedrockModelID  string
	CacheTable      string
	CacheTTLSeconds int64
}

type TemplatesConfig struct {
	Bucket string
	Prefix string
}

type Config struct {
	SlashCommand string
	DefaultEnv   Env
	LogLevel     string
	PolicyFile   string

	// Internal bucket; citations pointing into it are never shown.
	BucketName   string
	MaxCitations int

	AlertsTopicArn string

	// Conditional-put table recording handled Events API deliveries.
	EventsDedupeTable string

	UsersTables map[Env]string
	Functions   FunctionsConfig
	Secrets     SecretsConfig
	Answer      AnswerConfig
	Templates   TemplatesConfig
}

// Load reads the process configuration from the environment. A local .env
// file is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	defaultEnv := DetectEnv()
	if v := strings.TrimSpace(os.Getenv("DEFAULT_ENV")); v != "" {
		e, err := ParseEnv(v)
		if err != nil {
			return nil, fmt.Errorf("DEFAULT_ENV: %w", err)
		}
		defaultEnv = e
	}

	maxCitations, err := getEnvInt("MAX_CITATIONS", 3)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvInt("ANSWER_CACHE_TTL_SECONDS", 600)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SlashCommand:      getEnvWithDefault("SLASH_COMMAND", "/my-slash-command"),
		DefaultEnv:        defaultEnv,
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		PolicyFile:        os.Getenv("POLICY_FILE"),
		BucketName:        os.Getenv("BUCKET_NAME"),
		MaxCitations:      maxCitations,
		AlertsTopicArn:    os.Getenv("ALERTS_TOPIC_ARN"),
		EventsDedupeTable: os.Getenv("EVENTS_DEDUPE_TABLE"),
		UsersTables: map[Env]string{
			EnvDev:  os.Getenv("TABLE_USERS_DEV"),
			EnvProd: os.Getenv("TABLE_USERS_PROD"),
		},
		Functions: FunctionsConfig{
			Ask:      os.Getenv("FUNC_ASK"),
			Help:     os.Getenv("FUNC_HELP"),
			ChatSync: os.Getenv("FUNC_CHAT_SYNC"),
		},
		Secrets: SecretsConfig{
			Backend:     getEnvWithDefault("SECRETS_BACKEND", SecretsBackendSecretsManager),
			SSMPrefix:   os.Getenv("SSM_PREFIX"),
			SigningName: getEnvWithDefault("SECRET_SIGNING_NAME", "SlackSigningSecret"),
			TokenName:   getEnvWithDefault("SECRET_TOKEN_NAME", "SlackToken"),
		},
		Answer: AnswerConfig{
			Backend:         getEnvWithDefault("ANSWER_BACKEND", AnswerBackendQBusiness),
			ApplicationID:   os.Getenv("APP_ID"),
			BedrockModelID:  os.Getenv("BEDROCK_MODEL_ID"),
			CacheTable:      os.Getenv("ANSWER_CACHE_TABLE"),
			CacheTTLSeconds: int64(cacheTTL),
		},
		Templates: TemplatesConfig{
			Bucket: os.Getenv("TEMPLATES_BUCKET"),
			Prefix: os.Getenv("TEMPLATES_PREFIX"),
		},
	}

	switch cfg.Secrets.Backend {
	case SecretsBackendSecretsManager, SecretsBackendSSM:
	default:
		return nil, fmt.Errorf("SECRETS_BACKEND must be %q or %q, got %q",
			SecretsBackendSecretsManager, SecretsBackendSSM, cfg.Secrets.Backend)
	}
	switch cfg.Answer.Backend {
	case AnswerBackendQBusiness, AnswerBackendBedrock:
	default:
		return nil, fmt.Errorf("ANSWER_BACKEND must be %q or %q, got %q",
			AnswerBackendQBusiness, AnswerBackendBedrock, cfg.Answer.Backend)
	}

	return cfg, nil
}

// UsersTable returns the users table configured for env.
func (c *Config) UsersTable(env Env) (string, error) {
	t := strings.TrimSpace(c.UsersTables[env])
	if t == "" {
		return "", fmt.Errorf("TABLE_USERS_%s is not set", strings.ToUpper(env.String()))
	}
	return t, nil
}

// Require returns an error naming the first empty value.
func Require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%s is not set", pairs[i])
		}
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
