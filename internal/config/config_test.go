package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	e, err := ParseEnv(" DEV ")
	require.NoError(t, err)
	assert.Equal(t, EnvDev, e)

	e, err = ParseEnv("prod")
	require.NoError(t, err)
	assert.Equal(t, EnvProd, e)

	_, err = ParseEnv("staging")
	assert.Error(t, err)
}

func TestDetectEnv(t *testing.T) {
	t.Run("outside lambda", func(t *testing.T) {
		t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
		t.Setenv("AWS_EXECUTION_ENV", "")
		// t.Setenv cannot unset, so an empty name still counts as present.
		t.Setenv("AWS_LAMBDA_FUNCTION_VERSION", "$LATEST")
		assert.Equal(t, EnvDev, DetectEnv())
	})

	t.Run("published version", func(t *testing.T) {
		t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "ask")
		t.Setenv("AWS_LAMBDA_FUNCTION_VERSION", "7")
		assert.Equal(t, EnvProd, DetectEnv())
	})
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEFAULT_ENV", "prod")
	t.Setenv("SLASH_COMMAND", "")
	t.Setenv("MAX_CITATIONS", "")
	t.Setenv("SECRETS_BACKEND", "")
	t.Setenv("ANSWER_BACKEND", "")
	t.Setenv("TABLE_USERS_DEV", "users-dev")
	t.Setenv("TABLE_USERS_PROD", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/my-slash-command", cfg.SlashCommand)
	assert.Equal(t, EnvProd, cfg.DefaultEnv)
	assert.Equal(t, 3, cfg.MaxCitations)
	assert.Equal(t, SecretsBackendSecretsManager, cfg.Secrets.Backend)
	assert.Equal(t, "SlackSigningSecret", cfg.Secrets.SigningName)
	assert.Equal(t, AnswerBackendQBusiness, cfg.Answer.Backend)
	assert.EqualValues(t, 600, cfg.Answer.CacheTTLSeconds)

	table, err := cfg.UsersTable(EnvDev)
	require.NoError(t, err)
	assert.Equal(t, "users-dev", table)

	_, err = cfg.UsersTable(EnvProd)
	assert.EqualError(t, err, "TABLE_USERS_PROD is not set")
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"env", "DEFAULT_ENV", "qa"},
		{"citations", "MAX_CITATIONS", "zero"},
		{"secrets backend", "SECRETS_BACKEND", "vault"},
		{"answer backend", "ANSWER_BACKEND", "openai"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require("A", "x", "B", "y"))
	assert.EqualError(t, Require("A", "x", "B", " "), "B is not set")
}
