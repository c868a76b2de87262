// Package secrets reads named secrets (the Slack signing key and bot token)
// from Secrets Manager or SSM Parameter Store and keeps them for the life of
// the process.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SecretsManager struct {
	client SecretsManagerClient
}

func NewSecretsManager(client SecretsManagerClient) *SecretsManager {
	return &SecretsManager{client: client}
}

func (s *SecretsManager) Get(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("secretsmanager GetSecretValue %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	return aws.ToString(out.SecretString), nil
}

// ParameterStore resolves a secret name to the SecureString parameter
// "<prefix>/<name>".
type ParameterStore struct {
	client SSMClient
	prefix string
}

func NewParameterStore(client SSMClient, prefix string) *ParameterStore {
	return &ParameterStore{client: client, prefix: strings.TrimRight(prefix, "/")}
}

func (p *ParameterStore) Get(ctx context.Context, name string) (string, error) {
	path := name
	if p.prefix != "" {
		path = p.prefix + "/" + name
	}
	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm GetParameter %s: %w", path, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", path)
	}
	return aws.ToString(out.Parameter.Value), nil
}

var ErrEmptySecret = errors.New("secret is empty")

// Cache memoizes successful lookups. Failures are not cached so that a
// later invocation can retry.
type Cache struct {
	store  Store
	mu     sync.Mutex
	values map[string]string
}

func NewCache(store Store) *Cache {
	return &Cache{store: store, values: map[string]string{}}
}

func (c *Cache) Get(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.values[name]; ok {
		return v, nil
	}
	v, err := c.store.Get(ctx, name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s: %w", name, ErrEmptySecret)
	}
	c.values[name] = v
	return v, nil
}
