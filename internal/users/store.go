package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/mo"

	"qslack/internal/config"
)

const KeyUsername = "username"

type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// User is a Slack user the app has onboarded. Username is the partition key.
type User struct {
	Username  string `dynamodbav:"username"`
	ChannelID string `dynamodbav:"channel_id"`
	UserID    string `dynamodbav:"user_id"`
	CreatedAt string `dynamodbav:"created_at,omitempty"`
}

// TableFunc names the users table of an environment.
type TableFunc func(env config.Env) (string, error)

// Store keeps one users table per environment.
type Store struct {
	ddb   DynamoAPI
	table TableFunc
	now   func() time.Time
}

func NewStore(ddb DynamoAPI, table TableFunc) *Store {
	return &Store{ddb: ddb, table: table, now: time.Now}
}

func (s *Store) Get(ctx context.Context, env config.Env, username string) (mo.Option[User], error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return mo.None[User](), nil
	}
	tbl, err := s.table(env)
	if err != nil {
		return mo.None[User](), err
	}

	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tbl),
		Key: map[string]types.AttributeValue{
			KeyUsername: &types.AttributeValueMemberS{Value: username},
		},
	})
	if err != nil {
		return mo.None[User](), fmt.Errorf("users GetItem: %w", err)
	}
	if len(out.Item) == 0 {
		return mo.None[User](), nil
	}

	var u User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return mo.None[User](), fmt.Errorf("users unmarshal: %w", err)
	}
	return mo.Some(u), nil
}

// Put writes u, replacing any record with the same username.
func (s *Store) Put(ctx context.Context, env config.Env, u User) error {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return fmt.Errorf("users Put: empty username")
	}
	tbl, err := s.table(env)
	if err != nil {
		return err
	}
	if u.CreatedAt == "" {
		u.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}

	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("users marshal: %w", err)
	}
	if _, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tbl),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("users PutItem: %w", err)
	}
	return nil
}
