// Package dedupe records deliveries already handled so that Slack retries
// are processed once.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Records are kept long enough to outlive Slack's retry schedule.
const DefaultTTL = 24 * time.Hour

type PutAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type Claimer struct {
	ddb   PutAPI
	table string
	ttl   time.Duration
	now   func() time.Time
}

func NewClaimer(ddb PutAPI, table string, ttl time.Duration) *Claimer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Claimer{ddb: ddb, table: strings.TrimSpace(table), ttl: ttl, now: time.Now}
}

// Claim returns true when id was claimed before, in which case the caller
// should stop. Without a table or an id nothing is recorded.
func (c *Claimer) Claim(ctx context.Context, id, kind string) (bool, error) {
	id = strings.TrimSpace(id)
	if c.table == "" || id == "" {
		return false, nil
	}

	now := c.now().UTC()
	_, err := c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: "EV#" + id},
			"Kind":      &types.AttributeValueMemberS{Value: kind},
			"CreatedAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			"ExpiresAt": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(c.ttl).Unix(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return true, nil
		}
		return false, fmt.Errorf("claim %s: %w", id, err)
	}
	return false, nil
}
