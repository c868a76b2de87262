package answer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

type CacheClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Cached serves repeated questions from DynamoDB. Items expire through the
// table's TTL on ExpiresAt. Cache failures never fail a question.
type Cached struct {
	inner     Answerer
	ddb       CacheClient
	table     string
	namespace string
	ttl       time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewCached wraps inner. namespace separates answers of different backends
// sharing one table, for example the Q Business application ID.
func NewCached(inner Answerer, ddb CacheClient, table, namespace string, ttl time.Duration, log *zap.Logger) *Cached {
	return &Cached{
		inner:     inner,
		ddb:       ddb,
		table:     table,
		namespace: namespace,
		ttl:       ttl,
		now:       time.Now,
		log:       log,
	}
}

func NormalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func HashKeyMaterial(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (c *Cached) keys(q Query) (pk, sk string) {
	pk = "ANSWER#" + q.Env.String()
	sk = "Q#" + HashKeyMaterial("ns="+c.namespace+"|q="+NormalizeQuestion(q.Question))
	return pk, sk
}

func (c *Cached) Ask(ctx context.Context, q Query) (*Answer, error) {
	pk, sk := c.keys(q)

	if hit, ok := c.get(ctx, pk, sk); ok {
		c.log.Info("answer cache hit", zap.String("env", q.Env.String()))
		return hit, nil
	}

	ans, err := c.inner.Ask(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := c.put(ctx, pk, sk, ans); err != nil {
		c.log.Warn("answer cache write failed", zap.Error(err))
	}
	return ans, nil
}

func (c *Cached) get(ctx context.Context, pk, sk string) (*Answer, bool) {
	out, err := c.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: pk},
			"SK": &ddbtypes.AttributeValueMemberS{Value: sk},
		},
		ConsistentRead: aws.Bool(false),
	})
	if err != nil {
		c.log.Warn("answer cache read failed", zap.Error(err))
		return nil, false
	}
	if len(out.Item) == 0 {
		return nil, false
	}

	// TTL deletion lags, so expiry is checked here too.
	if exp, ok := out.Item["ExpiresAt"].(*ddbtypes.AttributeValueMemberN); ok {
		if n, err := strconv.ParseInt(exp.Value, 10, 64); err == nil && n <= c.now().UTC().Unix() {
			return nil, false
		}
	}

	payloadAttr, ok := out.Item["Payload"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return nil, false
	}
	var ans Answer
	if err := json.Unmarshal([]byte(payloadAttr.Value), &ans); err != nil {
		return nil, false
	}
	return &ans, true
}

func (c *Cached) put(ctx context.Context, pk, sk string, ans *Answer) error {
	b, err := json.Marshal(ans)
	if err != nil {
		return err
	}
	now := c.now().UTC().Unix()
	exp := now + int64(c.ttl/time.Second)

	_, err = c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]ddbtypes.AttributeValue{
			"PK":        &ddbtypes.AttributeValueMemberS{Value: pk},
			"SK":        &ddbtypes.AttributeValueMemberS{Value: sk},
			"ExpiresAt": &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(exp, 10)},
			"Payload":   &ddbtypes.AttributeValueMemberS{Value: string(b)},
			"CreatedAt": &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("cache PutItem: %w", err)
	}
	return nil
}
