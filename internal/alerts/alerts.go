// Package alerts publishes operator notifications to an SNS topic.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"

	"qslack/internal/config"
)

// SNS subjects are limited to 100 characters.
const maxSubject = 100

type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Notifier struct {
	sns      Publisher
	topicArn string
	function string
	log      *zap.Logger
	now      func() time.Time
}

// New returns a Notifier for topicArn. With an empty topic Notify only
// logs.
func New(p Publisher, topicArn, function string, log *zap.Logger) *Notifier {
	return &Notifier{sns: p, topicArn: strings.TrimSpace(topicArn), function: function, log: log, now: time.Now}
}

type message struct {
	Function string            `json:"function"`
	Env      string            `json:"env"`
	Error    string            `json:"error"`
	At       string            `json:"at"`
	Details  map[string]string `json:"details,omitempty"`
}

// Notify reports cause. Publishing failures are logged and swallowed so an
// alert never masks the original error path.
func (n *Notifier) Notify(ctx context.Context, env config.Env, summary string, cause error, details map[string]string) {
	errText := ""
	if cause != nil {
		errText = cause.Error()
	}
	if n.topicArn == "" {
		n.log.Warn("alert not published, no topic configured",
			zap.String("summary", summary), zap.String("error", errText))
		return
	}

	body, _ := json.Marshal(message{
		Function: n.function,
		Env:      env.String(),
		Error:    errText,
		At:       n.now().UTC().Format(time.RFC3339),
		Details:  details,
	})

	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Subject:  aws.String(subject(n.function, env, summary)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"env": {DataType: aws.String("String"), StringValue: aws.String(env.String())},
		},
	})
	if err != nil {
		n.log.Error("alert publish failed", zap.String("topic", n.topicArn), zap.Error(err))
	}
}

func subject(function string, env config.Env, summary string) string {
	s := fmt.Sprintf("[%s:%s] %s", function, env, summary)
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxSubject {
		s = string(r[:maxSubject])
	}
	return s
}
