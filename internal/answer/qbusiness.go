package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/qbusiness"
	qtypes "github.com/aws/aws-sdk-go-v2/service/qbusiness/types"
)

type QBusinessClient interface {
	ChatSync(ctx context.Context, params *qbusiness.ChatSyncInput, optFns ...func(*qbusiness.Options)) (*qbusiness.ChatSyncOutput, error)
}

// QBusiness answers from an Amazon Q Business application in retrieval
// mode, so answers come only from indexed documents.
type QBusiness struct {
	client QBusinessClient
	appID  string
}

func NewQBusiness(client QBusinessClient, appID string) *QBusiness {
	return &QBusiness{client: client, appID: appID}
}

func (q *QBusiness) Ask(ctx context.Context, query Query) (*Answer, error) {
	question := strings.TrimSpace(query.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	out, err := q.client.ChatSync(ctx, &qbusiness.ChatSyncInput{
		ApplicationId: aws.String(q.appID),
		UserMessage:   aws.String(question),
		ChatMode:      qtypes.ChatModeRetrievalMode,
	})
	if err != nil {
		return nil, fmt.Errorf("qbusiness ChatSync: %w", err)
	}

	ans := &Answer{Text: aws.ToString(out.SystemMessage)}
	for _, a := range out.SourceAttributions {
		if a == nil {
			continue
		}
		ans.Sources = append(ans.Sources, Source{
			Title:   aws.ToString(a.Title),
			URL:     aws.ToString(a.Url),
			Snippet: aws.ToString(a.Snippet),
		})
	}
	return ans, nil
}
