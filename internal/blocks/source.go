package blocks

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const templateExt = ".json.tmpl"

//go:embed templates/*.json.tmpl
var embedded embed.FS

// Source returns the text of a named block template.
type Source interface {
	Load(ctx context.Context, name string) (string, error)
}

// EmbeddedSource serves the templates compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Load(_ context.Context, name string) (string, error) {
	b, err := embedded.ReadFile("templates/" + name + templateExt)
	if err != nil {
		return "", fmt.Errorf("embedded template %q: %w", name, err)
	}
	return string(b), nil
}

type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads <prefix>/<name>.json.tmpl from a bucket so copy can change
// without a deploy. Missing objects fall through to the fallback source.
type S3Source struct {
	client   S3Client
	bucket   string
	prefix   string
	fallback Source
}

func NewS3Source(client S3Client, bucket, prefix string, fallback Source) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix, fallback: fallback}
}

func (s *S3Source) Load(ctx context.Context, name string) (string, error) {
	key := path.Join(s.prefix, name+templateExt)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) && s.fallback != nil {
			return s.fallback.Load(ctx, name)
		}
		return "", fmt.Errorf("s3 GetObject s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("read s3://%s/%s: %w", s.bucket, key, err)
	}
	return string(b), nil
}
