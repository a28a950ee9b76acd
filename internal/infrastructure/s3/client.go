package s3infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ai-content-platform/internal/config"
	"github.com/ai-content-platform/internal/infrastructure/awsconf"
	"github.com/ai-content-platform/internal/pkg/id"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxImageBytes caps how much of a generated image is copied into the bucket.
const maxImageBytes = 20 << 20

// ObjectAPI is the subset of the S3 client Store writes with.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner signs GET requests for archived objects.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store archives generated images in a bucket.
type Store struct {
	client    ObjectAPI
	presigner Presigner
	http      *http.Client
	bucket    string
	ttl       time.Duration
}

// NewClient creates an S3 client. An endpoint override (LocalStack) also
// switches to path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ep := awsconf.Endpoint(cfg); ep != nil {
			o.BaseEndpoint = ep
			o.UsePathStyle = true
		}
	}), nil
}

// NewStore creates a Store backed by client. Presigned URLs live for ttl.
func NewStore(client *s3.Client, bucket string, ttl time.Duration) *Store {
	return newStore(client, s3.NewPresignClient(client), http.DefaultClient, bucket, ttl)
}

func newStore(client ObjectAPI, presigner Presigner, hc *http.Client, bucket string, ttl time.Duration) *Store {
	return &Store{client: client, presigner: presigner, http: hc, bucket: bucket, ttl: ttl}
}

// Archive copies the image at sourceURL into the bucket under
// generations/<userID>/<ulid><ext> and returns a presigned GET URL for it.
func (s *Store) Archive(ctx context.Context, userID, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("archive request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch generated image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch generated image: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	key := fmt.Sprintf("generations/%s/%s%s", userID, id.New(), extensionFor(contentType, sourceURL))
	if contentType == "" {
		contentType = detectContentType(key)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        io.LimitReader(resp.Body, maxImageBytes),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return s.PresignedURL(ctx, key)
}

// PresignedURL generates a time-limited GET URL for key.
func (s *Store) PresignedURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return req.URL, nil
}

func extensionFor(contentType, sourceURL string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	if ext := strings.ToLower(path.Ext(strings.Split(sourceURL, "?")[0])); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".bin"
}

func detectContentType(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
