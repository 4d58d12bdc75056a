package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// S3Getter reads tiles addressed as s3://bucket/key. Headers are ignored.
type S3Getter struct {
	downloader    s3manageriface.DownloaderAPI
	requesterPays bool
}

var _ Getter = (*S3Getter)(nil)

// NewS3Getter uses the shared AWS configuration of the environment.
func NewS3Getter(requesterPays bool) (*S3Getter, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, err
	}
	return &S3Getter{downloader: s3manager.NewDownloader(sess), requesterPays: requesterPays}, nil
}

func NewS3GetterWithDownloader(downloader s3manageriface.DownloaderAPI, requesterPays bool) *S3Getter {
	return &S3Getter{downloader: downloader, requesterPays: requesterPays}
}

func (g *S3Getter) Get(ctx context.Context, rawURL string, _ map[string]string) ([]byte, string, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, "", NewFetchError(rawURL, err)
	}
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if g.requesterPays {
		input.RequestPayer = aws.String("requester")
	}
	buf := &aws.WriteAtBuffer{}
	if _, err = g.downloader.DownloadWithContext(ctx, buf, input); err != nil {
		return nil, "", NewFetchError(rawURL, err)
	}
	return buf.Bytes(), "", nil
}

func parseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3 url: %v", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 url without key: %v", rawURL)
	}
	return u.Host, key, nil
}

// SchemeGetter dispatches s3:// URLs to S3 and everything else to HTTP.
type SchemeGetter struct {
	HTTP Getter
	S3   Getter
}

var _ Getter = SchemeGetter{}

func (g SchemeGetter) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, string, error) {
	if strings.HasPrefix(rawURL, "s3://") {
		if g.S3 == nil {
			return nil, "", NewFetchError(rawURL, fmt.Errorf("no s3 getter configured"))
		}
		return g.S3.Get(ctx, rawURL, headers)
	}
	return g.HTTP.Get(ctx, rawURL, headers)
}
