package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gallery-service/internal/config"
	"gallery-service/internal/storage"
	apperrors "gallery-service/pkg/errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const (
	emptyAWSSessionToken = ""
	defaultS3Region      = "us-east-1"
	awsCodeNotFound      = "NotFound"

	errFailedCreateAWSSessionFmt = "failed to create AWS session: %w"
	errFailedPutObjectFmt        = "failed to put object: %w"
	errFailedGetObjectFmt        = "failed to get object: %w"
	errFailedPresignDownloadFmt  = "failed to generate presigned download URL: %w"
	errFailedHeadObjectFmt       = "failed to head object: %w"
	errFailedDeleteObjectFmt     = "failed to delete object: %w"
	errObjectNotFoundFmt         = "object %s not found"
)

type S3Driver struct {
	svc    *s3.S3
	bucket string
}

// NewS3Driver builds a client with static credentials. A custom endpoint
// switches to path-style addressing for S3-compatible stores.
func NewS3Driver(cfg config.S3Config) (*S3Driver, error) {
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}

	awsCfg := &aws.Config{
		Region: aws.String(region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			emptyAWSSessionToken,
		),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf(errFailedCreateAWSSessionFmt, err)
	}

	return &S3Driver{svc: s3.New(sess), bucket: cfg.Bucket}, nil
}

func (d *S3Driver) Type() storage.Type {
	return storage.TypeS3
}

func (d *S3Driver) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := d.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf(errFailedPutObjectFmt, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, awsCodeNotFound:
			return true
		}
	}
	var rerr awserr.RequestFailure
	return errors.As(err, &rerr) && rerr.StatusCode() == http.StatusNotFound
}

func (d *S3Driver) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := d.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, apperrors.NotFound(fmt.Sprintf(errObjectNotFoundFmt, key))
		}
		return nil, fmt.Errorf(errFailedGetObjectFmt, err)
	}
	return out.Body, nil
}

func (d *S3Driver) Sign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, _ := d.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf(errFailedPresignDownloadFmt, err)
	}
	return url, nil
}

// Remove checks existence first since S3 deletes are idempotent and do not
// report whether anything was removed.
func (d *S3Driver) Remove(ctx context.Context, key string) (bool, error) {
	_, err := d.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf(errFailedHeadObjectFmt, err)
	}

	_, err = d.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, fmt.Errorf(errFailedDeleteObjectFmt, err)
	}
	return true, nil
}
