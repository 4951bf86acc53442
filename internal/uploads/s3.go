package uploads

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Config addresses an S3-compatible bucket
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

// S3Store writes to an S3-compatible bucket (AWS, MinIO, Supabase storage's
// S3 endpoint).
type S3Store struct {
	bucket   string
	s3       *s3.S3
	uploader *s3manager.Uploader
}

// OpenS3 connects to the configured bucket.
func OpenS3(cfg S3Config) (*S3Store, error) {
	creds := credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	awsConfig := &aws.Config{
		Credentials:      creds,
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}
	svc := s3.New(sess)
	return &S3Store{
		bucket:   cfg.BucketName,
		s3:       svc,
		uploader: s3manager.NewUploaderWithClient(svc),
	}, nil
}

// Put refuses to write over an existing key. The existence check and the
// write are two requests; names are random uuids so the window only matters
// for keys chosen by the caller.
func (s *S3Store) Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) error {
	exists, err := s.exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return ErrObjectExists
	}
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(path),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=3600"),
	})
	return err
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	exists, err := s.exists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return ErrObjectNotFound
	}
	_, err = s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	return err
}

func (s *S3Store) exists(ctx context.Context, path string) (bool, error) {
	_, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err == nil {
		return true, nil
	}
	var aerr awserr.RequestFailure
	if errors.As(err, &aerr) && aerr.StatusCode() == 404 {
		return false, nil
	}
	return false, err
}
