package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API used by Bucket.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Options configure NewS3Client.
type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// NewS3Client builds an S3 client with static credentials. An empty
// Endpoint uses AWS; set it for MinIO and similar services.
func NewS3Client(o S3Options) *s3.Client {
	opts := s3.Options{
		Region:       o.Region,
		UsePathStyle: o.PathStyle,
	}
	if o.Endpoint != "" {
		opts.BaseEndpoint = aws.String(o.Endpoint)
	}
	if o.AccessKey != "" {
		creds := aws.Credentials{AccessKeyID: o.AccessKey, SecretAccessKey: o.SecretKey, Source: "synthparams"}
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})
	}
	return s3.New(opts)
}

// Bucket keeps artifacts as objects in an S3 compatible bucket, keyed by
// artifact name under an optional prefix. Models are small, so an upload
// is buffered and sent with a single PutObject on Close.
type Bucket struct {
	client S3Client
	bucket string
	prefix string
}

// NewBucket creates a Bucket.
func NewBucket(client S3Client, bucket, prefix string) *Bucket {
	return &Bucket{client: client, bucket: bucket, prefix: prefix}
}

func (b *Bucket) key(name string) (*string, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	return aws.String(path.Join(b.prefix, name)), nil
}

func (b *Bucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := b.key(name)
	if err != nil {
		return nil, err
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: key})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return out.Body, nil
}

func (b *Bucket) Create(ctx context.Context, name string) (Upload, error) {
	key, err := b.key(name)
	if err != nil {
		return nil, err
	}
	return &objectUpload{ctx: ctx, b: b, key: key}, nil
}

func (b *Bucket) Stat(ctx context.Context, name string) (Info, error) {
	key, err := b.key(name)
	if err != nil {
		return Info{}, err
	}
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(b.bucket), Key: key})
	if err != nil {
		if isS3NotFound(err) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Info{}, err
	}
	return Info{Name: name, Size: aws.ToInt64(out.ContentLength), Modified: aws.ToTime(out.LastModified)}, nil
}

func (b *Bucket) Remove(ctx context.Context, name string) error {
	key, err := b.key(name)
	if err != nil {
		return err
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(b.bucket), Key: key})
	if err != nil && !isS3NotFound(err) {
		return err
	}
	return nil
}

var errUploadDone = errors.New("store: upload already finished")

type objectUpload struct {
	ctx  context.Context
	b    *Bucket
	key  *string
	buf  bytes.Buffer
	done bool
}

func (u *objectUpload) Write(p []byte) (int, error) {
	if u.done {
		return 0, errUploadDone
	}
	return u.buf.Write(p)
}

func (u *objectUpload) Close() error {
	if u.done {
		return errUploadDone
	}
	u.done = true
	_, err := u.b.client.PutObject(u.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.b.bucket),
		Key:           u.key,
		Body:          bytes.NewReader(u.buf.Bytes()),
		ContentLength: aws.Int64(int64(u.buf.Len())),
		ContentType:   aws.String(ArtifactType),
	})
	return err
}

func (u *objectUpload) Abort() error {
	u.done = true
	u.buf.Reset()
	return nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

var _ Artifacts = (*Bucket)(nil)
