package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"photobak/internal/photobak"
)

// s3API is the subset of the S3 client used by S3Storage.
type s3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// deleteBatch is the S3 limit of keys per DeleteObjects call.
const deleteBatch = 1000

// S3Storage is an S3 implementation of the Storage interface.
// S3 has no folders, so a folder is a key prefix plus an empty marker object
// named "<folder>/". A path is present when an object with that exact key
// exists or when any object lives below it.
type S3Storage struct {
	name     string
	bucket   string
	prefix   string
	client   s3API
	uploader *manager.Uploader
}

// S3Options configures NewS3Storage.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // custom endpoint for S3 compatible services; enables path-style addressing
	AccessKeyID     string
	SecretAccessKey string
}

// ParseS3Token splits a credential of the form "<access key id>:<secret>".
func ParseS3Token(token string) (string, string, error) {
	id, secret, ok := strings.Cut(token, ":")
	if !ok || id == "" || secret == "" {
		return "", "", fmt.Errorf("%w: s3 credential must be <access key id>:<secret access key>", photobak.ErrConfiguration)
	}
	return id, secret, nil
}

// NewS3Storage creates an S3 storage with static credentials.
func NewS3Storage(ctx context.Context, name string, opts S3Options) (*S3Storage, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 destination requires s3_bucket to be set", photobak.ErrConfiguration)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")),
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3StorageFromClient(name, opts.Bucket, opts.Prefix, client), nil
}

func newS3StorageFromClient(name, bucket, prefix string, client s3API) *S3Storage {
	return &S3Storage{
		name:     name,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

// key maps a backend path to an object key.
func (s *S3Storage) key(p string) string {
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if s.prefix == "" {
		return clean
	}
	return s.prefix + "/" + clean
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

// Status checks for an object at the exact key, then for anything below it.
func (s *S3Storage) Status(ctx context.Context, p string) photobak.PathStatus {
	key := s.key(p)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err == nil {
		return photobak.Present()
	}
	if !isNotFound(err) {
		return photobak.Failed(fmt.Errorf("head object %s: %w", key, err))
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(key + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return photobak.Failed(fmt.Errorf("list objects %s: %w", key, err))
	}
	if len(out.Contents) > 0 {
		return photobak.Present()
	}
	return photobak.Absent()
}

// CreateFolder writes the folder marker object.
func (s *S3Storage) CreateFolder(ctx context.Context, p string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(p) + "/"),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return fmt.Errorf("creating folder marker: %w", err)
	}
	return nil
}

// MoveFolder copies every object below from to the same relative key below
// to, then deletes the originals.
func (s *S3Storage) MoveFolder(ctx context.Context, from, to string) error {
	src, dst := s.key(from)+"/", s.key(to)+"/"

	var moved []types.ObjectIdentifier
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(src),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing %s: %w", src, err)
		}
		for _, obj := range page.Contents {
			oldKey := aws.ToString(obj.Key)
			newKey := dst + strings.TrimPrefix(oldKey, src)
			_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
				Bucket:     aws.String(s.bucket),
				Key:        aws.String(newKey),
				CopySource: aws.String(url.PathEscape(s.bucket + "/" + oldKey)),
			})
			if err != nil {
				return fmt.Errorf("copying %s: %w", oldKey, err)
			}
			moved = append(moved, types.ObjectIdentifier{Key: aws.String(oldKey)})
		}
	}
	if len(moved) == 0 {
		return fmt.Errorf("folder not found: %s", from)
	}

	for start := 0; start < len(moved); start += deleteBatch {
		end := min(start+deleteBatch, len(moved))
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: moved[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("deleting moved objects: %w", err)
		}
		if len(out.Errors) > 0 {
			return fmt.Errorf("deleting %s: %s", aws.ToString(out.Errors[0].Key), aws.ToString(out.Errors[0].Message))
		}
	}
	return nil
}

// UploadFile streams r to the object at p through the multipart uploader.
func (s *S3Storage) UploadFile(ctx context.Context, p string, r io.Reader, size int64) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploading %d bytes: %w", size, err)
	}
	return nil
}

// ValidateSetup checks that the bucket is reachable with the credentials.
func (s *S3Storage) ValidateSetup(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

// Compile-time check that S3Storage implements photobak.Storage interface
var _ photobak.Storage = (*S3Storage)(nil)
