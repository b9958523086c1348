package blobstorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"remindbot/internal/core/domain/attachment"
)

type S3Options struct {
	Bucket       string
	Endpoint     string
	UsePathStyle bool
}

// S3 stores every upload under a fresh object key. The display name is kept
// in the Content-Disposition header only.
type S3 struct {
	client *s3.Client
	bucket string
}

func NewS3(awsConfig aws.Config, options S3Options) *S3 {
	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = options.UsePathStyle
		if options.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(options.Endpoint)
		}
	})
	return &S3{client: client, bucket: options.Bucket}
}

func (s *S3) Upload(ctx context.Context, name string, content []byte) (attachment.BlobRef, error) {
	key := objectKey(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(content),
		ContentDisposition: aws.String(contentDisposition(name)),
	})
	if err != nil {
		return "", err
	}
	return attachment.BlobRef(key), nil
}

func (s *S3) Download(ctx context.Context, ref attachment.BlobRef) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(ref)),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, attachment.ErrBlobDoesNotExist
	}
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Delete succeeds for missing objects as S3 does.
func (s *S3) Delete(ctx context.Context, ref attachment.BlobRef) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(ref)),
	})
	return err
}

func objectKey(name string) string {
	ext := ""
	if ix := strings.LastIndex(name, "."); ix >= 0 && len(name)-ix <= 10 {
		ext = strings.ToLower(name[ix:])
	}
	return "attachments/" + uuid.New().String() + ext
}

func contentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name))
}

// Memory keeps blobs in the process. It backs the dev mode.
type Memory struct {
	blobs map[attachment.BlobRef][]byte
	lock  sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[attachment.BlobRef][]byte)}
}

func (m *Memory) Upload(ctx context.Context, name string, content []byte) (attachment.BlobRef, error) {
	ref := attachment.BlobRef(objectKey(name))
	m.lock.Lock()
	defer m.lock.Unlock()
	m.blobs[ref] = append([]byte(nil), content...)
	return ref, nil
}

func (m *Memory) Download(ctx context.Context, ref attachment.BlobRef) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	content, ok := m.blobs[ref]
	if !ok {
		return nil, attachment.ErrBlobDoesNotExist
	}
	return append([]byte(nil), content...), nil
}

func (m *Memory) Delete(ctx context.Context, ref attachment.BlobRef) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.blobs, ref)
	return nil
}
