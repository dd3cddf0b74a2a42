package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

/*
Conn is a thin wrapper around a minio client bound to one bucket.
*/
type Conn struct {
	client *minio.Client
	bucket string
}

func NewConn(cfg Config) (*Conn, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &Conn{client: client, bucket: cfg.Bucket}, nil
}

/*
EnsureBucket creates the bucket when it does not exist yet.
*/
func (conn *Conn) EnsureBucket(ctx context.Context) error {
	exists, err := conn.client.BucketExists(ctx, conn.bucket)

	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", conn.bucket, err)
	}

	if exists {
		return nil
	}

	log.Info("creating artifact bucket", "bucket", conn.bucket)

	return conn.client.MakeBucket(ctx, conn.bucket, minio.MakeBucketOptions{})
}

func (conn *Conn) Put(
	ctx context.Context, objectKey string, body []byte, contentType string,
) error {
	_, err := conn.client.PutObject(
		ctx, conn.bucket, objectKey, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType},
	)

	return err
}

func (conn *Conn) Get(
	ctx context.Context, objectKey string,
) ([]byte, string, error) {
	obj, err := conn.client.GetObject(ctx, conn.bucket, objectKey, minio.GetObjectOptions{})

	if err != nil {
		return nil, "", err
	}

	defer obj.Close()

	info, err := obj.Stat()

	if err != nil {
		return nil, "", err
	}

	buf, err := io.ReadAll(obj)

	return buf, info.ContentType, err
}

func (conn *Conn) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}

	for obj := range conn.client.ListObjects(ctx, conn.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}

		keys = append(keys, obj.Key)
	}

	return keys, nil
}

func (conn *Conn) Remove(ctx context.Context, objectKey string) error {
	return conn.client.RemoveObject(ctx, conn.bucket, objectKey, minio.RemoveObjectOptions{})
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}
