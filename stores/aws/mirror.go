package aws

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"excalidraw-desktop/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Mirror uploads every saved revision to an S3 bucket.
type Mirror struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewMirror loads the default AWS configuration (environment, shared config,
// instance role) and returns a mirror writing under prefix in bucket.
func NewMirror(ctx context.Context, bucket, prefix string) (*Mirror, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newMirror(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newMirror(client putObjectAPI, bucket, prefix string) *Mirror {
	return &Mirror{client: client, bucket: bucket, prefix: prefix}
}

func (m *Mirror) Mirror(ctx context.Context, filePath string, data []byte) error {
	key := path.Join(m.prefix, core.BackupKey(filePath, ulid.Make().String()))
	log := logrus.WithFields(logrus.Fields{
		"file_path": filePath,
		"bucket":    m.bucket,
		"key":       key,
	})

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.WithError(err).Error("Failed to upload backup")
		return fmt.Errorf("failed to upload backup of %s: %w", filePath, err)
	}

	log.WithField("data_length", len(data)).Debug("Drawing mirrored")
	return nil
}
