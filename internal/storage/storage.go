// Package storage est le collaborateur de stockage durable des artefacts
// (audio joint, sous-titres, snapshots de requête). Les providers ne gardent
// rien : tout ce qui doit survivre au pipeline passe par ici.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("storage-client")

// Client enveloppe un bucket d'objets S3-compatible.
type Client struct {
	client   *minio.Client
	endpoint string
	bucket   string
	useSSL   bool
}

func NewClient(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("création du client de stockage: %w", err)
	}
	return &Client{client: mc, endpoint: endpoint, bucket: bucket, useSSL: useSSL}, nil
}

// EnsureBucket crée le bucket s'il n'existe pas encore.
func (c *Client) EnsureBucket(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "storage_ensure_bucket")
	defer span.End()
	span.SetAttributes(attribute.String("storage.bucket", c.bucket))

	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("test d'existence du bucket: %w", err)
	}
	if !exists {
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			span.RecordError(err)
			return fmt.Errorf("création du bucket: %w", err)
		}
	}
	return nil
}

// Upload envoie data sous key et renvoie l'URL publique de l'objet.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, span := tracer.Start(ctx, "storage_upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("storage.key", key),
		attribute.Int("storage.size", len(data)),
	)

	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("upload de %s: %w", key, err)
	}
	return c.PublicURL(key), nil
}

// Download récupère le contenu de l'objet key.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "storage_download")
	defer span.End()
	span.SetAttributes(attribute.String("storage.key", key))

	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("lecture de %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("lecture du contenu de %s: %w", key, err)
	}
	return data, nil
}

// PublicURL compose l'URL publique d'un objet du bucket.
func (c *Client) PublicURL(key string) string {
	protocol := "http"
	if c.useSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, c.endpoint, c.bucket, key)
}
