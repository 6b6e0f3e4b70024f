package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds the connection settings for audio storage.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// AudioStore persists provider response audio and serves scenario prompt
// audio from a MinIO bucket.
type AudioStore struct {
	client     *minio.Client
	bucketName string
}

// NewAudioStore connects to MinIO and ensures the bucket exists. The store
// is constructed once in main and injected into the engine.
func NewAudioStore(ctx context.Context, cfg Config) (*AudioStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("minio endpoint, access key, secret key and bucket name must all be set")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket '%s' exists: %w", cfg.BucketName, err)
	}
	if !exists {
		log.Printf("MinIO bucket '%s' does not exist, creating it", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket '%s': %w", cfg.BucketName, err)
		}
	}

	return &AudioStore{client: client, bucketName: cfg.BucketName}, nil
}

// SaveResponseAudio stores one provider response audio payload under a
// run-scoped key and returns the object key for the result row.
func (s *AudioStore) SaveResponseAudio(ctx context.Context, runID, scenarioID, providerID int, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}

	objectName := fmt.Sprintf("runs/%d/%d-%d-%s%s",
		runID, scenarioID, providerID, uuid.New().String(), extensionForMime(mimeType))

	_, err := s.client.PutObject(ctx, s.bucketName, objectName,
		bytes.NewReader(audio), int64(len(audio)),
		minio.PutObjectOptions{ContentType: mimeType})
	if err != nil {
		return "", fmt.Errorf("failed to upload response audio (bucket: %s, object: %s): %w", s.bucketName, objectName, err)
	}
	return objectName, nil
}

// GetAudioBytes retrieves stored audio (e.g. a scenario's prompt audio) as a
// byte slice.
func (s *AudioStore) GetAudioBytes(ctx context.Context, objectName string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", objectName, s.bucketName, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object '%s' data: %w", objectName, err)
	}
	return data, nil
}

// DeleteAudio removes a stored object.
func (s *AudioStore) DeleteAudio(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object '%s' from bucket '%s': %w", objectName, s.bucketName, err)
	}
	return nil
}

func extensionForMime(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
