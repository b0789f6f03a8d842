package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stavros/internal/common"
	sc "github.com/dmitrijs2005/stavros/internal/server/config"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// presignExpiry bounds how long an upload or download URL stays usable.
const presignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// StorageService hands out presigned S3 URLs for resource attachments so
// file bytes never pass through the API server.
type StorageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewStorageService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *StorageService {
	return &StorageService{
		db:          db,
		repomanager: repomanager,
		config:      config,
	}
}

// AttachmentKey returns a fresh object key for a file of resourceID.
func AttachmentKey(resourceID string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("resources/%s/%d/%02d/%v", resourceID, d.Year(), d.Month(), uuid.New())
}

func (s *StorageService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload assigns a new object key to resourceID and returns a PUT URL
// for it. Any previous attachment is replaced.
func (s *StorageService) PresignUpload(ctx context.Context, resourceID string) (key, url string, err error) {
	repo := s.repomanager.Resources(s.db)
	if _, err := repo.GetByID(ctx, resourceID); err != nil {
		return "", "", err
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key = AttachmentKey(resourceID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", err
	}

	if err := repo.SetAttachment(ctx, resourceID, key); err != nil {
		return "", "", fmt.Errorf("error saving attachment key: %w", err)
	}
	return key, req.URL, nil
}

// PresignDownload returns a GET URL for the attachment of resourceID, or
// common.ErrorNotFound when it has none.
func (s *StorageService) PresignDownload(ctx context.Context, resourceID string) (string, error) {
	res, err := s.repomanager.Resources(s.db).GetByID(ctx, resourceID)
	if err != nil {
		return "", err
	}
	if !res.HasAttachment {
		return "", fmt.Errorf("resource %s has no attachment: %w", resourceID, common.ErrorNotFound)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := res.AttachmentKey

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
