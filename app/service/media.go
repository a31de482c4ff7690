package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/lumeo-studio/site-auth/app/dto"
	"github.com/lumeo-studio/site-auth/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrMissingFilename  = errors.New("filename is required")
)

type ObjectPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// MediaService mints short-lived presigned upload URLs for the image
// hosting bucket. The server never proxies file bytes.
type MediaService struct {
	presigner ObjectPresigner
	bucket    string
	urlTTL    time.Duration
}

func NewMediaService(presigner ObjectPresigner, cfg *config.Config) *MediaService {
	return &MediaService{
		presigner: presigner,
		bucket:    cfg.S3Bucket,
		urlTTL:    cfg.UploadURLTTL,
	}
}

func (s *MediaService) UploadURL(ctx context.Context, userID, filename, contentType string) (*dto.UploadURLResult, error) {
	if filename == "" {
		return nil, ErrMissingFilename
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrUnsupportedMedia
	}

	// Uploads are namespaced per user so ownership is encoded in the key.
	key := fmt.Sprintf("uploads/%s/%s-%s", userID, uuid.New().String(), sanitizeFilename(filename))

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlTTL
	})
	if err != nil {
		return nil, err
	}

	return &dto.UploadURLResult{
		URL:       request.URL,
		Method:    request.Method,
		Key:       key,
		ExpiresIn: int64(s.urlTTL.Seconds()),
	}, nil
}

func sanitizeFilename(filename string) string {
	filename = path.Base(filename)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, filename)
}
