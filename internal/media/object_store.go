package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const (
	errorMessageMissingEndpoint  = "media: missing object store endpoint"
	errorMessageMissingBucket    = "media: missing object store bucket"
	errorMessageMissingAccessKey = "media: missing object store access key"
	errorMessageStoreUnset       = "media: object store not configured"
	errorMessageForeignURL       = "media: url does not belong to this store"
	errorMessagePutObject        = "media: put object"
	errorMessageRemoveObject     = "media: remove object"
)

var (
	// ErrMissingEndpoint indicates the object store endpoint configuration was omitted.
	ErrMissingEndpoint = errors.New(errorMessageMissingEndpoint)
	// ErrMissingBucket indicates the object store bucket configuration was omitted.
	ErrMissingBucket = errors.New(errorMessageMissingBucket)
	// ErrMissingAccessKey indicates the object store credentials were omitted.
	ErrMissingAccessKey = errors.New(errorMessageMissingAccessKey)
	// ErrStoreNotConfigured indicates no object store was wired at startup.
	ErrStoreNotConfigured = errors.New(errorMessageStoreUnset)
	// ErrForeignObjectURL indicates a delete URL that does not resolve to an
	// object in this store's bucket.
	ErrForeignObjectURL = errors.New(errorMessageForeignURL)
)

// Leading version segments (v1630000000) appear in CDN-style URLs; they are
// not part of the object key.
var versionSegmentPattern = regexp.MustCompile(`^v[0-9]+$`)

var objectNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Config captures connection settings for the S3-compatible object store.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Folder        string
	PublicBaseURL string
	UseSSL        bool
}

// Object describes a stored media object.
type Object struct {
	URL  string
	Key  string
	Size int64
}

// ObjectStore uploads and deletes media through a MinIO-compatible API.
type ObjectStore struct {
	logger        *zap.Logger
	client        *minio.Client
	bucket        string
	folder        string
	publicBaseURL string
}

// NewObjectStore creates an ObjectStore from configuration.
func NewObjectStore(logger *zap.Logger, configuration Config) (*ObjectStore, error) {
	endpoint := strings.TrimSpace(configuration.Endpoint)
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	bucket := strings.TrimSpace(configuration.Bucket)
	if bucket == "" {
		return nil, ErrMissingBucket
	}
	accessKey := strings.TrimSpace(configuration.AccessKey)
	secretKey := strings.TrimSpace(configuration.SecretKey)
	if accessKey == "" || secretKey == "" {
		return nil, ErrMissingAccessKey
	}

	client, clientErr := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: configuration.UseSSL,
	})
	if clientErr != nil {
		return nil, fmt.Errorf("media: create client: %w", clientErr)
	}

	publicBaseURL := strings.TrimRight(strings.TrimSpace(configuration.PublicBaseURL), "/")
	if publicBaseURL == "" {
		scheme := "http"
		if configuration.UseSSL {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	return &ObjectStore{
		logger:        logger,
		client:        client,
		bucket:        bucket,
		folder:        strings.Trim(strings.TrimSpace(configuration.Folder), "/"),
		publicBaseURL: publicBaseURL,
	}, nil
}

// Upload stores the file under the configured folder with a unique object
// name and returns its public URL.
func (store *ObjectStore) Upload(ctx context.Context, fileName string, contentType string, reader io.Reader, size int64) (Object, error) {
	objectKey := store.objectKeyForFile(fileName)

	info, putErr := store.client.PutObject(ctx, store.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if putErr != nil {
		return Object{}, fmt.Errorf("%s: %w", errorMessagePutObject, putErr)
	}

	return Object{
		URL:  fmt.Sprintf("%s/%s/%s", store.publicBaseURL, store.bucket, objectKey),
		Key:  objectKey,
		Size: info.Size,
	}, nil
}

// Delete removes the object a public URL points at.
func (store *ObjectStore) Delete(ctx context.Context, imageURL string) error {
	objectKey, keyErr := store.ObjectKeyFromURL(imageURL)
	if keyErr != nil {
		return keyErr
	}

	if removeErr := store.client.RemoveObject(ctx, store.bucket, objectKey, minio.RemoveObjectOptions{}); removeErr != nil {
		return fmt.Errorf("%s: %w", errorMessageRemoveObject, removeErr)
	}
	return nil
}

// ObjectKeyFromURL derives the object key from a public URL: the path
// relative to the bucket, with any leading version segment dropped.
func (store *ObjectStore) ObjectKeyFromURL(imageURL string) (string, error) {
	parsed, parseErr := url.Parse(strings.TrimSpace(imageURL))
	if parseErr != nil {
		return "", fmt.Errorf("%w: %s", ErrForeignObjectURL, imageURL)
	}

	segments := splitPathSegments(parsed.Path)
	for index, segment := range segments {
		if segment != store.bucket {
			continue
		}
		remainder := segments[index+1:]
		if len(remainder) > 0 && versionSegmentPattern.MatchString(remainder[0]) {
			remainder = remainder[1:]
		}
		if len(remainder) == 0 {
			break
		}
		return path.Join(remainder...), nil
	}

	return "", fmt.Errorf("%w: %s", ErrForeignObjectURL, imageURL)
}

func (store *ObjectStore) objectKeyForFile(fileName string) string {
	baseName := objectNameSanitizer.ReplaceAllString(path.Base(fileName), "-")
	uniqueName := fmt.Sprintf("%s-%s", uuid.NewString(), baseName)
	if store.folder == "" {
		return uniqueName
	}
	return path.Join(store.folder, uniqueName)
}

func splitPathSegments(urlPath string) []string {
	raw := strings.Split(urlPath, "/")
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}
