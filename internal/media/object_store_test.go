package media_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FolioWorksLab/foliosite/internal/media"
)

func buildObjectStore(t *testing.T) *media.ObjectStore {
	t.Helper()

	store, storeErr := media.NewObjectStore(zap.NewNop(), media.Config{
		Endpoint:      "minio.example.com:9000",
		AccessKey:     "access",
		SecretKey:     "secret",
		Bucket:        "foliosite-media",
		Folder:        "uploads",
		PublicBaseURL: "https://cdn.example.com",
	})
	require.NoError(t, storeErr)
	return store
}

func TestNewObjectStoreValidatesConfiguration(t *testing.T) {
	_, storeErr := media.NewObjectStore(zap.NewNop(), media.Config{
		Bucket:    "bucket",
		AccessKey: "access",
		SecretKey: "secret",
	})
	require.ErrorIs(t, storeErr, media.ErrMissingEndpoint)

	_, storeErr = media.NewObjectStore(zap.NewNop(), media.Config{
		Endpoint:  "minio.example.com:9000",
		AccessKey: "access",
		SecretKey: "secret",
	})
	require.ErrorIs(t, storeErr, media.ErrMissingBucket)

	_, storeErr = media.NewObjectStore(zap.NewNop(), media.Config{
		Endpoint: "minio.example.com:9000",
		Bucket:   "bucket",
	})
	require.ErrorIs(t, storeErr, media.ErrMissingAccessKey)
}

func TestObjectKeyFromURLResolvesBucketRelativePath(t *testing.T) {
	store := buildObjectStore(t)

	objectKey, keyErr := store.ObjectKeyFromURL("https://cdn.example.com/foliosite-media/uploads/abc-portrait.png")
	require.NoError(t, keyErr)
	require.Equal(t, "uploads/abc-portrait.png", objectKey)
}

func TestObjectKeyFromURLDropsVersionSegment(t *testing.T) {
	store := buildObjectStore(t)

	objectKey, keyErr := store.ObjectKeyFromURL("https://cdn.example.com/foliosite-media/v1630462800/uploads/abc-portrait.png")
	require.NoError(t, keyErr)
	require.Equal(t, "uploads/abc-portrait.png", objectKey)
}

func TestObjectKeyFromURLRejectsForeignURLs(t *testing.T) {
	store := buildObjectStore(t)

	_, keyErr := store.ObjectKeyFromURL("https://elsewhere.example.com/other-bucket/uploads/abc.png")
	require.ErrorIs(t, keyErr, media.ErrForeignObjectURL)

	_, keyErr = store.ObjectKeyFromURL("https://cdn.example.com/foliosite-media/")
	require.ErrorIs(t, keyErr, media.ErrForeignObjectURL)
}
