package httpapi_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FolioWorksLab/foliosite/internal/media"
)

type recordingMediaStore struct {
	uploadedName string
	uploadedSize int64
	deletedURL   string
	uploadErr    error
	deleteErr    error
}

func (store *recordingMediaStore) Upload(_ context.Context, fileName string, _ string, reader io.Reader, _ int64) (media.Object, error) {
	if store.uploadErr != nil {
		return media.Object{}, store.uploadErr
	}
	payload, readErr := io.ReadAll(reader)
	if readErr != nil {
		return media.Object{}, readErr
	}
	store.uploadedName = fileName
	store.uploadedSize = int64(len(payload))
	return media.Object{
		URL:  "https://cdn.example.com/foliosite-media/uploads/stored-" + fileName,
		Key:  "uploads/stored-" + fileName,
		Size: int64(len(payload)),
	}, nil
}

func (store *recordingMediaStore) Delete(_ context.Context, imageURL string) error {
	if store.deleteErr != nil {
		return store.deleteErr
	}
	store.deletedURL = imageURL
	return nil
}

func performUploadRequest(testingT *testing.T, api apiHarness, fieldName string, fileName string, contents []byte) *httptest.ResponseRecorder {
	testingT.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, partErr := writer.CreateFormFile(fieldName, fileName)
	require.NoError(testingT, partErr)
	_, writeErr := part.Write(contents)
	require.NoError(testingT, writeErr)
	require.NoError(testingT, writer.Close())

	request := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)
	return recorder
}

func TestUploadReturnsPublicURL(t *testing.T) {
	store := &recordingMediaStore{}
	api := buildAPIHarness(t, harnessOptions{mediaStore: store})

	resp := performUploadRequest(t, api, "file", "portrait.png", []byte("fake image bytes"))
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeJSONBody(t, resp)
	require.Equal(t, true, body["success"])
	require.Equal(t, "https://cdn.example.com/foliosite-media/uploads/stored-portrait.png", body["secure_url"])
	require.Equal(t, "uploads/stored-portrait.png", body["public_id"])
	require.Equal(t, "portrait.png", store.uploadedName)
	require.Equal(t, int64(len("fake image bytes")), store.uploadedSize)
}

func TestUploadRequiresFileField(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{mediaStore: &recordingMediaStore{}})

	resp := performUploadRequest(t, api, "attachment", "portrait.png", []byte("x"))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "missing_file", decodeJSONBody(t, resp)["error"])
}

func TestUploadWithoutConfiguredStoreIsUnavailable(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{})

	resp := performUploadRequest(t, api, "file", "portrait.png", []byte("x"))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Equal(t, "media_unavailable", decodeJSONBody(t, resp)["error"])
}

func TestDeleteImageForwardsURL(t *testing.T) {
	store := &recordingMediaStore{}
	api := buildAPIHarness(t, harnessOptions{mediaStore: store})

	resp := performJSONRequest(t, api.router, http.MethodPost, "/api/delete-image", map[string]string{
		"imageUrl": "https://cdn.example.com/foliosite-media/uploads/stored-portrait.png",
	}, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "https://cdn.example.com/foliosite-media/uploads/stored-portrait.png", store.deletedURL)
}

func TestDeleteImageRequiresURL(t *testing.T) {
	api := buildAPIHarness(t, harnessOptions{mediaStore: &recordingMediaStore{}})

	resp := performJSONRequest(t, api.router, http.MethodPost, "/api/delete-image", map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "missing_image_url", decodeJSONBody(t, resp)["error"])
}

func TestDeleteImageRejectsForeignURL(t *testing.T) {
	store := &recordingMediaStore{deleteErr: media.ErrForeignObjectURL}
	api := buildAPIHarness(t, harnessOptions{mediaStore: store})

	resp := performJSONRequest(t, api.router, http.MethodPost, "/api/delete-image", map[string]string{
		"imageUrl": "https://elsewhere.example.com/not-ours.png",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "invalid_image_url", decodeJSONBody(t, resp)["error"])
}
