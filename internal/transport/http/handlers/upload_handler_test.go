package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/storage"
	"github.com/mivanic/parley/internal/transport/http/middleware"
)

func newUploadFixture(t *testing.T, maxBytes int64) (*UploadHandler, *storage.DiskStore) {
	t.Helper()
	store, err := storage.NewDiskStore(t.TempDir(), "http://localhost:8080", maxBytes)
	require.NoError(t, err)
	return NewUploadHandler(store), store
}

type uploadFile struct {
	name        string
	contentType string
	data        string
}

func multipartBody(t *testing.T, files ...uploadFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.name))
		if f.contentType != "" {
			header.Set("Content-Type", f.contentType)
		}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, userID uuid.UUID, body *bytes.Buffer, contentType string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
}

func decodeUploadError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Error.Code
}

func TestUploadReturnsDescriptors(t *testing.T) {
	handler, _ := newUploadFixture(t, 1024)
	userID := uuid.New()

	body, contentType := multipartBody(t,
		uploadFile{name: "photo.png", contentType: "image/png", data: "fake image bytes"},
		uploadFile{name: "notes.txt", contentType: "text/plain", data: "some notes"},
	)
	rec := httptest.NewRecorder()
	handler.Upload(rec, uploadRequest(t, userID, body, contentType))

	require.Equal(t, http.StatusCreated, rec.Code)

	var attachments []domain.Attachment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&attachments))
	require.Len(t, attachments, 2)

	photo := attachments[0]
	assert.True(t, strings.HasPrefix(photo.Path, userID.String()+"/"))
	assert.Equal(t, "http://localhost:8080/media/"+photo.Path, photo.URL)
	assert.Equal(t, "image/png", photo.Type)
	assert.Equal(t, "photo.png", photo.Name)
	assert.Equal(t, domain.AttachmentImage, photo.Kind)

	assert.Equal(t, "notes.txt", attachments[1].Name)
	assert.Equal(t, domain.AttachmentFile, attachments[1].Kind)
}

func TestUploadOversizedFileIs413(t *testing.T) {
	handler, _ := newUploadFixture(t, 8)

	body, contentType := multipartBody(t,
		uploadFile{name: "big.bin", contentType: "application/octet-stream", data: "well over eight bytes"},
	)
	rec := httptest.NewRecorder()
	handler.Upload(rec, uploadRequest(t, uuid.New(), body, contentType))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "TOO_LARGE", decodeUploadError(t, rec))
}

func TestUploadEmptyBatchIs400(t *testing.T) {
	handler, _ := newUploadFixture(t, 1024)

	body, contentType := multipartBody(t)
	rec := httptest.NewRecorder()
	handler.Upload(rec, uploadRequest(t, uuid.New(), body, contentType))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_FILES", decodeUploadError(t, rec))
}

func TestUploadNonMultipartIs400(t *testing.T) {
	handler, _ := newUploadFixture(t, 1024)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, uuid.New()))

	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_MULTIPART", decodeUploadError(t, rec))
}

func TestMediaServesStoredBlob(t *testing.T) {
	handler, store := newUploadFixture(t, 1024)

	stored, err := store.Save(uuid.New(), "photo.png", strings.NewReader("fake image bytes"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/media/"+stored, nil)
	req.SetPathValue("path", stored)
	rec := httptest.NewRecorder()
	handler.Media(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake image bytes", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
}

func TestMediaRejectsTraversal(t *testing.T) {
	handler, _ := newUploadFixture(t, 1024)

	for _, stored := range []string{"../etc/passwd", "a/../../etc/passwd", "/etc/passwd", ""} {
		req := httptest.NewRequest(http.MethodGet, "/media/x", nil)
		req.SetPathValue("path", stored)
		rec := httptest.NewRecorder()
		handler.Media(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "path %q", stored)
		assert.Equal(t, "INVALID_PATH", decodeUploadError(t, rec), "path %q", stored)
	}
}

func TestMediaMissingFileIs404(t *testing.T) {
	handler, _ := newUploadFixture(t, 1024)

	req := httptest.NewRequest(http.MethodGet, "/media/x", nil)
	req.SetPathValue("path", uuid.NewString()+"/1.png")
	rec := httptest.NewRecorder()
	handler.Media(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
