package controllers

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closetapi/models"
	"closetapi/services"
	"closetapi/test"
)

type serverMocks struct {
	vision  *test.VisionGeneratorMock
	text    *test.TextGeneratorMock
	records services.RecordStore
}

func setupTestServer(t *testing.T) (*echo.Echo, *serverMocks) {
	t.Helper()
	settings := test.TestSettings(t.TempDir())
	records := services.NewLocalRecordStore(settings)
	blobs := services.NewLocalBlobStore(settings)
	mocks := &serverMocks{
		vision:  &test.VisionGeneratorMock{},
		text:    &test.TextGeneratorMock{},
		records: records,
	}
	e := SetupServer(settings, records, blobs, mocks.vision, mocks.text, &test.URLCacheMock{})
	return e, mocks
}

func jpegUploadFile(filename string) test.UploadFile {
	return test.UploadFile{
		FieldName:   "files",
		Filename:    filename,
		ContentType: "image/jpeg",
		Data:        test.TinyJPEG(64, 64, color.RGBA{R: 30, G: 60, B: 120, A: 255}),
	}
}

func TestHealthOk(t *testing.T) {
	e, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.NotEmpty(t, response.Timestamp)
}

func TestStorageInfoReportsBackends(t *testing.T) {
	e, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/storage-info", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "local", response["record_backend"])
	assert.Equal(t, "local", response["blob_backend"])
	assert.Equal(t, float64(10), response["max_batch_size"])
}

func TestAttributeClothesOk(t *testing.T) {
	e, mocks := setupTestServer(t)

	req := test.NewMultipartRequest(http.MethodPost, "/attribute_clothes?user_id=alice",
		[]test.UploadFile{jpegUploadFile("shirt.jpg")})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "expected 200, got %d: %s", rec.Code, rec.Body.String())
	var response models.AttributeAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, 1, response.SuccessfulAnalyses)
	require.Len(t, response.Results, 1)
	assert.Equal(t, models.StatusAttributesExtracted, response.Results[0].Status)
	assert.Equal(t, 1, mocks.vision.CallCount)

	ledger, err := mocks.records.Load(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, ledger)
	assert.Equal(t, 1, ledger.Metadata.TotalImages)
}

func TestAttributeClothesMissingUserID(t *testing.T) {
	e, _ := setupTestServer(t)

	req := test.NewMultipartRequest(http.MethodPost, "/attribute_clothes",
		[]test.UploadFile{jpegUploadFile("shirt.jpg")})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "user_id")
}

func TestAttributeClothesNoFiles(t *testing.T) {
	e, _ := setupTestServer(t)

	req := test.NewMultipartRequest(http.MethodPost, "/attribute_clothes?user_id=alice", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttributeClothesTooManyFiles(t *testing.T) {
	e, mocks := setupTestServer(t)

	files := make([]test.UploadFile, 11)
	for i := range files {
		files[i] = jpegUploadFile("shirt.jpg")
	}
	req := test.NewMultipartRequest(http.MethodPost, "/attribute_clothes?user_id=alice", files)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "too many files")
	assert.Equal(t, 0, mocks.vision.CallCount)
}

func TestAttributeClothesOversizedFileRejectedPerItem(t *testing.T) {
	settings := test.TestSettings(t.TempDir())
	settings.MaxFileSizeMB = 1
	records := services.NewLocalRecordStore(settings)
	blobs := services.NewLocalBlobStore(settings)
	vision := &test.VisionGeneratorMock{}
	e := SetupServer(settings, records, blobs, vision, &test.TextGeneratorMock{}, &test.URLCacheMock{})

	big := test.UploadFile{
		FieldName:   "files",
		Filename:    "huge.jpg",
		ContentType: "image/jpeg",
		Data:        make([]byte, 1024*1024+512),
	}
	req := test.NewMultipartRequest(http.MethodPost, "/attribute_clothes?user_id=alice", []test.UploadFile{big})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response models.AttributeAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.False(t, response.Success)
	require.Len(t, response.Results, 1)
	assert.Equal(t, models.StatusError, response.Results[0].Status)
	require.NotNil(t, response.Results[0].Error)
	assert.Contains(t, *response.Results[0].Error, "size limit")
	// Reading stops one byte past the cap instead of buffering the whole body.
	assert.Equal(t, int64(1024*1024+1), response.Results[0].ImageInfo.FileSizeBytes)
	assert.Equal(t, 0, vision.CallCount)
}

func TestAttributeClothesBadUserID(t *testing.T) {
	e, _ := setupTestServer(t)

	req := test.NewMultipartRequest(http.MethodPost, "/attribute_clothes?user_id="+url.QueryEscape("../etc"),
		[]test.UploadFile{jpegUploadFile("shirt.jpg")})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStylerMissingUserID(t *testing.T) {
	e, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/styler", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStylerParamTooLong(t *testing.T) {
	e, mocks := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost,
		"/styler?user_id=alice&city="+strings.Repeat("x", 201), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, mocks.text.CallCount)
}

func TestStylerNoDataFor404(t *testing.T) {
	e, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/styler?user_id=alice", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "No clothing data found")
}

func TestStylerOkAfterUpload(t *testing.T) {
	e, mocks := setupTestServer(t)

	// Seed the closet through the real upload endpoint. The vision mock
	// answers with a top; add a bottom directly so the outfit is complete.
	uploadReq := test.NewMultipartRequest(http.MethodPost, "/attribute_clothes?user_id=alice",
		[]test.UploadFile{jpegUploadFile("shirt.jpg")})
	uploadRec := httptest.NewRecorder()
	e.ServeHTTP(uploadRec, uploadReq)
	require.Equal(t, http.StatusOK, uploadRec.Code)

	bottom := models.ImageRecord{
		Filename:    "jeans.jpg",
		ContentType: "image/jpeg",
		Attributes: map[string]any{
			"image":      "jeans.jpg",
			"identifier": "bottom",
			"category":   "Jeans",
		},
		ProcessedTimestamp: "2026-08-01T10:00:00Z",
		UserID:             "alice",
		SavedImages:        map[string]string{"processed": "ref/jeans.jpg"},
	}
	require.NoError(t, mocks.records.UpsertImage(context.Background(), "alice", "hash-bottom", bottom))

	req := httptest.NewRequest(http.MethodPost, "/styler?user_id=alice&city=Berlin", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "expected 200, got %d: %s", rec.Code, rec.Body.String())
	var response models.StylerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, 2, response.AvailableItemsCount)
	assert.Equal(t, "Berlin", response.RequestParameters["city"])
	require.NotNil(t, response.OutfitRecommendation)
	assert.Equal(t, 1, mocks.text.CallCount)
}
