package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	"closetapi/services"
)

func JsonString(model interface{}) string {
	data, _ := json.Marshal(model)
	return string(data)
}

// TestSettings returns settings rooted under baseDir so tests never touch the
// real data directories.
func TestSettings(baseDir string) services.Settings {
	return services.Settings{
		GeminiModel:           "gemini-2.0-flash",
		DefaultStyler:         "gemini",
		UserDataDirectory:     filepath.Join(baseDir, "user_data"),
		AttributesJSONFile:    "image_attributes.json",
		CreateUserSubdirs:     true,
		ImageDirectory:        filepath.Join(baseDir, "images"),
		MaxFileSizeMB:         10,
		MaxBatchSize:          10,
		AvoidDuplicates:       true,
		ProcessedImageMaxDim:  256,
		ProcessedImageQuality: 85,
		DownloadURLExpiry:     time.Hour,
		RetryMaxAttempts:      3,
		RetryInitialDelay:     0,
		RetryBaseDelay:        time.Millisecond,
		RetryMaxDelay:         5 * time.Millisecond,
		RetryMultiplier:       2.0,
	}
}

// TinyJPEG renders a small solid-color image so uploads decode for real.
func TinyJPEG(width, height int, c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// UploadFile is one part of a multipart upload request.
type UploadFile struct {
	FieldName   string
	Filename    string
	ContentType string
	Data        []byte
}

// NewMultipartRequest builds a multipart/form-data request the way the
// attribution endpoint expects it.
func NewMultipartRequest(method, target string, files []UploadFile) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, file := range files {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, file.FieldName, file.Filename)}
		header["Content-Type"] = []string{file.ContentType}
		part, err := writer.CreatePart(header)
		if err != nil {
			panic(err)
		}
		if _, err := part.Write(file.Data); err != nil {
			panic(err)
		}
	}
	if err := writer.Close(); err != nil {
		panic(err)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req
}

// VisionGeneratorMock returns canned attribute JSON and counts calls so tests
// can assert the dedup path never reaches the provider.
type VisionGeneratorMock struct {
	Response  string
	Err       error
	CallCount int
}

func (m *VisionGeneratorMock) GenerateVision(ctx context.Context, prompt string, imageJPEG []byte) (string, error) {
	m.CallCount++
	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return `{"identifier": "top", "category": "T-Shirt", "gender": "unisex", "primary_color": "Navy", "style": "Casual", "occasion": "Everyday", "weather": "Mild", "fit": "Regular Fit", "sleeve_length": "Short Sleeve", "description": "A plain navy t-shirt."}`, nil
}

// TextGeneratorMock returns canned outfit JSON with the same call accounting.
type TextGeneratorMock struct {
	Response  string
	Err       error
	CallCount int
	Prompts   []string
}

func (m *TextGeneratorMock) GenerateText(ctx context.Context, prompt string) (string, error) {
	m.CallCount++
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return `{"top": "shirt.jpg", "bottom": "jeans.jpg", "outerwear": null, "justification": "Navy and denim pair cleanly.", "style_notes": "Keep accessories minimal.", "other_accessories": "A leather belt.", "weather_consideration": "Light layers suit mild weather."}`, nil
}

// URLCacheMock short-circuits presigning with a fixed URL.
type URLCacheMock struct {
	MockURL string
}

func (m *URLCacheMock) GetReadURL(ctx context.Context, ref string) (string, error) {
	if m.MockURL != "" {
		return m.MockURL, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/%s", ref), nil
}

// AWSProviderMock fakes the R2 surface with an in-memory object map.
type AWSProviderMock struct {
	Objects map[string][]byte
	MockURL string
}

func (m *AWSProviderMock) InitClients(ctx context.Context, settings services.Settings) error {
	return nil
}

func (m *AWSProviderMock) ProbeBucket(ctx context.Context, bucketName string) error {
	return nil
}

func (m *AWSProviderMock) PutObject(ctx context.Context, bucketName, key string, body []byte, contentType string) error {
	if m.Objects == nil {
		m.Objects = map[string][]byte{}
	}
	m.Objects[key] = body
	return nil
}

func (m *AWSProviderMock) GetObject(ctx context.Context, bucketName, key string) ([]byte, error) {
	data, ok := m.Objects[key]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", key)
	}
	return data, nil
}

func (m *AWSProviderMock) DeleteObject(ctx context.Context, bucketName, key string) error {
	delete(m.Objects, key)
	return nil
}

func (m *AWSProviderMock) ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error) {
	var keys []string
	for key := range m.Objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string, expiry time.Duration) (string, error) {
	if m.MockURL != "" {
		return m.MockURL, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileKey), nil
}
