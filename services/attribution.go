package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"closetapi/models"
)

// UploadedImage is one file pulled out of the multipart request.
type UploadedImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// AttributionService runs uploads through validate, hash, dedup, transform,
// extract, persist and respond.
type AttributionService struct {
	Settings Settings
	Records  RecordStore
	Blobs    BlobStore
	Vision   VisionGenerator
	URLCache URLCacheServiceProvider
	RetryCfg RetryConfig

	// userLocks serializes the hash-check -> persist window per user, so two
	// concurrent uploads of the same image do not both miss the dedup check.
	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewAttributionService(settings Settings, records RecordStore, blobs BlobStore, vision VisionGenerator, urlCache URLCacheServiceProvider) *AttributionService {
	return &AttributionService{
		Settings:  settings,
		Records:   records,
		Blobs:     blobs,
		Vision:    vision,
		URLCache:  urlCache,
		RetryCfg:  RetryConfigFromSettings(settings),
		userLocks: map[string]*sync.Mutex{},
	}
}

func (s *AttributionService) userLock(normalizedUser string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[normalizedUser]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[normalizedUser] = lock
	}
	return lock
}

// ValidateUpload rejects files before any bytes are hashed: wrong extension,
// non-image content type, or over the size cap.
func (s *AttributionService) ValidateUpload(img UploadedImage) error {
	allowed := allowedImageExtensions
	if len(s.Settings.AllowedExtensions) > 0 {
		allowed = map[string]bool{}
		for _, ext := range s.Settings.AllowedExtensions {
			allowed[strings.ToLower(ext)] = true
		}
	}
	name := strings.ToLower(img.Filename)
	dot := strings.LastIndex(name, ".")
	if dot == -1 || !allowed[name[dot:]] {
		return NewClientError(400, "file '%v' has an unsupported extension", img.Filename)
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return NewClientError(400, "file '%v' is not an image (content type %v)", img.Filename, img.ContentType)
	}
	maxBytes := s.Settings.MaxFileSizeMB * 1024 * 1024
	if int64(len(img.Data)) > maxBytes {
		return NewClientError(413, "file '%v' exceeds the %vMB size limit", img.Filename, s.Settings.MaxFileSizeMB)
	}
	if len(img.Data) == 0 {
		return NewClientError(400, "file '%v' is empty", img.Filename)
	}
	return nil
}

// AnalyzeBatch processes up to MaxBatchSize images for one user. Items fail
// independently; the batch fails only when nothing succeeds.
func (s *AttributionService) AnalyzeBatch(ctx context.Context, userID string, images []UploadedImage) (*models.AttributeAnalysisResponse, error) {
	if _, err := NormalizeUserID(userID); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, NewClientError(400, "no files provided")
	}
	if len(images) > s.Settings.MaxBatchSize {
		return nil, NewClientError(400, "too many files: %v provided, maximum is %v", len(images), s.Settings.MaxBatchSize)
	}

	log.Printf("[user=%v] starting attribute analysis for %v images", userID, len(images))

	results := make([]models.ImageAnalysisResult, 0, len(images))
	succeeded := 0
	for _, img := range images {
		result := s.analyzeOne(ctx, userID, img)
		if result.Status == models.StatusAttributesExtracted || result.Status == models.StatusDuplicateFound {
			succeeded++
		}
		results = append(results, result)
	}

	failed := len(images) - succeeded
	response := &models.AttributeAnalysisResponse{
		Success:             succeeded > 0,
		ProcessingTimestamp: time.Now().Format(time.RFC3339),
		TotalImages:         len(images),
		SuccessfulAnalyses:  succeeded,
		FailedAnalyses:      failed,
		Results:             results,
	}
	if response.Success {
		response.Message = fmt.Sprintf("Processed %v images: %v successful, %v failed", len(images), succeeded, failed)
	} else {
		response.Message = fmt.Sprintf("All %v images failed to process", len(images))
	}
	log.Printf("[user=%v] attribute analysis done [ok=%v] [failed=%v]", userID, succeeded, failed)
	return response, nil
}

func (s *AttributionService) analyzeOne(ctx context.Context, userID string, img UploadedImage) models.ImageAnalysisResult {
	info := models.ImageInfo{
		Filename:      img.Filename,
		ContentType:   img.ContentType,
		FileSizeBytes: int64(len(img.Data)),
		FileSizeMB:    math.Round(float64(len(img.Data))/(1024*1024)*100) / 100,
	}
	result := models.ImageAnalysisResult{ImageInfo: info}

	fail := func(status string, err error) models.ImageAnalysisResult {
		msg := err.Error()
		result.Status = status
		result.Error = &msg
		return result
	}

	if err := s.ValidateUpload(img); err != nil {
		log.Printf("[user=%v] validation failed [file=%v]: %v", userID, img.Filename, err)
		return fail(models.StatusError, err)
	}

	normalized, err := NormalizeUserID(userID)
	if err != nil {
		return fail(models.StatusError, err)
	}

	imageHash := HashImageBytes(img.Data)

	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	if s.Settings.AvoidDuplicates {
		if dup := s.findDuplicate(ctx, userID, imageHash, img.Filename); dup != nil {
			return *dup
		}
	}

	processed, err := ProcessImage(img.Data, s.Settings.ProcessedImageMaxDim, s.Settings.ProcessedImageQuality)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("image processing failed [user=%v] [file=%v]: %w", userID, img.Filename, err))
		return fail(models.StatusError, NewClientError(400, "could not decode '%v' as an image", img.Filename))
	}

	attributes, err := s.extractAttributes(ctx, img.Filename, processed.Data)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("attribute extraction failed [user=%v] [file=%v]: %w", userID, img.Filename, err))
		return fail(models.StatusAttributesFailed, err)
	}
	if errMsg, ok := attributes["error"].(string); ok {
		log.Printf("[user=%v] attribute extraction returned error [file=%v]: %v", userID, img.Filename, errMsg)
		result.Status = models.StatusAttributesFailed
		result.Attributes = attributes
		result.Error = &errMsg
		return result
	}

	uniqueName := UniqueFilename(normalized, img.Filename)
	ref, err := s.Blobs.Store(ctx, processed.Data, uniqueName, userID)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("blob store failed [user=%v] [file=%v]: %w", userID, img.Filename, err))
		return fail(models.StatusError, fmt.Errorf("failed to save processed image: %w", err))
	}
	savedImages := map[string]string{"processed": ref}

	attributes["image"] = img.Filename
	attributes["image_hash"] = imageHash
	attributes["user_id"] = normalized
	attributes["saved_images"] = savedImages
	attributes["processing_info"] = map[string]any{
		"original_dimensions":  fmt.Sprintf("%dx%d", processed.OriginalWidth, processed.OriginalHeight),
		"processed_dimensions": fmt.Sprintf("%dx%d", processed.Width, processed.Height),
		"scale_factor":         processed.ScaleFactor,
		"quality":              processed.Quality,
	}
	attributes["processing_metadata"] = map[string]any{
		"model":  s.Settings.GeminiModel,
		"width":  processed.Width,
		"height": processed.Height,
	}

	record := models.ImageRecord{
		Filename:           img.Filename,
		ContentType:        img.ContentType,
		FileSizeBytes:      info.FileSizeBytes,
		FileSizeMB:         info.FileSizeMB,
		Attributes:         attributes,
		ProcessedTimestamp: time.Now().Format(time.RFC3339),
		ImageHash:          imageHash,
		UserID:             normalized,
		SavedImages:        savedImages,
	}
	if err := s.Records.UpsertImage(ctx, userID, imageHash, record); err != nil {
		sentry.CaptureException(fmt.Errorf("record upsert failed [user=%v] [hash=%v]: %w", userID, imageHash, err))
		return fail(models.StatusError, fmt.Errorf("failed to persist attributes: %w", err))
	}

	result.Status = models.StatusAttributesExtracted
	result.Attributes = attributes
	if url := s.readURL(ctx, ref); url != "" {
		result.ImageURL = &url
	}
	log.Printf("[user=%v] extracted attributes [file=%v] [hash=%v]", userID, img.Filename, imageHash[:12])
	return result
}

// findDuplicate returns a short-circuit result when the hash already exists
// in the user's ledger. The stored attributes are returned annotated with
// duplicate_info; no provider call is made.
func (s *AttributionService) findDuplicate(ctx context.Context, userID, imageHash, filename string) *models.ImageAnalysisResult {
	ledger, err := s.Records.Load(ctx, userID)
	if err != nil {
		log.Printf("[user=%v] dedup check failed, treating as new upload: %v", userID, err)
		return nil
	}
	if ledger == nil {
		return nil
	}
	existing, ok := ledger.Images[imageHash]
	if !ok {
		return nil
	}

	log.Printf("[user=%v] duplicate upload [file=%v] matches [original=%v]", userID, filename, existing.Filename)

	attributes := map[string]any{}
	for k, v := range existing.Attributes {
		attributes[k] = v
	}
	attributes["duplicate_info"] = map[string]any{
		"is_duplicate":       true,
		"original_filename":  existing.Filename,
		"original_timestamp": existing.ProcessedTimestamp,
		"user_id":            existing.UserID,
	}

	result := &models.ImageAnalysisResult{
		ImageInfo: models.ImageInfo{
			Filename:      filename,
			ContentType:   existing.ContentType,
			FileSizeBytes: existing.FileSizeBytes,
			FileSizeMB:    existing.FileSizeMB,
		},
		Status:     models.StatusDuplicateFound,
		Attributes: attributes,
	}
	if ref, ok := existing.SavedImages["processed"]; ok {
		if url := s.readURL(ctx, ref); url != "" {
			result.ImageURL = &url
		}
	}
	return result
}

// extractAttributes calls the vision model through the retry policy. Rate
// limit exhaustion and non-retryable provider errors come back as structured
// error payloads rather than Go errors, matching what clients expect.
func (s *AttributionService) extractAttributes(ctx context.Context, filename string, imageJPEG []byte) (map[string]any, error) {
	operation := func() (map[string]any, error) {
		text, err := s.Vision.GenerateVision(ctx, AttributionPrompt(), imageJPEG)
		if err != nil {
			return nil, err
		}
		parsed, err := ParseModelJSON(text)
		if err != nil {
			return map[string]any{
				"error":        "Could not parse JSON response",
				"raw_response": text,
			}, nil
		}
		return parsed, nil
	}

	errorHandler := func(errMsg string, attempts int) map[string]any {
		if IsRateLimitError(fmt.Errorf("%s", errMsg)) {
			return RateLimitErrorPayload(attempts)
		}
		return map[string]any{"error": fmt.Sprintf("Failed to process image: %s", errMsg)}
	}

	return ExecuteWithRetry(ctx, s.RetryCfg, operation, errorHandler,
		fmt.Sprintf("attribute extraction (%s)", filename))
}

func (s *AttributionService) readURL(ctx context.Context, ref string) string {
	if s.URLCache != nil {
		url, err := s.URLCache.GetReadURL(ctx, ref)
		if err == nil {
			return url
		}
		log.Printf("[Note: %v] url cache lookup failed for %v", err, ref)
	}
	url, err := s.Blobs.DownloadURL(ctx, ref, s.Settings.DownloadURLExpiry)
	if err != nil {
		log.Printf("[Note: %v] download url resolution failed for %v", err, ref)
		return ""
	}
	return url
}
