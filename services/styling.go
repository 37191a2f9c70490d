package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"closetapi/models"
)

const (
	DefaultCity     = "Toronto"
	DefaultWeather  = "early fall weather - expect temperatures around 15-20°C, partly cloudy"
	DefaultOccasion = "casual day out"

	maxStylingParamLength = 200
)

// StylingParams are the sanitized request parameters echoed back in the
// response.
type StylingParams struct {
	City     string
	Weather  string
	Occasion string
}

func (p StylingParams) asMap() map[string]string {
	return map[string]string{
		"city":     p.City,
		"weather":  p.Weather,
		"occasion": p.Occasion,
	}
}

// ValidateStylingParams trims the inputs, substitutes defaults for blanks and
// rejects oversized values.
func ValidateStylingParams(city, weather, occasion string) (StylingParams, error) {
	params := StylingParams{
		City:     strings.TrimSpace(city),
		Weather:  strings.TrimSpace(weather),
		Occasion: strings.TrimSpace(occasion),
	}
	if params.City == "" {
		params.City = DefaultCity
	}
	if params.Weather == "" {
		params.Weather = DefaultWeather
	}
	if params.Occasion == "" {
		params.Occasion = DefaultOccasion
	}
	for name, value := range params.asMap() {
		if len(value) > maxStylingParamLength {
			return StylingParams{}, NewClientError(400,
				"parameter '%v' is too long, maximum length is %v characters", name, maxStylingParamLength)
		}
	}
	return params, nil
}

// StylingService builds outfit recommendations from a user's stored
// attributes.
type StylingService struct {
	Settings Settings
	Records  RecordStore
	Blobs    BlobStore
	Text     TextGenerator
	URLCache URLCacheServiceProvider
	RetryCfg RetryConfig
}

func NewStylingService(settings Settings, records RecordStore, blobs BlobStore, text TextGenerator, urlCache URLCacheServiceProvider) *StylingService {
	return &StylingService{
		Settings: settings,
		Records:  records,
		Blobs:    blobs,
		Text:     text,
		URLCache: urlCache,
		RetryCfg: RetryConfigFromSettings(settings),
	}
}

// StyleableItems flattens ledger records into prompt items, filling defaults
// and dropping anything whose identifier or category is unknown.
func StyleableItems(ledger *models.UserLedger) []models.StylingItem {
	var items []models.StylingItem
	for imageHash, record := range ledger.Images {
		attrs := record.Attributes
		if len(attrs) == 0 {
			continue
		}
		item := models.StylingItem{
			Image:        stringAttr(attrs, "image", record.Filename),
			Identifier:   stringAttr(attrs, "identifier", "unknown"),
			Category:     stringAttr(attrs, "category", "unknown"),
			Gender:       stringAttr(attrs, "gender", "unisex"),
			PrimaryColor: stringAttr(attrs, "primary_color", "unknown"),
			Style:        stringAttr(attrs, "style", "casual"),
			Occasion:     stringAttr(attrs, "occasion", "everyday"),
			Weather:      stringAttr(attrs, "weather", "mild"),
			Fit:          stringAttr(attrs, "fit", "regular"),
			Description:  stringAttr(attrs, "description", "clothing item"),
		}
		if item.Image == "" {
			item.Image = fmt.Sprintf("image_%s", imageHash[:8])
		}
		if item.Identifier == "unknown" || item.Category == "unknown" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func stringAttr(attrs map[string]any, key, fallback string) string {
	if value, ok := attrs[key].(string); ok && value != "" {
		return value
	}
	return fallback
}

// GenerateOutfit runs the full styling flow for one user.
func (s *StylingService) GenerateOutfit(ctx context.Context, userID string, params StylingParams) (*models.StylerResponse, error) {
	log.Printf("[user=%v] starting outfit recommendation [city=%v] [occasion=%v]", userID, params.City, params.Occasion)

	ledger, err := s.Records.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ledger == nil || len(ledger.Images) == 0 {
		return nil, NewClientError(404,
			"No clothing data found for user '%v'. Please upload some images first using /attribute_clothes endpoint.", userID)
	}

	items := StyleableItems(ledger)
	response := &models.StylerResponse{
		UserID:              userID,
		StylingTimestamp:    time.Now().Format(time.RFC3339),
		RequestParameters:   params.asMap(),
		AvailableItemsCount: len(items),
	}

	if len(items) == 0 {
		log.Printf("[user=%v] no styleable clothing items found", userID)
		errMsg := "No valid clothing items available for styling"
		response.Success = false
		response.Message = fmt.Sprintf(
			"No valid clothing items found for user '%v'. Please upload some images with valid clothing items first.", userID)
		response.Error = &errMsg
		return response, nil
	}

	outfit, err := s.recommend(ctx, userID, items, params)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("styling failed [user=%v]: %w", userID, err))
		response.Success = false
		response.Message = fmt.Sprintf("Failed to generate outfit recommendation for user '%v'", userID)
		var retryErr *RetryError
		if errors.As(err, &retryErr) && retryErr.Kind == RetryRateLimited {
			payload := RateLimitErrorPayload(retryErr.Attempts)
			errMsg := payload["error"].(string)
			suggestion := payload["suggestion"].(string)
			response.Error = &errMsg
			response.Suggestion = &suggestion
		} else {
			errMsg := fmt.Sprintf("Styling error: %v", err)
			response.Error = &errMsg
		}
		return response, nil
	}

	response.Success = true
	response.Message = fmt.Sprintf("Outfit recommendation generated successfully for user '%v'", userID)
	response.OutfitRecommendation = outfit
	response.OutfitImages = s.outfitImageURLs(ctx, outfit, ledger)
	log.Printf("[user=%v] outfit recommendation complete [top=%v] [bottom=%v] [urls=%v]",
		userID, deref(outfit.Top), deref(outfit.Bottom), len(response.OutfitImages))
	return response, nil
}

func (s *StylingService) recommend(ctx context.Context, userID string, items []models.StylingItem, params StylingParams) (*models.OutfitSelection, error) {
	closetJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode closet items: %w", err)
	}
	prompt := StylingPrompt(string(closetJSON), params.City, params.Weather, params.Occasion)

	operation := func() (*models.OutfitSelection, error) {
		text, err := s.Text.GenerateText(ctx, prompt)
		if err != nil {
			return nil, err
		}
		parsed, err := ParseModelJSON(text)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(parsed)
		if err != nil {
			return nil, err
		}
		var outfit models.OutfitSelection
		if err := json.Unmarshal(raw, &outfit); err != nil {
			return nil, fmt.Errorf("decode outfit selection: %w", err)
		}
		return &outfit, nil
	}

	return ExecuteWithRetry(ctx, s.RetryCfg, operation, nil,
		fmt.Sprintf("outfit styling (user=%s)", userID))
}

// outfitImageURLs resolves the recommended filenames back to download URLs.
// Filenames match exactly or by substring against stored names and refs; a
// role with no match is logged and omitted.
func (s *StylingService) outfitImageURLs(ctx context.Context, outfit *models.OutfitSelection, ledger *models.UserLedger) map[string]string {
	roles := map[string]*string{
		"top":       outfit.Top,
		"bottom":    outfit.Bottom,
		"outerwear": outfit.Outerwear,
	}
	urls := map[string]string{}
	for role, filename := range roles {
		if filename == nil || *filename == "" {
			continue
		}
		ref, ok := findProcessedRef(ledger, *filename)
		if !ok {
			log.Printf("[Note: no stored image found for %v=%v]", role, *filename)
			continue
		}
		url := s.readURL(ctx, ref)
		if url == "" {
			log.Printf("[Note: failed to resolve download url for %v=%v]", role, *filename)
			continue
		}
		urls[role] = url
	}
	return urls
}

func findProcessedRef(ledger *models.UserLedger, filename string) (string, bool) {
	for _, record := range ledger.Images {
		matched := record.Filename == filename || strings.Contains(record.Filename, filename)
		if !matched {
			for _, ref := range record.SavedImages {
				if strings.Contains(ref, filename) {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}
		if ref, ok := record.SavedImages["processed"]; ok {
			return ref, true
		}
	}
	return "", false
}

func (s *StylingService) readURL(ctx context.Context, ref string) string {
	if s.URLCache != nil {
		url, err := s.URLCache.GetReadURL(ctx, ref)
		if err == nil {
			return url
		}
		log.Printf("[Note: %v] url cache lookup failed for %v", err, ref)
	}
	url, err := s.Blobs.DownloadURL(ctx, ref, s.Settings.DownloadURLExpiry)
	if err != nil {
		return ""
	}
	return url
}

func deref(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}
