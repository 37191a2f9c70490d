package models

// Per-image processing outcomes reported back to the client.
const (
	StatusAttributesExtracted = "attributes_extracted"
	StatusDuplicateFound      = "duplicate_found"
	StatusAttributesFailed    = "attributes_failed"
	StatusError               = "error"
)

type ImageInfo struct {
	Filename      string  `json:"filename"`
	ContentType   string  `json:"content_type"`
	FileSizeBytes int64   `json:"file_size_bytes"`
	FileSizeMB    float64 `json:"file_size_mb"`
}

type ImageAnalysisResult struct {
	ImageInfo  ImageInfo      `json:"image_info"`
	Status     string         `json:"status"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Error      *string        `json:"error,omitempty"`
	ImageURL   *string        `json:"image_url,omitempty"`
}

type AttributeAnalysisResponse struct {
	Success             bool                  `json:"success"`
	Message             string                `json:"message"`
	ProcessingTimestamp string                `json:"processing_timestamp"`
	TotalImages         int                   `json:"total_images"`
	SuccessfulAnalyses  int                   `json:"successful_analyses"`
	FailedAnalyses      int                   `json:"failed_analyses"`
	Results             []ImageAnalysisResult `json:"results"`
}

// StylingItem is the flattened view of a ledger record handed to the styler
// prompt. Items whose identifier or category is unknown never make it here.
type StylingItem struct {
	Image        string `json:"image"`
	Identifier   string `json:"identifier"`
	Category     string `json:"category"`
	Gender       string `json:"gender"`
	PrimaryColor string `json:"primary_color"`
	Style        string `json:"style"`
	Occasion     string `json:"occasion"`
	Weather      string `json:"weather"`
	Fit          string `json:"fit"`
	Description  string `json:"description"`
}

type OutfitSelection struct {
	Top                  *string `json:"top"`
	Bottom               *string `json:"bottom"`
	Outerwear            *string `json:"outerwear"`
	Justification        string  `json:"justification"`
	StyleNotes           string  `json:"style_notes"`
	OtherAccessories     string  `json:"other_accessories"`
	WeatherConsideration string  `json:"weather_consideration"`
}

type StylerResponse struct {
	Success              bool              `json:"success"`
	Message              string            `json:"message"`
	UserID               string            `json:"user_id"`
	StylingTimestamp     string            `json:"styling_timestamp"`
	RequestParameters    map[string]string `json:"request_parameters"`
	OutfitRecommendation *OutfitSelection  `json:"outfit_recommendation,omitempty"`
	AvailableItemsCount  int               `json:"available_items_count"`
	OutfitImages         map[string]string `json:"outfit_images,omitempty"`
	Error                *string           `json:"error,omitempty"`
	Suggestion           *string           `json:"suggestion,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
