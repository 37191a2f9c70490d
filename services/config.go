package services

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func GetEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// Settings holds every runtime knob, sourced from the environment once at
// startup. Tests build the struct directly.
type Settings struct {
	GeminiAPIKey string
	OpenAIAPIKey string
	GeminiModel  string
	OpenAIModel  string

	// "gemini" or "openai"
	DefaultStyler string

	UserDataDirectory  string
	AttributesJSONFile string
	CreateUserSubdirs  bool
	ImageDirectory     string

	MaxFileSizeMB     int64
	MaxBatchSize      int
	AvoidDuplicates   bool
	AllowedExtensions []string

	ProcessedImageMaxDim  int
	ProcessedImageQuality int

	UseFirestore        bool
	FirebaseProjectID   string
	FirebaseCredentials string

	UseR2              bool
	R2AccountID        string
	R2AccessKeyID      string
	R2AccessKeySecret  string
	R2BucketName       string
	DownloadURLExpiry  time.Duration
	RetryInitialDelay  time.Duration
	RetryMaxAttempts   int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
	RetryMultiplier    float64
}

func NewSettingsFromEnv() Settings {
	return Settings{
		GeminiAPIKey: GetEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey: GetEnv("OPENAI_API_KEY", ""),
		GeminiModel:  GetEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIModel:  GetEnv("OPENAI_MODEL", "gpt-4o-mini"),

		DefaultStyler: GetEnv("DEFAULT_STYLER", "gemini"),

		UserDataDirectory:  GetEnv("USER_DATA_DIRECTORY", "user_data"),
		AttributesJSONFile: GetEnv("ATTRIBUTES_JSON_FILE", "image_attributes.json"),
		CreateUserSubdirs:  GetEnvBool("CREATE_USER_SUBDIRS", true),
		ImageDirectory:     GetEnv("IMAGE_DIRECTORY", "images"),

		MaxFileSizeMB:     int64(GetEnvInt("MAX_FILE_SIZE_MB", 10)),
		MaxBatchSize:      GetEnvInt("MAX_BATCH_SIZE", 10),
		AvoidDuplicates:   GetEnvBool("AVOID_DUPLICATES", true),
		AllowedExtensions: splitCSV(GetEnv("ALLOWED_EXTENSIONS", "")),

		ProcessedImageMaxDim:  GetEnvInt("PROCESSED_IMAGE_MAX_DIM", 1024),
		ProcessedImageQuality: GetEnvInt("PROCESSED_IMAGE_QUALITY", 85),

		UseFirestore:        GetEnvBool("USE_FIRESTORE", false),
		FirebaseProjectID:   GetEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: GetEnv("FIREBASE_CREDENTIALS_FILE", ""),

		UseR2:             GetEnvBool("USE_R2", false),
		R2AccountID:       GetEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     GetEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: GetEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      GetEnv("R2_BUCKET_NAME", "closet-images"),
		DownloadURLExpiry: time.Duration(GetEnvInt("DOWNLOAD_URL_EXPIRY_MINUTES", 60)) * time.Minute,

		RetryInitialDelay: time.Duration(GetEnvInt("RETRY_INITIAL_DELAY_MS", 1000)) * time.Millisecond,
		RetryMaxAttempts:  GetEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:    time.Duration(GetEnvInt("RETRY_BASE_DELAY_MS", 2000)) * time.Millisecond,
		RetryMaxDelay:     time.Duration(GetEnvInt("RETRY_MAX_DELAY_MS", 60000)) * time.Millisecond,
		RetryMultiplier:   2.0,
	}
}
