package models

import "time"

// ImageRecord is the per-image entry stored in a user's ledger, keyed by the
// SHA-256 hash of the original upload.
type ImageRecord struct {
	Filename           string            `json:"filename" firestore:"filename"`
	ContentType        string            `json:"content_type" firestore:"content_type"`
	FileSizeBytes      int64             `json:"file_size_bytes" firestore:"file_size_bytes"`
	FileSizeMB         float64           `json:"file_size_mb" firestore:"file_size_mb"`
	Attributes         map[string]any    `json:"attributes" firestore:"attributes"`
	ProcessedTimestamp string            `json:"processed_timestamp" firestore:"processed_timestamp"`
	ImageHash          string            `json:"image_hash" firestore:"image_hash"`
	UserID             string            `json:"user_id" firestore:"user_id"`
	SavedImages        map[string]string `json:"saved_images,omitempty" firestore:"saved_images,omitempty"`
}

type LedgerMetadata struct {
	TotalImages int `json:"total_images" firestore:"total_images"`
	// LastUpdated must stay a time value: Firestore writes it as a server
	// timestamp, and DataTo can only decode that into a time.Time target.
	LastUpdated *time.Time `json:"last_updated" firestore:"last_updated"`
	UserID      string     `json:"user_id" firestore:"user_id"`
}

// UserLedger is the full attribute store for one user: every processed image
// keyed by content hash, plus bookkeeping metadata.
type UserLedger struct {
	Images   map[string]ImageRecord `json:"images" firestore:"images"`
	Metadata LedgerMetadata         `json:"metadata" firestore:"metadata"`
}

func NewUserLedger(userID string) *UserLedger {
	return &UserLedger{
		Images: map[string]ImageRecord{},
		Metadata: LedgerMetadata{
			TotalImages: 0,
			UserID:      userID,
		},
	}
}

// Upsert stores record under imageHash and refreshes the metadata counters.
func (l *UserLedger) Upsert(imageHash string, record ImageRecord) {
	if l.Images == nil {
		l.Images = map[string]ImageRecord{}
	}
	l.Images[imageHash] = record
	now := time.Now().UTC()
	l.Metadata.TotalImages = len(l.Images)
	l.Metadata.LastUpdated = &now
}
