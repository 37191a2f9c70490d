package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"closetapi/models"
)

// RecordStore persists per-user image-attribute ledgers. Load returns
// (nil, nil) when the user has no ledger yet.
type RecordStore interface {
	Load(ctx context.Context, userID string) (*models.UserLedger, error)
	Save(ctx context.Context, userID string, ledger *models.UserLedger) error
	UpsertImage(ctx context.Context, userID, imageHash string, record models.ImageRecord) error
	BackendType() string
}

// NewRecordStore picks the backend for this process: Firestore when enabled
// and reachable, otherwise the local JSON store. A failed probe falls back
// loudly instead of erroring, so the service still comes up offline.
func NewRecordStore(ctx context.Context, settings Settings) RecordStore {
	local := NewLocalRecordStore(settings)
	if !settings.UseFirestore {
		return local
	}
	remote, err := NewFirestoreRecordStore(ctx, settings)
	if err != nil {
		log.Printf("[records] firestore unavailable, falling back to local store: %v", err)
		return local
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := remote.Probe(probeCtx); err != nil {
		log.Printf("[records] firestore probe failed, falling back to local store: %v", err)
		return local
	}
	log.Printf("[records] using firestore backend [project=%v]", settings.FirebaseProjectID)
	return remote
}

// MigrateRecords copies every user ledger found in src into dst. Used to move
// local data into Firestore (or back, as a backup).
func MigrateRecords(ctx context.Context, src, dst RecordStore, userIDs []string) (int, error) {
	migrated := 0
	for _, userID := range userIDs {
		ledger, err := src.Load(ctx, userID)
		if err != nil {
			return migrated, fmt.Errorf("load %v from %v: %w", userID, src.BackendType(), err)
		}
		if ledger == nil {
			continue
		}
		if err := dst.Save(ctx, userID, ledger); err != nil {
			return migrated, fmt.Errorf("save %v to %v: %w", userID, dst.BackendType(), err)
		}
		migrated++
		log.Printf("[records] migrated ledger [user=%v] [images=%v] %v -> %v",
			userID, len(ledger.Images), src.BackendType(), dst.BackendType())
	}
	return migrated, nil
}
