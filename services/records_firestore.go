package services

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"closetapi/models"
)

const firestoreUsersCollection = "users"

// FirestoreRecordStore keeps user ledgers as documents in the "users"
// collection, one document per normalized user id.
type FirestoreRecordStore struct {
	client *firestore.Client
}

func NewFirestoreRecordStore(ctx context.Context, settings Settings) (*FirestoreRecordStore, error) {
	conf := &firebase.Config{ProjectID: settings.FirebaseProjectID}
	var opts []option.ClientOption
	if settings.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(settings.FirebaseCredentials))
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}
	return &FirestoreRecordStore{client: client}, nil
}

func (s *FirestoreRecordStore) BackendType() string { return "firestore" }

func (s *FirestoreRecordStore) Close() error { return s.client.Close() }

// Probe checks connectivity with a single cheap read.
func (s *FirestoreRecordStore) Probe(ctx context.Context) error {
	iter := s.client.Collection(firestoreUsersCollection).Limit(1).Documents(ctx)
	defer iter.Stop()
	_, err := iter.Next()
	if err != nil && err != iterator.Done {
		return err
	}
	return nil
}

// docID folds the normalized user id so lookups are case-insensitive.
func (s *FirestoreRecordStore) docID(userID string) (string, error) {
	normalized, err := NormalizeUserID(userID)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(normalized)), nil
}

func (s *FirestoreRecordStore) Load(ctx context.Context, userID string) (*models.UserLedger, error) {
	id, err := s.docID(userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.client.Collection(firestoreUsersCollection).Doc(id).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return nil, nil
		}
		sentry.CaptureException(fmt.Errorf("firestore load failed [user=%v]: %w", userID, err))
		return nil, fmt.Errorf("load ledger [user=%v]: %w", userID, err)
	}
	var ledger models.UserLedger
	if err := snap.DataTo(&ledger); err != nil {
		return nil, fmt.Errorf("decode ledger [user=%v]: %w", userID, err)
	}
	return &ledger, nil
}

func (s *FirestoreRecordStore) Save(ctx context.Context, userID string, ledger *models.UserLedger) error {
	id, err := s.docID(userID)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"images": ledger.Images,
		"metadata": map[string]any{
			"total_images": len(ledger.Images),
			"user_id":      ledger.Metadata.UserID,
			"last_updated": firestore.ServerTimestamp,
		},
	}
	_, err = s.client.Collection(firestoreUsersCollection).Doc(id).Set(ctx, payload, firestore.MergeAll)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("firestore save failed [user=%v]: %w", userID, err))
		return fmt.Errorf("save ledger [user=%v]: %w", userID, err)
	}
	return nil
}

// UpsertImage merges a single image entry without rewriting the whole images
// map. MergeAll on a nested map only touches the leaves named in the payload.
func (s *FirestoreRecordStore) UpsertImage(ctx context.Context, userID, imageHash string, record models.ImageRecord) error {
	id, err := s.docID(userID)
	if err != nil {
		return err
	}
	normalized, err := NormalizeUserID(userID)
	if err != nil {
		return err
	}
	existing, err := s.Load(ctx, userID)
	if err != nil {
		return err
	}
	total := 1
	if existing != nil {
		if _, ok := existing.Images[imageHash]; ok {
			total = len(existing.Images)
		} else {
			total = len(existing.Images) + 1
		}
	}
	payload := map[string]any{
		"images": map[string]any{imageHash: record},
		"metadata": map[string]any{
			"total_images": total,
			"user_id":      normalized,
			"last_updated": firestore.ServerTimestamp,
		},
	}
	_, err = s.client.Collection(firestoreUsersCollection).Doc(id).Set(ctx, payload, firestore.MergeAll)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("firestore upsert failed [user=%v] [hash=%v]: %w", userID, imageHash, err))
		return fmt.Errorf("upsert image [user=%v]: %w", userID, err)
	}
	return nil
}
