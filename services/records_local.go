package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"closetapi/models"
)

// LocalRecordStore keeps one JSON ledger file per user on the local disk.
type LocalRecordStore struct {
	baseDir      string
	jsonFileName string
	userSubdirs  bool
}

func NewLocalRecordStore(settings Settings) *LocalRecordStore {
	return &LocalRecordStore{
		baseDir:      settings.UserDataDirectory,
		jsonFileName: settings.AttributesJSONFile,
		userSubdirs:  settings.CreateUserSubdirs,
	}
}

func (s *LocalRecordStore) BackendType() string { return "local" }

func (s *LocalRecordStore) ledgerPath(userID string) (string, error) {
	normalized, err := NormalizeUserID(userID)
	if err != nil {
		return "", err
	}
	if s.userSubdirs {
		return EnsureWithinBase(s.baseDir, normalized, s.jsonFileName)
	}
	return fmt.Sprintf("%s_%s", normalized, s.jsonFileName), nil
}

func (s *LocalRecordStore) Load(ctx context.Context, userID string) (*models.UserLedger, error) {
	path, err := s.ledgerPath(userID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger %v: %w", path, err)
	}
	var ledger models.UserLedger
	if err := json.Unmarshal(data, &ledger); err != nil {
		// A corrupted ledger is treated as absent; the next save rewrites it.
		log.Printf("[records] corrupted ledger treated as empty [user=%v] [path=%v]: %v", userID, path, err)
		return nil, nil
	}
	return &ledger, nil
}

func (s *LocalRecordStore) Save(ctx context.Context, userID string, ledger *models.UserLedger) error {
	path, err := s.ledgerPath(userID)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory %v: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger for %v: %w", userID, err)
	}
	// Write-then-rename keeps readers from ever seeing a half-written file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger %v: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace ledger %v: %w", path, err)
	}
	return nil
}

func (s *LocalRecordStore) UpsertImage(ctx context.Context, userID, imageHash string, record models.ImageRecord) error {
	ledger, err := s.Load(ctx, userID)
	if err != nil {
		return err
	}
	if ledger == nil {
		normalized, err := NormalizeUserID(userID)
		if err != nil {
			return err
		}
		ledger = models.NewUserLedger(normalized)
	}
	ledger.Upsert(imageHash, record)
	return s.Save(ctx, userID, ledger)
}

// KnownUsers lists user ids that currently have a ledger on disk. Feeds the
// migration helper.
func (s *LocalRecordStore) KnownUsers() ([]string, error) {
	var users []string
	if s.userSubdirs {
		entries, err := os.ReadDir(s.baseDir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if _, err := os.Stat(filepath.Join(s.baseDir, entry.Name(), s.jsonFileName)); err == nil {
				users = append(users, entry.Name())
			}
		}
		return users, nil
	}
	matches, err := filepath.Glob("*_" + s.jsonFileName)
	if err != nil {
		return nil, err
	}
	for _, match := range matches {
		users = append(users, strings.TrimSuffix(match, "_"+s.jsonFileName))
	}
	return users, nil
}
