package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"stockcards/internal"
	"stockcards/internal/storage"
	"stockcards/internal/util"
)

// MailStoreService keeps raw messages on disk under <raw>/<provider>/<hash>.eml
// and registers them for export processing.
type MailStoreService struct {
	db         *storage.DB
	rawMailDir string
}

func NewMailStoreService(db *storage.DB, rawMailDir string) *MailStoreService {
	return &MailStoreService{db: db, rawMailDir: rawMailDir}
}

// Store registers msg and reports whether anything was written. A message
// already stored with the same content keeps its row and processing status.
func (s *MailStoreService) Store(msg internal.FetchedMailMessage) (internal.MessageRow, bool, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.db.GetMessageByProviderMessageID(msg.Provider, msg.MessageID)
	if err != nil {
		return internal.MessageRow{}, false, err
	}
	if existing != nil && existing.Hash == hash {
		return *existing, false, nil
	}

	dir := filepath.Join(s.rawMailDir, util.SanitizeFileName(msg.Provider))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return internal.MessageRow{}, false, err
	}
	rawPath := filepath.Join(dir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.MessageRow{}, false, fmt.Errorf("write raw mail: %w", err)
		}
	}

	row, err := s.db.UpsertMessage(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, "fetched")
	return row, true, err
}
