package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stockcards/internal"
	"stockcards/internal/config"
	"stockcards/internal/storage"
	"stockcards/internal/util"
)

// ProcessingService turns stored mail messages into card workbooks.
type ProcessingService struct {
	db    *storage.DB
	cfg   config.Config
	cards *CardService
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg, cards: NewCardService(db, cfg)}
}

type ProcessResult struct {
	MessageID int
	Generated int
	Failed    int
	Outputs   []string
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	msg, err := s.db.MustMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessMessage(msg)
}

func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListMessagesByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedMessages := 0
	generated := 0
	for _, msg := range pending {
		if provider != "" && msg.Provider != provider {
			continue
		}
		res, err := s.ProcessMessage(msg)
		if err != nil {
			return processedMessages, generated, err
		}
		processedMessages++
		generated += res.Generated
	}
	return processedMessages, generated, nil
}

// ProcessMessage generates cards for every export attached to msg.
// Exports that fail generation are counted, not returned as errors.
func (s *ProcessingService) ProcessMessage(msg internal.MessageRow) (ProcessResult, error) {
	raw, err := os.ReadFile(msg.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	exports, subject, err := ExtractExportsFromMail(raw, s.cfg.InputCharset)
	if err != nil {
		return ProcessResult{}, err
	}

	names := make([]string, 0, len(exports))
	for _, e := range exports {
		names = append(names, e.FileName)
	}
	res := ProcessResult{MessageID: msg.ID}

	detect := DetectInventoryExport(firstNonEmpty(subject, msg.Subject), names)
	if !detect.IsExport {
		slog.Info("message skipped", "message_id", msg.MessageID, "score", detect.Score)
		return res, s.db.UpdateMessageStatus(msg.ID, "skipped")
	}

	for _, e := range exports {
		stem := strings.TrimSuffix(e.FileName, filepath.Ext(e.FileName))
		out := filepath.Join(s.cfg.OutputDir, "mail", fmt.Sprintf("%d_%s.xlsx", msg.ID, util.SanitizeFileName(stem)))
		if _, err := s.cards.Run(e.Input, out); err != nil {
			if _, ok := AsFailure(err); ok {
				res.Failed++
				continue
			}
			return res, err
		}
		res.Generated++
		res.Outputs = append(res.Outputs, out)
	}

	status := "processed"
	if res.Generated == 0 {
		status = "failed"
	}
	return res, s.db.UpdateMessageStatus(msg.ID, status)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
