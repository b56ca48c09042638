package connectors

import (
	"context"
	"log/slog"

	"stockcards/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
}

// FetchResult counts one fetch. Known messages were already stored with the
// same content, which happens when the mailbox is read without marking seen.
type FetchResult struct {
	Fetched int
	Stored  int
	Known   int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
	}
}

func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchMessages(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		row, written, err := s.store.Store(msg)
		if err != nil {
			return res, err
		}
		if !written {
			res.Known++
			slog.Debug("mail already stored", "provider", msg.Provider, "messageId", msg.MessageID, "status", row.Status)
			continue
		}
		res.Stored++
	}
	return res, nil
}
