package listener

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockcards/internal/config"
	"stockcards/internal/connectors"
	gmailconnector "stockcards/internal/connectors/gmail"
	imapconnector "stockcards/internal/connectors/imap"
	"stockcards/internal/pipeline"
	"stockcards/internal/storage"
)

const (
	doneDir   = "done"
	failedDir = "failed"
)

// Service polls the configured mailbox and the inbox drop folder and turns
// every export it finds into a card workbook.
type Service struct {
	db    *storage.DB
	cfg   config.Config
	cards *pipeline.CardService
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg, cards: pipeline.NewCardService(db, cfg)}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.RunCycle(ctx); err != nil {
			slog.Error("listener cycle", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	if provider != "" && provider != "none" {
		if err := s.mailCycle(ctx, provider); err != nil {
			return err
		}
	}

	if s.cfg.InboxWatch {
		generated, failed, err := s.ScanInbox()
		if err != nil {
			return err
		}
		if generated+failed > 0 {
			slog.Info("inbox scanned", "generated", generated, "failed", failed)
		}
	}
	return nil
}

func (s *Service) mailCycle(ctx context.Context, provider string) error {
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg)
	processedMessages, generated, err := processor.ProcessPending(s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	slog.Info("mail cycle done", "provider", provider, "fetched", fetchResult.Fetched, "stored", fetchResult.Stored, "known", fetchResult.Known, "processed", processedMessages, "generated", generated)
	return nil
}

// ScanInbox generates cards for every export file in the inbox folder and
// moves each file to done/ or failed/ afterwards.
func (s *Service) ScanInbox() (int, int, error) {
	entries, err := os.ReadDir(s.cfg.InboxDir)
	if os.IsNotExist(err) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	generated, failed := 0, 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := pipeline.InputTypeForName(entry.Name()); !ok {
			continue
		}

		path := filepath.Join(s.cfg.InboxDir, entry.Name())
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		out := filepath.Join(s.cfg.OutputDir, "inbox", stem+".xlsx")

		dest := doneDir
		in, err := pipeline.InputFromFile(path, "", s.cfg.InputCharset)
		if err == nil {
			_, err = s.cards.Run(in, out)
		}
		if err != nil {
			if _, ok := pipeline.AsFailure(err); !ok {
				return generated, failed, err
			}
			dest = failedDir
			failed++
		} else {
			generated++
		}

		if err := moveInto(path, filepath.Join(s.cfg.InboxDir, dest)); err != nil {
			return generated, failed, err
		}
	}
	return generated, failed, nil
}

func moveInto(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(dir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(path)))
	}
	return os.Rename(path, target)
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
