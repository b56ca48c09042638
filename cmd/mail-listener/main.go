package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"stockcards/internal/config"
	"stockcards/internal/listener"
	"stockcards/internal/logging"
	"stockcards/internal/storage"
)

// mail-listener turns export mails and inbox drops into card workbooks until
// interrupted, or for a single cycle with -once.
func main() {
	once := flag.Bool("once", false, "run one cycle and exit")
	provider := flag.String("provider", "", "override MAIL_LISTENER_PROVIDER (gmail|imap|none)")
	inbox := flag.Bool("inbox", false, "also scan INBOX_DIR regardless of INBOX_WATCH")
	flag.Parse()

	cfg, err := config.Load()
	must(err)
	if *provider != "" {
		cfg.MailListenerProvider = *provider
	}
	if *inbox {
		cfg.InboxWatch = true
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *once {
		must(svc.RunCycle(ctx))
		return
	}
	slog.Info("mail listener started", "provider", cfg.MailListenerProvider, "intervalSec", cfg.MailListenerIntervalSec, "inbox", cfg.InboxWatch)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
