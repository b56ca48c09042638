package connectors

import (
	"context"

	"stockcards/internal"
)

// MailConnector pulls raw messages that may carry inventory exports.
type MailConnector interface {
	FetchMessages(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}
