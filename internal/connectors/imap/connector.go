package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"stockcards/internal"
	"stockcards/internal/config"
	"stockcards/internal/pipeline"
)

// Connector pulls unseen inventory-export mails over IMAP. Messages are
// screened on envelope and BODYSTRUCTURE first, and only candidates carrying
// a csv/xlsx/html attachment are downloaded.
type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	markSeen bool
}

func NewConnector(cfg config.Config) (*Connector, error) {
	for _, req := range []struct{ key, value string }{
		{"IMAP_HOST", cfg.IMAPHost},
		{"IMAP_USER", cfg.IMAPUser},
		{"IMAP_PASSWORD", cfg.IMAPPassword},
	} {
		if err := cfg.Require(req.key, req.value); err != nil {
			return nil, err
		}
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		markSeen: cfg.IMAPMarkSeen,
	}, nil
}

// candidate is an unseen message whose envelope and attachment names passed
// export detection.
type candidate struct {
	uid         uint32
	messageID   string
	subject     string
	from        string
	received    time.Time
	attachments []string
}

// FetchMessages downloads the newest max unseen export candidates from the
// mailbox. Bodies are fetched with BODY.PEEK so only IMAP_MARK_SEEN flags
// them as seen; non-candidates are never touched.
func (c *Connector) FetchMessages(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	client, err := c.open()
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if _, err := client.Select(label, false); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", label, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	headers, err := fetchAll(client, uids, []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchBodyStructure})
	if err != nil {
		return nil, fmt.Errorf("imap fetch structure: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cands := screen(headers)
	slog.Debug("imap screened", "label", label, "unseen", len(uids), "candidates", len(cands))
	if max > 0 && len(cands) > max {
		cands = cands[len(cands)-max:]
	}
	if len(cands) == 0 {
		return nil, nil
	}

	out, delivered, err := download(client, cands)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.markSeen && len(delivered) > 0 {
		set := new(imap.SeqSet)
		set.AddNum(delivered...)
		if err := client.UidStore(set, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, fmt.Errorf("imap mark seen: %w", err)
		}
	}
	return out, nil
}

func (c *Connector) open() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	var client *imapclient.Client
	var err error
	if c.secure {
		client, err = imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	} else {
		client, err = imapclient.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", addr, err)
	}
	if err := client.Login(c.user, c.password); err != nil {
		_ = client.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return client, nil
}

// download fetches the raw bodies of cands and returns them with the UIDs
// that actually arrived.
func download(client *imapclient.Client, cands []candidate) ([]internal.FetchedMailMessage, []uint32, error) {
	uids := make([]uint32, 0, len(cands))
	for _, cand := range cands {
		uids = append(uids, cand.uid)
	}

	section := &imap.BodySectionName{Peek: true}
	msgs, err := fetchAll(client, uids, []imap.FetchItem{imap.FetchUid, section.FetchItem()})
	if err != nil {
		return nil, nil, fmt.Errorf("imap fetch body: %w", err)
	}

	bodies := make(map[uint32][]byte, len(msgs))
	for _, msg := range msgs {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, nil, err
		}
		bodies[msg.Uid] = raw
	}

	out := make([]internal.FetchedMailMessage, 0, len(cands))
	delivered := make([]uint32, 0, len(cands))
	for _, cand := range cands {
		raw, ok := bodies[cand.uid]
		if !ok {
			slog.Warn("imap body missing", "uid", cand.uid, "subject", cand.subject)
			continue
		}
		out = append(out, cand.toFetched(raw))
		delivered = append(delivered, cand.uid)
	}
	return out, delivered, nil
}

func (cand candidate) toFetched(raw []byte) internal.FetchedMailMessage {
	received := time.Now().UTC()
	if !cand.received.IsZero() {
		received = cand.received.UTC()
	}
	return internal.FetchedMailMessage{
		Provider:   "imap",
		MessageID:  cand.messageID,
		Subject:    cand.subject,
		From:       cand.from,
		ReceivedAt: received.Format(time.RFC3339),
		Raw:        raw,
	}
}

func fetchAll(client *imapclient.Client, uids []uint32, items []imap.FetchItem) ([]*imap.Message, error) {
	set := new(imap.SeqSet)
	set.AddNum(uids...)

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() { done <- client.UidFetch(set, items, ch) }()

	out := make([]*imap.Message, 0, len(uids))
	for msg := range ch {
		if msg != nil {
			out = append(out, msg)
		}
	}
	return out, <-done
}

// screen keeps the messages that look like inventory exports, oldest UID
// first.
func screen(msgs []*imap.Message) []candidate {
	out := make([]candidate, 0, len(msgs))
	for _, msg := range msgs {
		cand, ok := screenMessage(msg)
		if !ok {
			continue
		}
		out = append(out, cand)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].uid < out[j].uid })
	return out
}

func screenMessage(msg *imap.Message) (candidate, bool) {
	cand := candidate{uid: msg.Uid, received: msg.InternalDate}
	if msg.Envelope != nil {
		cand.messageID = msg.Envelope.MessageId
		cand.subject = msg.Envelope.Subject
		cand.from = formatAddresses(msg.Envelope.From)
	}
	if cand.messageID == "" {
		cand.messageID = fmt.Sprintf("imap-%d", msg.Uid)
	}
	cand.attachments = attachmentNames(msg.BodyStructure)

	det := pipeline.DetectInventoryExport(cand.subject, cand.attachments)
	if !det.IsExport {
		slog.Debug("imap skip", "uid", msg.Uid, "subject", cand.subject, "score", det.Score)
		return candidate{}, false
	}
	return cand, true
}

// attachmentNames lists the decoded file names of every part in a body
// structure, depth first.
func attachmentNames(bs *imap.BodyStructure) []string {
	if bs == nil {
		return nil
	}
	names := []string{}
	if name := partFileName(bs); name != "" {
		names = append(names, name)
	}
	for _, part := range bs.Parts {
		names = append(names, attachmentNames(part)...)
	}
	return names
}

var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, err
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	},
}

func partFileName(bs *imap.BodyStructure) string {
	name := bs.DispositionParams["filename"]
	if name == "" {
		name = bs.Params["name"]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if decoded, err := wordDecoder.DecodeHeader(name); err == nil {
		return decoded
	}
	return name
}

func formatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(a.MailboxName+"@"+a.HostName, "@")
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			parts = append(parts, email)
		}
	}
	return strings.Join(parts, ", ")
}
