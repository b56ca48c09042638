package imap

import (
	"reflect"
	"testing"
	"time"

	"github.com/emersion/go-imap"

	"stockcards/internal/config"
)

func TestFormatAddresses(t *testing.T) {
	got := formatAddresses([]*imap.Address{
		{PersonalName: "Pharmacy", MailboxName: "stock", HostName: "example.com"},
		nil,
		{MailboxName: "ops", HostName: "example.com"},
	})
	if got != "Pharmacy <stock@example.com>, ops@example.com" {
		t.Fatalf("got %q", got)
	}
	if formatAddresses(nil) != "" {
		t.Fatal("expected empty")
	}
}

func TestNewConnectorRequiresHost(t *testing.T) {
	if _, err := NewConnector(config.Config{IMAPUser: "u", IMAPPassword: "p"}); err == nil {
		t.Fatal("expected error")
	}
}

func multipart(parts ...*imap.BodyStructure) *imap.BodyStructure {
	return &imap.BodyStructure{MIMEType: "multipart", MIMESubType: "mixed", Parts: parts}
}

func textPart() *imap.BodyStructure {
	return &imap.BodyStructure{MIMEType: "text", MIMESubType: "plain", Params: map[string]string{"charset": "utf-8"}}
}

func attachment(name string) *imap.BodyStructure {
	return &imap.BodyStructure{
		MIMEType:          "application",
		MIMESubType:       "octet-stream",
		Disposition:       "attachment",
		DispositionParams: map[string]string{"filename": name},
	}
}

func TestAttachmentNames(t *testing.T) {
	cases := []struct {
		name string
		bs   *imap.BodyStructure
		want []string
	}{
		{name: "nil", bs: nil, want: nil},
		{name: "text only", bs: textPart(), want: []string{}},
		{name: "flat", bs: multipart(textPart(), attachment("stock.csv")), want: []string{"stock.csv"}},
		{
			name: "nested",
			bs:   multipart(multipart(textPart(), textPart()), attachment("a.xlsx"), attachment("b.pdf")),
			want: []string{"a.xlsx", "b.pdf"},
		},
		{
			name: "content type name",
			bs:   multipart(textPart(), &imap.BodyStructure{MIMEType: "text", MIMESubType: "html", Params: map[string]string{"name": "export.html"}}),
			want: []string{"export.html"},
		},
		{name: "utf-8 encoded word", bs: multipart(attachment("=?UTF-8?B?5Zyo5bqrLmNzdg==?=")), want: []string{"在庫.csv"}},
		{name: "iso-2022-jp encoded word", bs: multipart(attachment("=?ISO-2022-JP?B?GyRCOl84SxsoQg==?=.csv")), want: []string{"在庫.csv"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := attachmentNames(tc.bs)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestScreenKeepsExportCandidates(t *testing.T) {
	received := time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC)
	msgs := []*imap.Message{
		{
			Uid:           30,
			InternalDate:  received,
			Envelope:      &imap.Envelope{Subject: "定数 export", MessageId: "<c@example.com>"},
			BodyStructure: multipart(textPart(), attachment("stock.xlsx")),
		},
		{
			Uid:           10,
			Envelope:      &imap.Envelope{Subject: "lunch"},
			BodyStructure: multipart(textPart(), attachment("menu.pdf")),
		},
		{
			Uid:           20,
			Envelope:      &imap.Envelope{Subject: "在庫", From: []*imap.Address{{MailboxName: "stock", HostName: "example.com"}}},
			BodyStructure: multipart(textPart()),
		},
		{
			Uid:           5,
			Envelope:      &imap.Envelope{Subject: "weekly"},
			BodyStructure: multipart(attachment("=?UTF-8?B?5Zyo5bqrLmNzdg==?=")),
		},
	}

	got := screen(msgs)
	if len(got) != 2 {
		t.Fatalf("candidates=%+v", got)
	}
	if got[0].uid != 5 || got[1].uid != 30 {
		t.Fatalf("order=%d,%d", got[0].uid, got[1].uid)
	}
	if got[0].messageID != "imap-5" {
		t.Fatalf("fallback id=%q", got[0].messageID)
	}

	fetched := got[1].toFetched([]byte("raw"))
	if fetched.Provider != "imap" || fetched.MessageID != "<c@example.com>" || fetched.ReceivedAt != "2026-02-08T09:00:00Z" || string(fetched.Raw) != "raw" {
		t.Fatalf("fetched=%+v", fetched)
	}
	if !reflect.DeepEqual(got[1].attachments, []string{"stock.xlsx"}) {
		t.Fatalf("attachments=%q", got[1].attachments)
	}
}
