package pipeline

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"stockcards/internal"
)

// Session is the collection of the currently loaded export and its pages.
// A successful generation replaces it; a failed one leaves it alone.
type Session struct {
	RunID   string
	Source  string
	Charset string
	Hash    string
	Items   []internal.ItemRecord
	Pages   []internal.Page
}

func (s Session) Empty() bool {
	return len(s.Items) == 0
}

type Outcome struct {
	RunID    string
	Items    int
	Pages    int
	Charset  string
	Warnings []string
}

type GenerateOptions struct {
	Layout       Layout
	CardsPerPage int
}

// Generate runs one cycle over in: rows, records, pages. On failure prev is
// returned unchanged together with a *Failure.
func Generate(prev Session, in Input, opts GenerateOptions) (Session, Outcome, error) {
	layout := opts.Layout
	if layout == (Layout{}) {
		layout = DefaultLayout
	}

	rows, charset, err := LoadRows(in)
	if err != nil {
		return prev, Outcome{Charset: charset}, readFailure(err)
	}

	items, err := ExtractRecords(rows, layout)
	if err != nil {
		return prev, Outcome{Charset: charset}, err
	}

	pages := Paginate(items, opts.CardsPerPage)
	sum := sha256.Sum256(in.Data)
	next := Session{
		RunID:   uuid.NewString(),
		Source:  in.Source,
		Charset: charset,
		Hash:    hex.EncodeToString(sum[:]),
		Items:   items,
		Pages:   pages,
	}

	return next, Outcome{
		RunID:    next.RunID,
		Items:    len(items),
		Pages:    len(pages),
		Charset:  charset,
		Warnings: layout.HeaderWarnings(rows),
	}, nil
}
