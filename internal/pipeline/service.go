package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"

	"stockcards/internal"
	"stockcards/internal/config"
	"stockcards/internal/logging"
	"stockcards/internal/storage"
)


// CardService owns the current Session and records every generation
// attempt in the run history.
type CardService struct {
	db      *storage.DB
	cfg     config.Config
	session Session
}

func NewCardService(db *storage.DB, cfg config.Config) *CardService {
	return &CardService{db: db, cfg: cfg}
}

func (s *CardService) Session() Session {
	return s.session
}

// Run generates cards from in and, when outputPath is set, writes the card
// workbook. Generation failures are recorded and returned as *Failure.
func (s *CardService) Run(in Input, outputPath string) (Outcome, error) {
	next, outcome, genErr := Generate(s.session, in, GenerateOptions{
		Layout:       DefaultLayout,
		CardsPerPage: s.cfg.CardsPerPage,
	})

	run := internal.RunRow{
		ID:        outcome.RunID,
		Source:    in.Source,
		InputType: string(in.Type),
		Charset:   outcome.Charset,
		Hash:      next.Hash,
		Status:    internal.RunOK,
		Items:     outcome.Items,
		Pages:     outcome.Pages,
	}
	if genErr != nil {
		sum := sha256.Sum256(in.Data)
		run.ID = uuid.NewString()
		run.Hash = hex.EncodeToString(sum[:])
		run.Status = internal.RunFailed
		run.Failure = genErr.Error()
	}

	log := logging.ForRun(run.ID, "source", in.Source)
	if err := s.db.InsertRun(run, next.Items); err != nil {
		return outcome, err
	}
	if genErr != nil {
		log.Warn("generation failed", "error", genErr)
		return outcome, genErr
	}

	for _, w := range outcome.Warnings {
		log.Warn("layout", "warning", w)
	}
	s.session = next

	if outputPath != "" {
		if err := ExportPagesToXLSX(next.Pages, outputPath, s.cfg.CardColumns); err != nil {
			return outcome, err
		}
	}
	log.Info("cards generated", "items", outcome.Items, "pages", outcome.Pages, "charset", outcome.Charset, "output", outputPath)
	return outcome, nil
}

// Reexport rebuilds the pages of a stored run and writes them to outputPath.
func (s *CardService) Reexport(runID, outputPath string) (internal.RunRow, error) {
	if runID == "" {
		last, err := s.db.GetMetadata(storage.MetaLastOKRun)
		if err != nil {
			return internal.RunRow{}, err
		}
		if last == nil {
			return internal.RunRow{}, errors.New("no successful run recorded")
		}
		runID = *last
	}

	run, err := s.db.MustRun(runID)
	if err != nil {
		return internal.RunRow{}, err
	}
	if run.Status != internal.RunOK {
		return run, errors.New("run " + runID + " failed: " + run.Failure)
	}
	items, err := s.db.GetRunItems(runID)
	if err != nil {
		return run, err
	}
	pages := Paginate(items, s.cfg.CardsPerPage)
	return run, ExportPagesToXLSX(pages, outputPath, s.cfg.CardColumns)
}
