package pipeline

import (
	"fmt"
	"strings"

	"stockcards/internal"
	"stockcards/internal/util"
)

// Layout locates the header row and the data columns of an export.
// All indexes are 0-based; rows are counted after blank lines are dropped.
type Layout struct {
	HeaderRow         int
	Name              int
	Price             int
	SafetyStock       int
	MaxOut            int
	PrescriptionCount int
	PatientCount      int
}

// DefaultLayout matches the inventory export the cards are printed from.
var DefaultLayout = Layout{
	HeaderRow:         21,
	Name:              4,
	Price:             6,
	SafetyStock:       12,
	MaxOut:            13,
	PrescriptionCount: 14,
	PatientCount:      15,
}

// MinRows is the header row plus one data row.
func (l Layout) MinRows() int {
	return l.HeaderRow + 2
}

func (l Layout) MaxColumn() int {
	return max(l.Name, l.Price, l.SafetyStock, l.MaxOut, l.PrescriptionCount, l.PatientCount)
}

// HeaderWarnings describes problems with the header row that do not stop
// extraction. Column positions are never validated against header labels.
func (l Layout) HeaderWarnings(rows [][]string) []string {
	if len(rows) <= l.HeaderRow {
		return nil
	}
	header := rows[l.HeaderRow]
	if len(header) <= l.MaxColumn() {
		return []string{fmt.Sprintf("header row %d has %d columns, expected more than %d", l.HeaderRow+1, len(header), l.MaxColumn())}
	}
	return nil
}

func ExtractRecords(rows [][]string, layout Layout) ([]internal.ItemRecord, error) {
	if len(rows) < layout.MinRows() {
		return nil, insufficientRows(len(rows), layout.MinRows())
	}

	maxCol := layout.MaxColumn()
	out := make([]internal.ItemRecord, 0, len(rows)-layout.HeaderRow-1)
	for _, row := range rows[layout.HeaderRow+1:] {
		if len(row) <= maxCol {
			continue
		}

		safety := util.ParseCount(row[layout.SafetyStock])
		maxOut := util.ParseCount(row[layout.MaxOut])
		rec := internal.ItemRecord{
			Name:              row[layout.Name],
			Price:             row[layout.Price],
			KeepQuantity:      max(safety, maxOut),
			SafetyStock:       safety,
			MaxOut:            maxOut,
			PrescriptionCount: row[layout.PrescriptionCount],
			PatientCount:      row[layout.PatientCount],
		}
		if strings.TrimSpace(rec.Name) == "" || rec.KeepQuantity <= 0 {
			continue
		}
		out = append(out, rec)
	}

	if len(out) == 0 {
		return nil, &Failure{Kind: NoQualifyingData, Detail: fmt.Sprintf("%d candidate rows", len(rows)-layout.HeaderRow-1)}
	}
	return out, nil
}
