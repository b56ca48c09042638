package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"stockcards/internal"
)

const (
	itemsSheet   = "items"
	cardRows     = 5
	cardGap      = 1
	cardColWidth = 24
)

type cardStyles struct {
	name   int
	keep   int
	detail int
	last   int
}

// ExportPagesToXLSX writes one sheet per page with a grid of cards that is
// columns wide, plus an items sheet listing every record in page order.
func ExportPagesToXLSX(pages []internal.Page, outputPath string, columns int) error {
	if columns <= 0 {
		columns = 4
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), itemsSheet); err != nil {
		return err
	}
	if err := writeItemsSheet(f, pages); err != nil {
		return err
	}

	styles, err := newCardStyles(f)
	if err != nil {
		return err
	}
	for _, page := range pages {
		if err := writePageSheet(f, page, len(pages), columns, styles); err != nil {
			return fmt.Errorf("page %d: %w", page.Number, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func PageSheetName(number int) string {
	return fmt.Sprintf("page %d", number)
}

func writeItemsSheet(f *excelize.File, pages []internal.Page) error {
	headers := []string{"page", "slot", "name", "price", "keep_quantity", "safety_stock", "max_out", "prescription_count", "patient_count"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(itemsSheet, cell, h); err != nil {
			return err
		}
	}

	r := 2
	for _, page := range pages {
		for slot, s := range page.Slots {
			if s.Empty() {
				continue
			}
			values := []any{page.Number, slot + 1, s.Item.Name, s.Item.Price, s.Item.KeepQuantity, s.Item.SafetyStock, s.Item.MaxOut, s.Item.PrescriptionCount, s.Item.PatientCount}
			for c, v := range values {
				cell, _ := excelize.CoordinatesToCellName(c+1, r)
				if err := f.SetCellValue(itemsSheet, cell, v); err != nil {
					return err
				}
			}
			r++
		}
	}
	return nil
}

func writePageSheet(f *excelize.File, page internal.Page, total, columns int, styles cardStyles) error {
	sheet := PageSheetName(page.Number)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	lastCol, _ := excelize.ColumnNumberToName(columns)
	if err := f.SetColWidth(sheet, "A", lastCol, cardColWidth); err != nil {
		return err
	}
	size, orientation := 9, "portrait"
	if err := f.SetPageLayout(sheet, &excelize.PageLayoutOptions{Size: &size, Orientation: &orientation}); err != nil {
		return err
	}
	_ = f.SetHeaderFooter(sheet, &excelize.HeaderFooterOptions{OddFooter: fmt.Sprintf("&C%d / %d", page.Number, total)})

	for i, slot := range page.Slots {
		if slot.Empty() {
			continue
		}
		col := i%columns + 1
		top := (i/columns)*(cardRows+cardGap) + 1
		if err := writeCard(f, sheet, col, top, *slot.Item, styles); err != nil {
			return err
		}
	}
	return nil
}

func writeCard(f *excelize.File, sheet string, col, top int, item internal.ItemRecord, styles cardStyles) error {
	lines := []struct {
		value any
		style int
	}{
		{item.Name, styles.name},
		{item.KeepQuantity, styles.keep},
		{fmt.Sprintf("safety %d / max %d", item.SafetyStock, item.MaxOut), styles.detail},
		{labelled("price", item.Price), styles.detail},
		{fmt.Sprintf("%s / %s", labelled("rx", item.PrescriptionCount), labelled("patients", item.PatientCount)), styles.last},
	}

	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(col, top+i)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, line.value); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, line.style); err != nil {
			return err
		}
	}
	return nil
}

func labelled(label, value string) string {
	if value == "" {
		value = "-"
	}
	return label + " " + value
}

func newCardStyles(f *excelize.File) (cardStyles, error) {
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	mk := func(font *excelize.Font, edges ...string) (int, error) {
		return f.NewStyle(&excelize.Style{Font: font, Alignment: center, Border: borders(edges...)})
	}

	var s cardStyles
	var err error
	if s.name, err = mk(&excelize.Font{Bold: true, Size: 11}, "left", "right", "top"); err != nil {
		return s, err
	}
	if s.keep, err = mk(&excelize.Font{Bold: true, Size: 28}, "left", "right"); err != nil {
		return s, err
	}
	if s.detail, err = mk(&excelize.Font{Size: 9}, "left", "right"); err != nil {
		return s, err
	}
	if s.last, err = mk(&excelize.Font{Size: 9}, "left", "right", "bottom"); err != nil {
		return s, err
	}
	return s, nil
}

func borders(edges ...string) []excelize.Border {
	out := make([]excelize.Border, 0, len(edges))
	for _, e := range edges {
		out = append(out, excelize.Border{Type: e, Color: "000000", Style: 1})
	}
	return out
}
