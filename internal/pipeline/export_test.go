package pipeline

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExportPagesToXLSX(t *testing.T) {
	items := makeItems(20)
	pages := Paginate(items, 16)
	out := filepath.Join(t.TempDir(), "nested", "cards.xlsx")
	if err := ExportPagesToXLSX(pages, out, 4); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{itemsSheet, PageSheetName(1), PageSheetName(2)}
	if fmt.Sprint(sheets) != fmt.Sprint(want) {
		t.Fatalf("sheets=%v", sheets)
	}

	rows, err := f.GetRows(itemsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 21 || rows[1][2] != "item-0" || rows[20][0] != "2" {
		t.Fatalf("items sheet rows=%d", len(rows))
	}

	// Card 6 on page 1 sits in column B of the second card row.
	name, _ := f.GetCellValue(PageSheetName(1), fmt.Sprintf("B%d", cardRows+cardGap+1))
	keep, _ := f.GetCellValue(PageSheetName(1), fmt.Sprintf("B%d", cardRows+cardGap+2))
	if name != "item-5" || keep != "6" {
		t.Fatalf("name=%q keep=%q", name, keep)
	}

	// Page 2 holds four cards; the second card row stays empty.
	empty, _ := f.GetCellValue(PageSheetName(2), fmt.Sprintf("A%d", cardRows+cardGap+1))
	if empty != "" {
		t.Fatalf("expected empty slot, got %q", empty)
	}
}
