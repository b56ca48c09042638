package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"stockcards/internal"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func xlsxExport(data ...[]any) []byte {
	rows := [][]any{}
	for i := 0; i < DefaultLayout.HeaderRow; i++ {
		rows = append(rows, []any{fmt.Sprintf("preamble %d", i+1)})
	}
	rows = append(rows, []any{"code", "", "", "", "name", "", "price", "", "", "", "", "", "safety", "max", "rx", "patients"})
	rows = append(rows, data...)
	return mkXLSX(rows)
}

func TestRowsFromXLSX(t *testing.T) {
	blob := xlsxExport([]any{"", "", "", "", " DrugA ", "", 100, "", "", "", "", "", 5, 8, 3, 10})
	rows, err := RowsFromXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 23 {
		t.Fatalf("rows=%d", len(rows))
	}
	items, err := ExtractRecords(rows, DefaultLayout)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != "DrugA" || items[0].KeepQuantity != 8 || items[0].Price != "100" {
		t.Fatalf("items=%+v", items)
	}
}

func TestRowsFromXLSXKeepsRowsWithBlankTail(t *testing.T) {
	blob := xlsxExport(
		[]any{"", "", "", "", "DrugA", "", 100, "", "", "", "", "", 5, 8, "", ""},
		[]any{"", "", "", "", "DrugB", "", "", "", "", "", "", "", 2},
	)
	rows, err := RowsFromXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range rows {
		if len(row) != 16 {
			t.Fatalf("row %d has %d cells", i, len(row))
		}
	}

	items, err := ExtractRecords(rows, DefaultLayout)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items=%+v", items)
	}
	if items[0].Name != "DrugA" || items[0].KeepQuantity != 8 || items[0].PrescriptionCount != "" || items[0].PatientCount != "" {
		t.Fatalf("items[0]=%+v", items[0])
	}
	if items[1].Name != "DrugB" || items[1].KeepQuantity != 2 {
		t.Fatalf("items[1]=%+v", items[1])
	}

	csvItems, err := ExtractRecords(ParseTable(exportText(",,,,DrugA,,100,,,,,,5,8,,", ",,,,DrugB,,,,,,,,2,,,")), DefaultLayout)
	if err != nil {
		t.Fatal(err)
	}
	if len(csvItems) != len(items) || csvItems[0] != items[0] || csvItems[1] != items[1] {
		t.Fatalf("csv=%+v xlsx=%+v", csvItems, items)
	}
}

func TestRowsFromXLSXEmptyRowsCountLikeCSV(t *testing.T) {
	rows := [][]any{}
	for i := 0; i < DefaultLayout.HeaderRow; i++ {
		if i == 5 {
			rows = append(rows, []any{})
			continue
		}
		rows = append(rows, []any{fmt.Sprintf("preamble %d", i+1)})
	}
	rows = append(rows, []any{"code", "", "", "", "name", "", "price", "", "", "", "", "", "safety", "max", "rx", "patients"})
	rows = append(rows, []any{"", "", "", "", "DrugA", "", 100, "", "", "", "", "", 5, 8, 3, 10})

	got, err := RowsFromXLSX(mkXLSX(rows))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 23 {
		t.Fatalf("rows=%d", len(got))
	}
	for _, c := range got[5] {
		if c != "" {
			t.Fatalf("row 5=%q", got[5])
		}
	}
	if got[DefaultLayout.HeaderRow][4] != "name" {
		t.Fatalf("header=%q", got[DefaultLayout.HeaderRow])
	}

	// The same sheet saved as CSV writes the empty row as a line of commas.
	var b strings.Builder
	for i := 0; i < DefaultLayout.HeaderRow; i++ {
		if i == 5 {
			b.WriteString(",,,,,,,,,,,,,,,\n")
			continue
		}
		fmt.Fprintf(&b, "preamble %d,,,,,,,,,,,,,,,\n", i+1)
	}
	b.WriteString("code,,,,name,,price,,,,,,safety,max,rx,patients\n")
	b.WriteString(drugARow + "\n")
	if csvRows := ParseTable(b.String()); len(csvRows) != len(got) {
		t.Fatalf("csv rows=%d xlsx rows=%d", len(csvRows), len(got))
	}
}

func TestRowsFromXLSXSingleColumnSkipsBlankRows(t *testing.T) {
	got, err := RowsFromXLSX(mkXLSX([][]any{{"a"}, {}, {"b"}}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0][0] != "a" || got[1][0] != "b" {
		t.Fatalf("rows=%q", got)
	}
}

func TestRowsFromHTML(t *testing.T) {
	html := `<html><body><table>
<tr><th>name</th><th>qty</th></tr>
<tr><td></td><td> </td></tr>
<tr><td>Drug
  B</td><td>4</td></tr>
<tr><td>short</td></tr>
</table><table><tr><td>ignored</td></tr></table></body></html>`
	rows, err := RowsFromHTML(html)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) < 3 || rows[2][0] != "Drug B" || rows[2][1] != "4" {
		t.Fatalf("rows=%q", rows)
	}
	if len(rows) != 4 || len(rows[3]) != 2 || rows[3][0] != "short" {
		t.Fatalf("short row=%q", rows)
	}
	if rows[1][0] != "" || rows[1][1] != "" {
		t.Fatalf("blank row=%q", rows[1])
	}

	if _, err := RowsFromHTML("<p>no table</p>"); err == nil {
		t.Fatal("expected error")
	}
}

func TestInputTypeForName(t *testing.T) {
	cases := map[string]internal.InputType{
		"export.CSV":  internal.InputCSV,
		"export.txt":  internal.InputCSV,
		"export.xlsx": internal.InputXLSX,
		"export.htm":  internal.InputHTML,
	}
	for name, want := range cases {
		got, ok := InputTypeForName(name)
		if !ok || got != want {
			t.Fatalf("%s: got %s ok=%v", name, got, ok)
		}
	}
	if _, ok := InputTypeForName("export.pdf"); ok {
		t.Fatal("pdf should not be accepted")
	}
}

func TestInputFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte(exportText(drugARow)), 0o644); err != nil {
		t.Fatal(err)
	}
	in, err := InputFromFile(path, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if in.Type != internal.InputCSV || len(in.Data) == 0 {
		t.Fatalf("in=%+v", in)
	}

	_, err = InputFromFile(filepath.Join(t.TempDir(), "missing.csv"), "", "")
	if f, ok := AsFailure(err); !ok || f.Kind != ReadFailure {
		t.Fatalf("err=%v", err)
	}
}

func mkMail(t *testing.T, subject string, attachments map[string][]byte) []byte {
	t.Helper()
	b := enmime.Builder().
		From("Pharmacy", "stock@example.com").
		To("Cards", "cards@example.com").
		Subject(subject).
		Text([]byte("export attached"))
	for name, content := range attachments {
		b = b.AddAttachment(content, "application/octet-stream", name)
	}
	part, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractExportsFromMail(t *testing.T) {
	raw := mkMail(t, "在庫 export", map[string][]byte{
		"stock.csv": []byte(exportText(drugARow)),
		"notes.pdf": []byte("%PDF-1.4"),
	})
	exports, subject, err := ExtractExportsFromMail(raw, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(subject, "export") {
		t.Fatalf("subject=%q", subject)
	}
	if len(exports) != 1 || exports[0].FileName != "stock.csv" || exports[0].Input.Type != internal.InputCSV {
		t.Fatalf("exports=%+v", exports)
	}
	if !bytes.Equal(exports[0].Input.Data, []byte(exportText(drugARow))) {
		t.Fatal("attachment content changed")
	}
}
