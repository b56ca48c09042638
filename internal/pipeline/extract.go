package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"stockcards/internal"
)

var reSpaces = regexp.MustCompile(`\s+`)

// Input is one export handed to a generation cycle.
type Input struct {
	Source  string
	Type    internal.InputType
	Data    []byte
	Charset string
}

// InputFromFile reads path as an export. An empty inputType is inferred
// from the file extension.
func InputFromFile(path, inputType, charset string) (Input, error) {
	t := internal.InputType(strings.ToLower(strings.TrimSpace(inputType)))
	if t == "" {
		var ok bool
		if t, ok = InputTypeForName(path); !ok {
			return Input{}, readFailure(fmt.Errorf("cannot infer input type from %s", filepath.Base(path)))
		}
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return Input{}, readFailure(err)
	}
	return Input{Source: path, Type: t, Data: blob, Charset: charset}, nil
}

func InputTypeForName(name string) (internal.InputType, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return internal.InputCSV, true
	case ".xlsx", ".xlsm":
		return internal.InputXLSX, true
	case ".html", ".htm":
		return internal.InputHTML, true
	default:
		return "", false
	}
}

// LoadRows turns an input into raw rows, returning the charset used for
// text inputs.
func LoadRows(in Input) ([][]string, string, error) {
	switch in.Type {
	case internal.InputCSV:
		text, charset, err := DecodeText(in.Data, in.Charset)
		if err != nil {
			return nil, charset, err
		}
		return ParseTable(text), charset, nil
	case internal.InputXLSX:
		rows, err := RowsFromXLSX(in.Data)
		return rows, "", err
	case internal.InputHTML:
		text, charset, err := DecodeText(in.Data, in.Charset)
		if err != nil {
			return nil, charset, err
		}
		rows, err := RowsFromHTML(text)
		return rows, charset, err
	default:
		return nil, "", fmt.Errorf("unsupported input type: %s", in.Type)
	}
}

// RowsFromXLSX reads the first sheet of a workbook as the rows a CSV save of
// that sheet would produce. See padRows.
func RowsFromXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return padRows(rows), nil
}

// RowsFromHTML reads the first table of an HTML export.
func RowsFromHTML(html string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table found")
	}

	rows := [][]string{}
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		row := []string{}
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, reSpaces.ReplaceAllString(cell.Text(), " "))
		})
		rows = append(rows, row)
	})
	return padRows(rows), nil
}

// MailExport is an export attached to a mail message.
type MailExport struct {
	FileName string
	Input    Input
}

// ExtractExportsFromMail parses a raw message and returns every attachment
// that looks like an inventory export, along with the subject line.
func ExtractExportsFromMail(raw []byte, charset string) ([]MailExport, string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}

	out := []MailExport{}
	for _, att := range env.Attachments {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			continue
		}
		t, ok := InputTypeForName(name)
		if !ok {
			continue
		}
		out = append(out, MailExport{
			FileName: name,
			Input:    Input{Source: name, Type: t, Data: att.Content, Charset: charset},
		})
	}
	return out, env.GetHeader("Subject"), nil
}

// padRows trims every cell and pads each row to the widest row, the way a
// CSV save writes `,,,` for short or empty rows. A row is skipped only when
// its CSV line would be blank, which keeps header offsets identical across
// formats.
func padRows(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, width)
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
		}
		if width == 0 || (width == 1 && cells[0] == "") {
			continue
		}
		out = append(out, cells)
	}
	return out
}
