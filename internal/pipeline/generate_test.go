package pipeline

import (
	"errors"
	"testing"

	"stockcards/internal"
)

func csvInput(text string) Input {
	return Input{Source: "export.csv", Type: internal.InputCSV, Data: []byte(text)}
}

func TestGenerateReplacesSession(t *testing.T) {
	first, out, err := Generate(Session{}, csvInput(exportText(drugARow)), GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Items != 1 || out.Pages != 1 || out.RunID == "" || out.RunID != first.RunID {
		t.Fatalf("outcome=%+v", out)
	}
	if first.Hash == "" || first.Charset != "UTF-8" || len(first.Pages[0].Slots) != 16 {
		t.Fatalf("session=%+v", first)
	}

	second, out, err := Generate(first, csvInput(exportText(dataRow("X", "1", "2"), dataRow("Y", "3", "0"))), GenerateOptions{CardsPerPage: 1})
	if err != nil {
		t.Fatal(err)
	}
	if out.Pages != 2 || len(second.Items) != 2 || second.Items[0].Name != "X" {
		t.Fatalf("second=%+v", second)
	}
	if second.RunID == first.RunID {
		t.Fatal("run id reused")
	}
}

func TestGenerateFailureKeepsSession(t *testing.T) {
	prev, _, err := Generate(Session{}, csvInput(exportText(drugARow)), GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		in   Input
		want error
	}{
		{name: "too few rows", in: csvInput(exportText()), want: ErrInsufficientRows},
		{name: "all zero", in: csvInput(exportText(dataRow("A", "0", "0"))), want: ErrNoQualifyingData},
		{name: "bad workbook", in: Input{Source: "x.xlsx", Type: internal.InputXLSX, Data: []byte("not a zip")}, want: ErrReadFailure},
		{name: "unknown type", in: Input{Source: "x", Type: "pdf"}, want: ErrReadFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := Generate(prev, tc.in, GenerateOptions{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v", err)
			}
			if got.RunID != prev.RunID || len(got.Items) != len(prev.Items) {
				t.Fatalf("session replaced: %+v", got)
			}
		})
	}
}

func TestFailureMessages(t *testing.T) {
	for _, k := range []FailureKind{InsufficientRows, NoQualifyingData, ReadFailure} {
		f := &Failure{Kind: k}
		if f.Message() == "" || f.Error() != string(k) {
			t.Fatalf("kind %s: message=%q error=%q", k, f.Message(), f.Error())
		}
	}
	inner := errors.New("disk gone")
	f := readFailure(inner)
	if !errors.Is(f, inner) || !errors.Is(f, ErrReadFailure) {
		t.Fatalf("unwrap broken: %v", f)
	}
}
