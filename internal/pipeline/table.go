package pipeline

import "strings"

// SplitLine splits one export line into trimmed fields. Quoted fields may
// contain commas and doubled quotes; an unterminated quote runs to end of line.
func SplitLine(line string) []string {
	fields := []string{}
	var cur strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}

	return append(fields, strings.TrimSpace(cur.String()))
}

// ParseTable splits text into rows, skipping lines that are blank after
// trimming. Row indexes downstream count only non-blank lines.
func ParseTable(text string) [][]string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, SplitLine(line))
	}
	return rows
}
