package util

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

const maxFileNameBytes = 120

// SanitizeFileName makes an arbitrary label usable as a file name stem. The
// result is at most maxFileNameBytes long and never splits a rune.
func SanitizeFileName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "\"", "_")
	out := repl.Replace(strings.TrimSpace(input))
	if len(out) > maxFileNameBytes {
		cut := maxFileNameBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	if out == "" {
		return "untitled"
	}
	return out
}

// FitWidth truncates s to at most width terminal cells. Full-width
// characters count as two cells.
func FitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
