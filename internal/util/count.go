package util

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ParseCount reads the leading integer of a quantity cell. Trailing text
// after the digits is dropped ("12 units" is 12); anything without a leading
// number is 0. Negative values clamp to 0 and values too large for int clamp
// to math.MaxInt.
func ParseCount(input string) int {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 || neg {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt
	}
	if err != nil {
		return 0
	}
	return n
}
