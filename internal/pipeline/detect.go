package pipeline

import (
	"strings"
)

type DetectResult struct {
	IsExport bool
	Score    float64
	Reason   string
}

var detectKeywords = []string{"在庫", "定数", "棚卸", "inventory", "stock", "export", "カード"}

// DetectInventoryExport scores whether a message carries an inventory
// export worth turning into cards.
func DetectInventoryExport(subject string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.3
			break
		}
	}

	for _, name := range attachmentNames {
		if _, ok := InputTypeForName(name); ok {
			score += 0.5
			ln := strings.ToLower(name)
			for _, kw := range detectKeywords {
				if strings.Contains(ln, kw) {
					score += 0.2
					break
				}
			}
			break
		}
	}
	if score > 1 {
		score = 1
	}

	isExport := score >= 0.5
	reason := "rules_negative"
	if isExport {
		reason = "rules_positive"
	}

	return DetectResult{IsExport: isExport, Score: score, Reason: reason}
}
