package pipeline

import (
	"fmt"
	"strings"
)

const drugARow = ",,,,DrugA,,100,,,,,,5,8,3,10"

// exportText builds an export with 21 preamble lines, a header line and
// the given data lines. Blank lines are sprinkled in and must not count.
func exportText(data ...string) string {
	var b strings.Builder
	for i := 0; i < DefaultLayout.HeaderRow; i++ {
		fmt.Fprintf(&b, "preamble %d,,\r\n", i+1)
		if i%7 == 0 {
			b.WriteString("\r\n")
		}
	}
	b.WriteString("code,,,,name,,price,,,,,,safety,max,rx,patients\r\n")
	for _, line := range data {
		b.WriteString(line + "\r\n\r\n")
	}
	return b.String()
}

func dataRow(name string, safety, maxOut string) string {
	fields := make([]string, 16)
	fields[4] = name
	fields[6] = "120"
	fields[12] = safety
	fields[13] = maxOut
	fields[14] = "2"
	fields[15] = "1"
	return strings.Join(fields, ",")
}
