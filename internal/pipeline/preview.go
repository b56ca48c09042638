package pipeline

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"stockcards/internal"
	"stockcards/internal/util"
)

const previewLabelWidth = 18

// RenderPreview prints each page as a text grid of cards.
func RenderPreview(w io.Writer, pages []internal.Page, columns int) {
	if columns <= 0 {
		columns = 4
	}

	for _, page := range pages {
		fmt.Fprintf(w, "page %d/%d (%d cards)\n", page.Number, len(pages), page.Filled())

		table := tablewriter.NewWriter(w)
		table.SetAutoWrapText(false)
		table.SetRowLine(true)
		table.SetAlignment(tablewriter.ALIGN_CENTER)

		row := make([]string, 0, columns)
		for _, slot := range page.Slots {
			row = append(row, cardLabel(slot))
			if len(row) == columns {
				table.Append(row)
				row = make([]string, 0, columns)
			}
		}
		if len(row) > 0 {
			for len(row) < columns {
				row = append(row, "")
			}
			table.Append(row)
		}
		table.Render()
	}
}

// RenderItems prints the records as a flat table.
func RenderItems(w io.Writer, items []internal.ItemRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "name", "keep", "safety", "max", "price", "rx", "patients"})
	table.SetAutoWrapText(false)
	for i, it := range items {
		table.Append([]string{
			strconv.Itoa(i + 1),
			util.FitWidth(it.Name, 32),
			strconv.Itoa(it.KeepQuantity),
			strconv.Itoa(it.SafetyStock),
			strconv.Itoa(it.MaxOut),
			it.Price,
			it.PrescriptionCount,
			it.PatientCount,
		})
	}
	table.Render()
}

func cardLabel(slot internal.Slot) string {
	if slot.Empty() {
		return ""
	}
	return fmt.Sprintf("%s\n%d", util.FitWidth(slot.Item.Name, previewLabelWidth), slot.Item.KeepQuantity)
}
