package pipeline

import "stockcards/internal"

const DefaultCardsPerPage = 16

// Paginate lays items out in order on pages of exactly capacity slots.
// The last page is padded with empty slots. No items means no pages.
func Paginate(items []internal.ItemRecord, capacity int) []internal.Page {
	if capacity <= 0 {
		capacity = DefaultCardsPerPage
	}

	total := (len(items) + capacity - 1) / capacity
	pages := make([]internal.Page, 0, total)
	for p := 0; p < total; p++ {
		slots := make([]internal.Slot, capacity)
		start := p * capacity
		end := min(start+capacity, len(items))
		for i := start; i < end; i++ {
			slots[i-start] = internal.Slot{Item: &items[i]}
		}
		pages = append(pages, internal.Page{Number: p + 1, Slots: slots})
	}
	return pages
}
