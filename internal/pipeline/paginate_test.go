package pipeline

import (
	"fmt"
	"testing"

	"stockcards/internal"
)

func makeItems(n int) []internal.ItemRecord {
	items := make([]internal.ItemRecord, n)
	for i := range items {
		items[i] = internal.ItemRecord{Name: fmt.Sprintf("item-%d", i), KeepQuantity: i + 1}
	}
	return items
}

func TestPaginateCounts(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 31, 32, 33, 100} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			items := makeItems(n)
			pages := Paginate(items, 16)

			wantPages := (n + 15) / 16
			if len(pages) != wantPages {
				t.Fatalf("pages=%d want %d", len(pages), wantPages)
			}

			next := 0
			for p, page := range pages {
				if page.Number != p+1 {
					t.Fatalf("page number=%d", page.Number)
				}
				if len(page.Slots) != 16 {
					t.Fatalf("page %d has %d slots", p, len(page.Slots))
				}
				filled := page.Filled()
				if p < len(pages)-1 && filled != 16 {
					t.Fatalf("page %d filled=%d", p, filled)
				}
				for i, slot := range page.Slots {
					if i < filled {
						if slot.Empty() || slot.Item != &items[next] {
							t.Fatalf("page %d slot %d out of order", p, i)
						}
						next++
					} else if !slot.Empty() {
						t.Fatalf("page %d slot %d should be empty", p, i)
					}
				}
			}
			if next != n {
				t.Fatalf("placed %d of %d items", next, n)
			}

			if n > 0 {
				last := pages[len(pages)-1]
				wantReal := n % 16
				if wantReal == 0 {
					wantReal = 16
				}
				if last.Filled() != wantReal || len(last.Slots)-last.Filled() != (16-n%16)%16 {
					t.Fatalf("last page filled=%d", last.Filled())
				}
			}
		})
	}
}

func TestPaginateDefaultCapacity(t *testing.T) {
	pages := Paginate(makeItems(20), 0)
	if len(pages) != 2 || len(pages[0].Slots) != DefaultCardsPerPage {
		t.Fatalf("pages=%d", len(pages))
	}
}

func TestPaginateSingleItem(t *testing.T) {
	items, err := ExtractRecords(ParseTable(exportText(drugARow)), DefaultLayout)
	if err != nil {
		t.Fatal(err)
	}
	pages := Paginate(items, DefaultCardsPerPage)
	if len(pages) != 1 || pages[0].Filled() != 1 || len(pages[0].Slots) != 16 {
		t.Fatalf("pages=%+v", pages)
	}
	if pages[0].Slots[0].Item.Name != "DrugA" {
		t.Fatalf("slot0=%+v", pages[0].Slots[0].Item)
	}
}
