package setup

import (
	"sort"

	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/store"
)

// Pages returns every page ordered by rank.
func Pages(st store.Store, h *host.Host) []Page {
	pages := []Page{
		NewEngine(st, h),
		NewCIM(st, h),
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Rank() < pages[j].Rank()
	})
	return pages
}
