package dm

import (
	"slices"

	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/format"
)

// SortMessages returns a copy of msgs ordered by createdAt ascending. Ties
// keep their input order; unparsable timestamps sort as the epoch.
func SortMessages(msgs []dmapi.Message) []dmapi.Message {
	out := slices.Clone(msgs)
	if out == nil {
		out = []dmapi.Message{}
	}
	slices.SortStableFunc(out, func(a, b dmapi.Message) int {
		return format.ParseTime(a.CreatedAt).Compare(format.ParseTime(b.CreatedAt))
	})
	return out
}
