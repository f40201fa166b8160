package store

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/bethmaloney/job-applier/internal/model"
)

// DedupKey derives the uniqueness key for a listing.
//
// Sources with a stable per-posting identifier hash (source, external_id).
// Sources without one fall back to hashing the normalised
// (title, company, location) triple, which keeps re-fetches of the same
// posting together at the cost of colliding two genuinely distinct postings
// that share all three fields.
func DedupKey(l model.RawListing) string {
	h := fnv.New64a()
	h.Write([]byte(l.Source))
	h.Write([]byte{0})
	if l.ExternalID != "" {
		h.Write([]byte(l.ExternalID))
	} else {
		h.Write([]byte(normalize(l.Title)))
		h.Write([]byte{0})
		h.Write([]byte(normalize(l.Company)))
		h.Write([]byte{0})
		h.Write([]byte(normalize(l.Location)))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// normalize lowercases and collapses internal whitespace runs so cosmetic
// formatting differences between fetches do not change the fallback key.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
