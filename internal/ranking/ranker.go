package ranking

import (
	"sort"
	"strings"
	"time"
)

// Entry is the projection of a list entry the ranker works on. HasMedia
// reports whether the backing anime_cache snapshot was present when the
// entry was loaded; the cache row is upserted asynchronously, so a race can
// leave it absent for a moment and such entries are left out of every
// ordering instead of failing the whole view.
type Entry struct {
	ID       string
	Title    string
	Scores   Scores
	Position *int
	AddedAt  time.Time
	HasMedia bool
	Overall  float64
}

// Rank orders entries of a ranked list by weighted overall score
// descending. Ties are broken by AddedAt ascending (the entry added first
// ranks higher); entries equal on both keep their input order, so the sort
// is stable and total.
func Rank(entries []Entry, w Weights) []Entry {
	out := withMedia(entries)
	for i := range out {
		out[i].Overall = OverallScore(out[i].Scores, w)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Overall != out[j].Overall {
			return out[i].Overall > out[j].Overall
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out
}

// SortAlphabetical orders watch-list entries by displayed title,
// case-insensitive, ascending.
func SortAlphabetical(entries []Entry) []Entry {
	out := withMedia(entries)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out
}

// SortCustom orders entries by their manual position ascending. Entries
// without a position sort after every positioned entry, among themselves in
// arrival order (AddedAt ascending, input order on equal timestamps).
func SortCustom(entries []Entry) []Entry {
	out := withMedia(entries)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Position, out[j].Position
		switch {
		case pi != nil && pj != nil:
			return *pi < *pj
		case pi != nil:
			return true
		case pj != nil:
			return false
		default:
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
	})
	return out
}

func withMedia(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.HasMedia {
			continue
		}
		out = append(out, e)
	}
	return out
}
