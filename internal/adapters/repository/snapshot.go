package repository

import (
	"sort"
	"time"

	"github.com/okian/saferoute/internal/domain/model"
)

// Snapshot is an immutable category → incidents index. It is safe for any
// number of concurrent readers. Slices handed to Range callbacks are shared
// and must not be modified.
type Snapshot struct {
	incidents   map[model.Category][]model.IncidentRecord
	categories  []model.Category
	unavailable map[model.Category]error
	total       int
	source      string
	loadedAt    time.Time
}

// NewSnapshot builds a snapshot from already validated records. The input
// is copied.
func NewSnapshot(incidents map[model.Category][]model.IncidentRecord) *Snapshot {
	return newSnapshot("memory", incidents, nil, time.Now())
}

func newSnapshot(source string, incidents map[model.Category][]model.IncidentRecord, unavailable map[model.Category]error, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		incidents:   make(map[model.Category][]model.IncidentRecord, len(incidents)),
		unavailable: make(map[model.Category]error, len(unavailable)),
		source:      source,
		loadedAt:    loadedAt,
	}
	for cat, recs := range incidents {
		cp := make([]model.IncidentRecord, len(recs))
		copy(cp, recs)
		s.incidents[cat] = cp
		s.categories = append(s.categories, cat)
		s.total += len(cp)
	}
	for cat, err := range unavailable {
		s.unavailable[cat] = err
	}
	sort.Slice(s.categories, func(i, j int) bool { return s.categories[i] < s.categories[j] })
	return s
}

// Range calls fn for every category in name order until fn returns false.
func (s *Snapshot) Range(fn func(category model.Category, incidents []model.IncidentRecord) bool) {
	if s == nil {
		return
	}
	for _, cat := range s.categories {
		if !fn(cat, s.incidents[cat]) {
			return
		}
	}
}

// Categories returns the loaded categories in name order.
func (s *Snapshot) Categories() []model.Category {
	if s == nil {
		return nil
	}
	return append([]model.Category(nil), s.categories...)
}

// Len returns the total number of incidents across categories.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return s.total
}

// CategoryLen returns the number of incidents loaded for category.
func (s *Snapshot) CategoryLen(category model.Category) int {
	if s == nil {
		return 0
	}
	return len(s.incidents[category])
}

// Unavailable returns the categories that failed to load, in name order.
func (s *Snapshot) Unavailable() []model.Category {
	if s == nil {
		return nil
	}
	out := make([]model.Category, 0, len(s.unavailable))
	for cat := range s.unavailable {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UnavailableErr returns the load error recorded for category, or nil.
func (s *Snapshot) UnavailableErr(category model.Category) error {
	if s == nil {
		return nil
	}
	return s.unavailable[category]
}

// Source names the incident source the snapshot was loaded from.
func (s *Snapshot) Source() string {
	if s == nil {
		return ""
	}
	return s.source
}

// LoadedAt returns when the snapshot was assembled.
func (s *Snapshot) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// Since returns a snapshot holding only incidents that occurred at or after
// cutoff. Records without a timestamp are dropped. Unavailable categories
// carry over.
func (s *Snapshot) Since(cutoff time.Time) *Snapshot {
	if s == nil {
		return nil
	}
	filtered := make(map[model.Category][]model.IncidentRecord, len(s.incidents))
	for cat, recs := range s.incidents {
		kept := make([]model.IncidentRecord, 0, len(recs))
		for _, r := range recs {
			if !r.OccurredAt.IsZero() && !r.OccurredAt.Before(cutoff) {
				kept = append(kept, r)
			}
		}
		filtered[cat] = kept
	}
	return newSnapshot(s.source, filtered, s.unavailable, s.loadedAt)
}
