package source

import (
	"context"
	"sort"

	"github.com/okian/saferoute/internal/adapters/repository"
	"github.com/okian/saferoute/internal/domain/model"
)

// Memory serves a fixed category → records map.
type Memory struct {
	records map[model.Category][]repository.RawRecord
}

// NewMemory returns a source over records. The map is copied.
func NewMemory(records map[model.Category][]repository.RawRecord) *Memory {
	cp := make(map[model.Category][]repository.RawRecord, len(records))
	for k, v := range records {
		cp[k] = append([]repository.RawRecord(nil), v...)
	}
	return &Memory{records: cp}
}

// Name implements repository.Source.
func (m *Memory) Name() string { return "memory" }

// Categories implements repository.Source.
func (m *Memory) Categories(_ context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0, len(m.records))
	for k := range m.records {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Read implements repository.Source.
func (m *Memory) Read(ctx context.Context, category model.Category) ([]repository.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, ok := m.records[category]
	if !ok {
		return nil, ErrUnknownCategory
	}
	return append([]repository.RawRecord(nil), recs...), nil
}
