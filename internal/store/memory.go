package store

import (
	"context"

	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// MemoryDataSource is an in-process DataSource used by pipeline tests and
// any caller that already holds its visit table in memory.
type MemoryDataSource struct {
	Visits []models.Visit
}

func (m *MemoryDataSource) Fetch(_ context.Context, startDate, endDate, admdvs string) ([]models.Visit, error) {
	var out []models.Visit
	for _, v := range m.Visits {
		if v.AdmDate < startDate || v.AdmDate > endDate {
			continue
		}
		if admdvs != "" && v.Admdvs != admdvs {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// MemoryResultSink collects persisted groups per model_no, overwriting
// any prior set for the same model_no to match the idempotence contract.
type MemoryResultSink struct {
	ByModelNo map[string][]models.RiskGroup
}

func NewMemoryResultSink() *MemoryResultSink {
	return &MemoryResultSink{ByModelNo: make(map[string][]models.RiskGroup)}
}

func (m *MemoryResultSink) PersistGroups(_ context.Context, meta models.WindowMetadata, rows []models.RiskGroup) error {
	cp := make([]models.RiskGroup, len(rows))
	copy(cp, rows)
	m.ByModelNo[meta.ModelNo] = cp
	return nil
}
