package jobs

import (
	"sync"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

// MemoryRegistry keeps job records for the lifetime of the process.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[string]schemas.JobRecord
}

var _ schemas.JobRegistry = (*MemoryRegistry)(nil)

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{records: make(map[string]schemas.JobRecord)}
}

func (r *MemoryRegistry) Put(record schemas.JobRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
}

func (r *MemoryRegistry) Get(id string) (schemas.JobRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}
