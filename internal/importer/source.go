package importer

import (
	"context"

	"github.com/Veraticus/spice-ledger/internal/validation"
)

// Batch is the tabular content read from a source.
type Batch struct {
	// Mapping is the source's suggestion; callers may override entries.
	Mapping  Mapping
	Defaults validation.RawRecord
	Columns  []string
	Rows     []Row
}

// Source reads rows for an import.
type Source interface {
	Load(ctx context.Context) (*Batch, error)
}

// Request builds an import request for owner, applying mapping overrides on
// top of the suggested mapping.
func (b *Batch) Request(ownerID string, overrides Mapping, defaults validation.RawRecord) Request {
	merged := make(validation.RawRecord, len(b.Defaults)+len(defaults))
	for k, v := range b.Defaults {
		merged[k] = v
	}
	for k, v := range defaults {
		merged[k] = v
	}
	return Request{
		OwnerID:  ownerID,
		Columns:  b.Columns,
		Rows:     b.Rows,
		Mapping:  b.Mapping.Merge(overrides),
		Defaults: merged,
	}
}
