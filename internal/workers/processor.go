package workers

import (
	"context"
	"fmt"

	"github.com/jcarver/oddsparity/internal/logging"
	"github.com/jcarver/oddsparity/internal/markets"
	sqlstore "github.com/jcarver/oddsparity/internal/storage/sqlite"
)

// Processor persists incoming snapshots: the market row is upserted and the
// YES quote is appended to the event's odds history. Malformed markets are
// stored with their flags so the matcher can skip them later; they never
// stop the stream.
type Processor struct {
	store *sqlstore.Store
}

func NewProcessor(store *sqlstore.Store) *Processor {
	return &Processor{store: store}
}

func (p *Processor) Handle(ctx context.Context, snap *markets.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	if flags := snap.Market.Validate(0); len(flags) > 0 {
		logging.Debugf("[snapshot-worker] market %s flagged: %v", snap.Market.ID, flags)
	}
	if err := p.store.UpsertSnapshot(ctx, *snap); err != nil {
		return fmt.Errorf("persist snapshot %s: %w", snap.Market.ID, err)
	}
	return nil
}
