package refstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	mevdomain "github.com/fd1az/arbitrage-bot/business/mev/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
)

// Sink is the filesystem-backed PersistenceSink: it writes each block's
// bundle set to its own JSON file under dir/bundles, replacing any earlier
// file for that block, standing in for the
// ClickHouse writer the source persists to — see DESIGN.md.
type Sink struct {
	dir string
}

// NewSink returns a Sink writing under dir/bundles (dir is DB_PATH).
func NewSink(dir string) *Sink {
	return &Sink{dir: dir}
}

// Insert implements pipeline/app.PersistenceSink. Writes are independent
// per block and may run concurrently with neighboring blocks' writes —
// §5's "persistence writes are not totally ordered" — each write targets
// its own file, so no cross-block coordination is needed.
func (s *Sink) Insert(ctx context.Context, blockNumber uint64, bundles []mevdomain.Bundle) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dir := filepath.Join(s.dir, "bundles")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.Wrap(err, apperror.CodeStoreWriteFailed, "refstore: mkdir bundles dir")
	}

	data, err := json.Marshal(bundles)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeStoreWriteFailed, "refstore: marshal bundles")
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.json", blockNumber))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperror.Wrap(err, apperror.CodeStoreWriteFailed, "refstore: write bundles file")
	}
	return nil
}
