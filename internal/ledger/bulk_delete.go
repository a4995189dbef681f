package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BulkDeleteResult reports which ids were removed. SkippedIDs lists ids that
// did not exist, were blank or belong to another owner, in request order.
type BulkDeleteResult struct {
	SkippedIDs   []string
	DeletedCount int
}

// BulkDelete removes the owner's transactions with the given ids. Ids are
// de-duplicated and deleted in concurrent chunks; each chunk is atomic but the
// request as a whole is not.
func (s *Service) BulkDelete(ctx context.Context, ownerID string, ids []string) (*BulkDeleteResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	unique := dedupe(ids)
	targets := make([]string, 0, len(unique))
	for _, id := range unique {
		if id != "" {
			targets = append(targets, id)
		}
	}

	var (
		mu      sync.Mutex
		deleted = make(map[string]struct{}, len(unique))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deleteWorkers)

	for _, chunk := range chunkIDs(targets, s.deleteChunkSize) {
		g.Go(func() error {
			removed, err := s.store.DeleteTransactions(gctx, ownerID, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, id := range removed {
				deleted[id] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to delete transactions: %w", err)
	}

	result := &BulkDeleteResult{SkippedIDs: []string{}}
	for _, id := range unique {
		if _, ok := deleted[id]; ok {
			result.DeletedCount++
			continue
		}
		result.SkippedIDs = append(result.SkippedIDs, id)
	}

	slog.Info("Bulk deleted transactions",
		"owner", ownerID,
		"deleted", result.DeletedCount,
		"skipped", len(result.SkippedIDs))
	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultDeleteChunkSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
