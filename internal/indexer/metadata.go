package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/internal/storage"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// MetadataResolver fills a metadata set from the local cache first and the
// indexer second, caching what it fetches.
type MetadataResolver struct {
	src   Source
	store *asset.Store // may be nil
}

// NewMetadataResolver creates a resolver. store may be nil to disable
// caching.
func NewMetadataResolver(src Source, store *asset.Store) *MetadataResolver {
	return &MetadataResolver{src: src, store: store}
}

// Resolve adds metadata for every id missing from set. Ids the indexer does
// not know stay missing.
func (r *MetadataResolver) Resolve(ctx context.Context, set asset.MetadataSet, ids []types.TokenID) error {
	missing := set.Missing(ids)
	if len(missing) == 0 {
		return nil
	}

	var remote []types.TokenID
	for _, id := range missing {
		if r.store == nil {
			remote = append(remote, id)
			continue
		}
		m, err := r.store.Get(id)
		switch {
		case err == nil:
			set[id] = m
		case errors.Is(err, storage.ErrNotFound):
			remote = append(remote, id)
		default:
			return err
		}
	}
	if len(remote) == 0 {
		return nil
	}

	fetched := make(asset.MetadataSet, len(remote))
	err := StreamTokens(ctx, r.src, remote, func(tokens []TokenInfo) error {
		for _, t := range tokens {
			fetched[t.ID] = asset.ParseMetadata(t.Name, t.Decimals, t.Registers)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("token metadata: %w", err)
	}

	set.Merge(fetched)
	log.Indexer.Debug().Int("requested", len(remote)).Int("fetched", len(fetched)).Msg("resolved token metadata")

	if r.store != nil && len(fetched) > 0 {
		if err := r.store.PutAll(fetched); err != nil {
			log.Indexer.Warn().Err(err).Msg("cache token metadata")
		}
	}
	return nil
}
