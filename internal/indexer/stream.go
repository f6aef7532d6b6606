package indexer

import (
	"context"

	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// StreamBoxes pages through every box matching q, BoxPageSize at a time,
// calling fn for each non-empty page. It stops at the first short page or
// when fn returns an error.
func StreamBoxes(ctx context.Context, src Source, q BoxQuery, fn func([]tx.Box) error) error {
	q.Take = BoxPageSize
	for q.Skip = 0; ; q.Skip += BoxPageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := src.Boxes(ctx, q)
		if err != nil {
			return err
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}
		if len(page) < BoxPageSize {
			return nil
		}
	}
}

// StreamTokens fetches metadata for ids in chunks of MetadataChunk, calling
// fn for each non-empty answer.
func StreamTokens(ctx context.Context, src Source, ids []types.TokenID, fn func([]TokenInfo) error) error {
	for start := 0; start < len(ids); start += MetadataChunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+MetadataChunk, len(ids))
		tokens, err := src.Tokens(ctx, ids[start:end])
		if err != nil {
			return err
		}
		if len(tokens) > 0 {
			if err := fn(tokens); err != nil {
				return err
			}
		}
	}
	return nil
}
