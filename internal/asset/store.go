package asset

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/internal/storage"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

var (
	prefixMeta = []byte("m/")     // m/<tokenID(32)> -> Metadata JSON
	keyRates   = []byte("rates") // last fetched Rates JSON
)

// Store persists token metadata and the last known price rates.
type Store struct {
	db storage.DB
}

// NewStore creates an asset store.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// Put stores metadata for a token.
func (s *Store) Put(id types.TokenID, meta Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("metadata marshal: %w", err)
	}
	return s.db.Put(metaKey(id), data)
}

// PutAll stores a metadata set, atomically when the database batches.
func (s *Store) PutAll(set MetadataSet) error {
	batcher, ok := s.db.(storage.Batcher)
	if !ok {
		for id, m := range set {
			if err := s.Put(id, m); err != nil {
				return err
			}
		}
		return nil
	}
	batch := batcher.NewBatch()
	for id, m := range set {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("metadata marshal: %w", err)
		}
		if err := batch.Put(metaKey(id), data); err != nil {
			return err
		}
	}
	return batch.Commit()
}

// Get retrieves metadata for a token. Unknown tokens yield
// storage.ErrNotFound.
func (s *Store) Get(id types.TokenID) (Metadata, error) {
	data, err := s.db.Get(metaKey(id))
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata get %s: %w", id, err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("metadata unmarshal: %w", err)
	}
	return meta, nil
}

// Has checks if metadata exists for a token.
func (s *Store) Has(id types.TokenID) (bool, error) {
	return s.db.Has(metaKey(id))
}

// Load returns every stored entry. Corrupt entries are skipped.
func (s *Store) Load() (MetadataSet, error) {
	set := make(MetadataSet)
	err := s.db.ForEach(prefixMeta, func(key, value []byte) error {
		if len(key) != len(prefixMeta)+types.HashSize {
			return nil
		}
		var id types.TokenID
		copy(id[:], key[len(prefixMeta):])

		var meta Metadata
		if err := json.Unmarshal(value, &meta); err != nil {
			return nil
		}
		set[id] = meta
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// PutRates caches a rate table.
func (s *Store) PutRates(r Rates) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("rates marshal: %w", err)
	}
	return s.db.Put(keyRates, data)
}

// Rates returns the cached rate table, or an empty table when none is
// stored.
func (s *Store) Rates() (Rates, error) {
	data, err := s.db.Get(keyRates)
	if errors.Is(err, storage.ErrNotFound) {
		return Rates{}, nil
	}
	if err != nil {
		return nil, err
	}
	var r Rates
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("rates unmarshal: %w", err)
	}
	return r, nil
}

func metaKey(id types.TokenID) []byte {
	key := make([]byte, len(prefixMeta)+types.HashSize)
	copy(key, prefixMeta)
	copy(key[len(prefixMeta):], id[:])
	return key
}
