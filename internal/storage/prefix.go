package storage

// PrefixDB wraps a DB and prepends a fixed prefix to all keys, giving each
// cache its own namespace inside one database.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a PrefixDB over inner.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: copyBytes(prefix)}
}

func (p *PrefixDB) key(k []byte) []byte {
	out := make([]byte, len(p.prefix)+len(k))
	copy(out, p.prefix)
	copy(out[len(p.prefix):], k)
	return out
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) { return p.inner.Get(p.key(key)) }

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error { return p.inner.Put(p.key(key), value) }

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error { return p.inner.Delete(p.key(key)) }

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) { return p.inner.Has(p.key(key)) }

// ForEach iterates over keys with the given prefix inside the namespace.
// Keys passed to fn have the namespace stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(p.key(prefix), func(key, value []byte) error {
		return fn(key[len(p.prefix):], value)
	})
}

// DeleteAll removes every key in the namespace.
func (p *PrefixDB) DeleteAll() error {
	var keys [][]byte
	err := p.inner.ForEach(p.prefix, func(key, _ []byte) error {
		keys = append(keys, copyBytes(key))
		return nil
	})
	if err != nil {
		return err
	}
	b := p.inner
	if batcher, ok := b.(Batcher); ok {
		batch := batcher.NewBatch()
		for _, k := range keys {
			if err := batch.Delete(k); err != nil {
				return err
			}
		}
		return batch.Commit()
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the inner DB owns its lifecycle.
func (p *PrefixDB) Close() error { return nil }

// NewBatch returns a batch writing into the namespace. It commits
// atomically when the inner DB is a Batcher.
func (p *PrefixDB) NewBatch() Batch {
	if batcher, ok := p.inner.(Batcher); ok {
		return &prefixBatch{inner: batcher.NewBatch(), db: p}
	}
	return &fallbackBatch{db: p}
}

type prefixBatch struct {
	inner Batch
	db    *PrefixDB
}

func (pb *prefixBatch) Put(key, value []byte) error { return pb.inner.Put(pb.db.key(key), value) }
func (pb *prefixBatch) Delete(key []byte) error     { return pb.inner.Delete(pb.db.key(key)) }
func (pb *prefixBatch) Commit() error               { return pb.inner.Commit() }

// fallbackBatch applies buffered writes one by one.
type fallbackBatch struct {
	db  DB
	ops []batchOp
}

func (fb *fallbackBatch) Put(key, value []byte) error {
	fb.ops = append(fb.ops, batchOp{key: copyBytes(key), value: copyBytes(value)})
	return nil
}

func (fb *fallbackBatch) Delete(key []byte) error {
	fb.ops = append(fb.ops, batchOp{key: copyBytes(key)})
	return nil
}

func (fb *fallbackBatch) Commit() error {
	for _, op := range fb.ops {
		var err error
		if op.value == nil {
			err = fb.db.Delete(op.key)
		} else {
			err = fb.db.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	fb.ops = nil
	return nil
}
