package storage

import (
	"errors"
	"fmt"
	"sort"
	"testing"
)

func TestPrefixDB_Isolation(t *testing.T) {
	inner := NewMemory()
	assets := NewPrefixDB(inner, []byte("asset/"))
	boxes := NewPrefixDB(inner, []byte("box/"))

	assets.Put([]byte("key"), []byte("fromAssets"))
	boxes.Put([]byte("key"), []byte("fromBoxes"))

	got, err := assets.Get([]byte("key"))
	if err != nil || string(got) != "fromAssets" {
		t.Fatalf("assets.Get = %q, %v", got, err)
	}
	got, err = boxes.Get([]byte("key"))
	if err != nil || string(got) != "fromBoxes" {
		t.Fatalf("boxes.Get = %q, %v", got, err)
	}
	if raw, _ := inner.Get([]byte("asset/key")); string(raw) != "fromAssets" {
		t.Errorf("inner key = %q, want namespaced write", raw)
	}

	assets.Delete([]byte("key"))
	if ok, _ := assets.Has([]byte("key")); ok {
		t.Error("Has after delete = true")
	}
	if ok, _ := boxes.Has([]byte("key")); !ok {
		t.Error("delete leaked into another namespace")
	}
}

func TestPrefixDB_ForEachStripsPrefix(t *testing.T) {
	db := NewPrefixDB(NewMemory(), []byte("box/"))
	db.Put([]byte("o/k1"), []byte("v1"))
	db.Put([]byte("o/k2"), []byte("v2"))
	db.Put([]byte("b/k3"), []byte("v3"))

	var keys []string
	err := db.ForEach([]byte("o/"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "o/k1" || keys[1] != "o/k2" {
		t.Fatalf("ForEach keys = %v, want [o/k1 o/k2]", keys)
	}
}

func TestPrefixDB_ForEachStopEarly(t *testing.T) {
	db := NewPrefixDB(NewMemory(), []byte("p/"))
	for i := 0; i < 10; i++ {
		db.Put([]byte(fmt.Sprintf("k%d", i)), []byte("v"))
	}

	count := 0
	stop := errors.New("stop")
	err := db.ForEach(nil, func(key, value []byte) error {
		count++
		if count >= 3 {
			return stop
		}
		return nil
	})
	if err != stop || count != 3 {
		t.Fatalf("ForEach = %v after %d calls, want stop after 3", err, count)
	}
}

func TestPrefixDB_DeleteAll(t *testing.T) {
	inner := NewMemory()
	a := NewPrefixDB(inner, []byte("a/"))
	b := NewPrefixDB(inner, []byte("b/"))
	a.Put([]byte("k1"), []byte("v1"))
	a.Put([]byte("k2"), []byte("v2"))
	b.Put([]byte("k1"), []byte("other"))

	if err := a.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	for _, k := range []string{"k1", "k2"} {
		if ok, _ := a.Has([]byte(k)); ok {
			t.Fatalf("a still has %q after DeleteAll", k)
		}
	}
	if got, err := b.Get([]byte("k1")); err != nil || string(got) != "other" {
		t.Fatalf("b.Get = %q, %v", got, err)
	}
}

func TestPrefixDB_Batch(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("box/"))

	batch := db.NewBatch()
	batch.Put([]byte("1"), []byte("one"))
	batch.Put([]byte("2"), []byte("two"))
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got, _ := inner.Get([]byte("box/2")); string(got) != "two" {
		t.Errorf("inner box/2 = %q", got)
	}
}

// plainDB hides the Batcher implementation of its inner DB.
type plainDB struct{ DB }

func TestPrefixDB_BatchFallback(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(plainDB{inner}, []byte("x/"))
	inner.Put([]byte("x/gone"), []byte("v"))

	batch := db.NewBatch()
	if _, ok := batch.(*fallbackBatch); !ok {
		t.Fatalf("batch = %T, want fallback", batch)
	}
	batch.Put([]byte("k"), []byte("v"))
	batch.Delete([]byte("gone"))
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, _ := inner.Has([]byte("x/k")); !ok {
		t.Error("x/k missing")
	}
	if ok, _ := inner.Has([]byte("x/gone")); ok {
		t.Error("x/gone should be deleted")
	}
}

func TestPrefixDB_CloseIsNoop(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("x/"))
	db.Put([]byte("key"), []byte("val"))

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, err := inner.Get([]byte("x/key")); err != nil || string(got) != "val" {
		t.Fatalf("inner.Get after Close = %q, %v", got, err)
	}
}
