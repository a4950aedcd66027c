package evalcache

import (
	"encoding/binary"
	"encoding/json"

	badger "github.com/dgraph-io/badger/v4"
)

// PersistentCache wraps a Cache with an optional Badger-backed
// warm-start store, grounded on
// hailam-chessplay/internal/storage/storage.go's use of Badger for
// preferences/stats that must survive process restarts. Unlike that
// usage, this is a pure opt-in convenience for a host process: the
// search core itself never touches db, so the Non-goal "does not
// persist state across invocations" still holds for the search
// proper — only this wrapper, used outside the search loop, persists
// the cache.
type PersistentCache struct {
	*Cache
	db *badger.DB
}

// NewBadgerBackedCache opens (creating if needed) a Badger database at
// dir and wraps a fresh in-memory Cache of the given capacity.
func NewBadgerBackedCache(dir string, capacity int) (*PersistentCache, error) {
	db, err := badger.Open(badger.DefaultOptions(dir))
	if err != nil {
		return nil, err
	}
	return &PersistentCache{Cache: New(capacity), db: db}, nil
}

// Close flushes and closes the underlying Badger database. It does
// not touch the in-memory Cache, which callers may keep using.
func (p *PersistentCache) Close() error {
	return p.db.Close()
}

// Load populates the in-memory cache from the on-disk store, for use
// right after NewBadgerBackedCache, before the search starts.
func (p *PersistentCache) Load() error {
	return p.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := binary.BigEndian.Uint64(item.Key())

			err := item.Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return err
				}
				p.Cache.Put(key, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Snapshot writes every currently-cached entry to the on-disk store,
// for use after the search stops.
func (p *PersistentCache) Snapshot() error {
	return p.db.Update(func(txn *badger.Txn) error {
		for i := range p.Cache.shards {
			s := &p.Cache.shards[i]
			s.mu.RLock()
			for key, e := range s.entries {
				val, err := json.Marshal(e)
				if err != nil {
					s.mu.RUnlock()
					return err
				}
				keyBuf := make([]byte, 8)
				binary.BigEndian.PutUint64(keyBuf, key)
				if err := txn.Set(keyBuf, val); err != nil {
					s.mu.RUnlock()
					return err
				}
			}
			s.mu.RUnlock()
		}
		return nil
	})
}
