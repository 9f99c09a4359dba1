package sitemap

import (
	"bytes"
	"encoding/gob"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/syndtr/goleveldb/leveldb"
)

// DocumentKey is the cache key of the sitemap; there is one per process.
const DocumentKey = "sitemapd.sitemap"

// Store is a TTL-guarded key/value store for serialized documents.
type Store interface {
	// Get returns the content stored under key unless it is absent or expired.
	Get(key string) ([]byte, bool)
	Set(key string, content []byte, ttl time.Duration) error
	Close() error
}

// CachedDocument is the stored form of a document.
type CachedDocument struct {
	Content   []byte
	ExpiresAt time.Time
}

func (d CachedDocument) expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// ---- memory store ----

type memoryStore struct {
	clock clock.Clock
	lru   *expirable.LRU[string, CachedDocument]
}

// NewMemoryStore keeps up to size documents in memory. ttl bounds how long the
// LRU keeps an entry around; each Set still carries its own expiry.
func NewMemoryStore(size int, ttl time.Duration, clk clock.Clock) Store {
	if clk == nil {
		clk = clock.New()
	}
	if size <= 0 {
		size = 8
	}
	return &memoryStore{
		clock: clk,
		lru:   expirable.NewLRU[string, CachedDocument](size, nil, ttl),
	}
}

func (m *memoryStore) Get(key string) ([]byte, bool) {
	doc, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	if doc.expired(m.clock.Now()) {
		m.lru.Remove(key)
		return nil, false
	}
	return doc.Content, true
}

func (m *memoryStore) Set(key string, content []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("non-positive ttl")
	}
	m.lru.Add(key, CachedDocument{Content: content, ExpiresAt: m.clock.Now().Add(ttl)})
	return nil
}

func (m *memoryStore) Close() error {
	m.lru.Purge()
	return nil
}

// ---- disk store ----

type diskStore struct {
	clock clock.Clock
	db    *leveldb.DB
}

// OpenDiskStore opens (or creates) a leveldb backed store at path.
func OpenDiskStore(path string, clk clock.Clock) (Store, error) {
	if clk == nil {
		clk = clock.New()
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &diskStore{clock: clk, db: db}, nil
}

func (d *diskStore) Get(key string) ([]byte, bool) {
	b, err := d.db.Get([]byte("e:"+key), nil)
	if err != nil {
		return nil, false
	}
	var doc CachedDocument
	if err := decodeGob(b, &doc); err != nil {
		return nil, false
	}
	if doc.expired(d.clock.Now()) {
		_ = d.db.Delete([]byte("e:"+key), nil)
		return nil, false
	}
	return doc.Content, true
}

func (d *diskStore) Set(key string, content []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("non-positive ttl")
	}
	b, err := encodeGob(CachedDocument{Content: content, ExpiresAt: d.clock.Now().Add(ttl)})
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Put([]byte("e:"+key), b)
	return d.db.Write(batch, nil)
}

func (d *diskStore) Close() error {
	return d.db.Close()
}

// ---- encoding ----

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	dec := gob.NewDecoder(bytes.NewReader(b))
	return dec.Decode(v)
}
