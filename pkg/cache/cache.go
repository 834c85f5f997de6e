//go:generate go run go.uber.org/mock/mockgen -source=cache.go -destination=../../mocks/mock_result_cache.go -package=mocks
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/pkg/types"
)

const keyPrefix = "attrs:"

// ResultCache stores the attributes extracted for a character crop
type ResultCache interface {
	Get(key string) (types.CharacterAttributes, bool, error)
	Put(key string, attrs types.CharacterAttributes) error
	Close() error
}

// BadgerCache is a ResultCache persisted in BadgerDB
type BadgerCache struct {
	db     *badger.DB
	ttl    time.Duration
	owned  bool
	logger *zap.Logger
}

// Open opens (or creates) a cache database in dir. An empty dir keeps the
// cache in memory. A zero ttl keeps entries forever.
func Open(dir string, ttl time.Duration, logger *zap.Logger) (*BadgerCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger.Sugar()})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	c := NewBadgerCache(db, ttl, logger)
	c.owned = true
	return c, nil
}

// NewBadgerCache wraps an already open database. Close leaves it open.
func NewBadgerCache(db *badger.DB, ttl time.Duration, logger *zap.Logger) *BadgerCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgerCache{db: db, ttl: ttl, logger: logger}
}

// Get returns the cached attributes for key
func (c *BadgerCache) Get(key string) (types.CharacterAttributes, bool, error) {
	var attrs types.CharacterAttributes
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &attrs)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache read failed: %w", err)
	}
	return attrs, true, nil
}

// Put stores attrs under key
func (c *BadgerCache) Put(key string, attrs types.CharacterAttributes) error {
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+key), data)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	c.logger.Debug("attributes cached", zap.String("key", key))
	return nil
}

// Entry is one cached result as seen by Each
type Entry struct {
	Key        string
	Attributes types.CharacterAttributes
	ExpiresAt  time.Time
}

// Each calls fn for every cached result in key order. Entries that fail to
// decode are logged and skipped. ExpiresAt is zero for entries without a TTL.
func (c *BadgerCache) Each(fn func(Entry) error) error {
	return c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(prefix):])

			var attrs types.CharacterAttributes
			if err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &attrs)
			}); err != nil {
				c.logger.Warn("skipping undecodable cache entry", zap.String("key", key), zap.Error(err))
				continue
			}

			e := Entry{Key: key, Attributes: attrs}
			if exp := item.ExpiresAt(); exp > 0 {
				e.ExpiresAt = time.Unix(int64(exp), 0)
			}
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear removes every cached result
func (c *BadgerCache) Clear() error {
	return c.db.DropPrefix([]byte(keyPrefix))
}

// Close closes the database when the cache opened it
func (c *BadgerCache) Close() error {
	if !c.owned {
		return nil
	}
	return c.db.Close()
}

// Key derives a cache key from the crop bytes, the threshold and a
// fingerprint of the models in use.
func Key(content []byte, threshold float64, fingerprint string) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(threshold, 'g', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// badgerLogger routes badger's own logging into zap
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(f, v...) }
