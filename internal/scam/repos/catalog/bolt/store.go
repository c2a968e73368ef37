// Package bolt persists the scam record catalog in a bbolt database.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"

	"github.com/haukened/scam-index/internal/scam/domain"
	"github.com/haukened/scam-index/internal/scam/repos/catalog"
)

var (
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")

	metaVersion  = []byte("version")
	metaUpdated  = []byte("updated")
	metaRunID    = []byte("run_id")
	metaRecords  = []byte("records")
	metaChecksum = []byte("filter_checksum")
)

// ErrDuplicateKey is returned by RebuildAll when two records share a key.
var ErrDuplicateKey = errors.New("duplicate record key")

// boltStore implements catalog.Store using bbolt.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (catalog.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

// Get returns the record catalogued under the canonical key.
func (s *boltStore) Get(key string) (domain.ScamRecord, bool, error) {
	var (
		rec   domain.ScamRecord
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decode record %q: %w", key, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return domain.ScamRecord{}, false, err
	}
	return rec, found, nil
}

// RebuildAll replaces every record and the metadata in a single transaction.
// A zero meta.Version is replaced by the previous version plus one, and
// meta.Records is always set to the number of records written.
func (s *boltStore) RebuildAll(records []domain.ScamRecord, meta domain.CatalogMeta) (domain.CatalogMeta, error) {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		prev := readMeta(tx.Bucket(bucketMeta))
		if err := tx.DeleteBucket(bucketRecords); err != nil && !errors.Is(err, bberrors.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket(bucketRecords)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if rec.Key == "" {
				return fmt.Errorf("record %q has no key", rec.ID)
			}
			k := []byte(rec.Key)
			if b.Get(k) != nil {
				return fmt.Errorf("%w: %s", ErrDuplicateKey, rec.Key)
			}
			v, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put(k, v); err != nil {
				return err
			}
		}
		if meta.Version == 0 {
			meta.Version = prev.Version + 1
		}
		meta.Records = uint64(len(records))
		mb, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		return writeMeta(mb, meta)
	})
	if err != nil {
		return domain.CatalogMeta{}, err
	}
	return meta, nil
}

// Meta returns the metadata of the current snapshot.
func (s *boltStore) Meta() (domain.CatalogMeta, error) {
	var m domain.CatalogMeta
	err := s.db.View(func(tx *bbolt.Tx) error {
		m = readMeta(tx.Bucket(bucketMeta))
		return nil
	})
	return m, err
}

func (s *boltStore) Stats() catalog.StoreStats {
	st := catalog.StoreStats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketRecords); b != nil {
			st.Records = uint64(b.Stats().KeyN)
		}
		m := readMeta(tx.Bucket(bucketMeta))
		st.Version = m.Version
		st.UpdatedUnix = m.UpdatedUnix
		st.RunID = m.RunID
		return nil
	})
	return st
}

func readMeta(b *bbolt.Bucket) domain.CatalogMeta {
	var m domain.CatalogMeta
	if b == nil {
		return m
	}
	if v := b.Get(metaVersion); len(v) == 8 {
		m.Version = binary.BigEndian.Uint64(v)
	}
	if v := b.Get(metaUpdated); len(v) == 8 {
		m.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
	}
	if v := b.Get(metaRecords); len(v) == 8 {
		m.Records = binary.BigEndian.Uint64(v)
	}
	if v := b.Get(metaChecksum); len(v) == 8 {
		m.FilterChecksum = binary.BigEndian.Uint64(v)
	}
	if v := b.Get(metaRunID); v != nil {
		m.RunID = string(v)
	}
	return m
}

func writeMeta(b *bbolt.Bucket, m domain.CatalogMeta) error {
	for k, v := range map[string]uint64{
		string(metaVersion):  m.Version,
		string(metaUpdated):  uint64(m.UpdatedUnix),
		string(metaRecords):  m.Records,
		string(metaChecksum): m.FilterChecksum,
	} {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, v)
		if err := b.Put([]byte(k), buf); err != nil {
			return err
		}
	}
	return b.Put(metaRunID, []byte(m.RunID))
}
