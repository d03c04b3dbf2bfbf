// Package bolt provides a bbolt-backed store.Store. Records are JSON-encoded
// and grouped into a per-upload nested bucket, so deleting an upload cascades
// its events and anomalies by dropping two buckets in one write transaction.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/jinishshah00/logsleuth/internal/model"
	"github.com/jinishshah00/logsleuth/internal/store"
)

var (
	bucketUploads   = []byte("uploads")
	bucketEvents    = []byte("events")
	bucketAnomalies = []byte("anomalies")
)

// Store persists uploads, events, and anomalies in a single bbolt file.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt open: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUploads, bucketEvents, bucketAnomalies} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt init: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func itob(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func (s *Store) CreateBatch(_ context.Context, events []*model.Event) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketEvents)
		for _, e := range events {
			seq, err := root.NextSequence()
			if err != nil {
				return err
			}
			e.ID = int64(seq)
			per, err := root.CreateBucketIfNotExists([]byte(e.UploadID))
			if err != nil {
				return err
			}
			buf, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := per.Put(itob(seq), buf); err != nil {
				return err
			}
		}
		return nil
	})
}

// scanEvents walks the filter's upload bucket when set, otherwise every
// upload bucket, appending matches.
func scanEvents(tx *bbolt.Tx, f store.EventFilter, visit func(*model.Event) error) error {
	root := tx.Bucket(bucketEvents)
	walk := func(per *bbolt.Bucket) error {
		return per.ForEach(func(_, v []byte) error {
			var e model.Event
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if f.Matches(&e) {
				return visit(&e)
			}
			return nil
		})
	}
	if f.UploadID != "" {
		per := root.Bucket([]byte(f.UploadID))
		if per == nil {
			return nil
		}
		return walk(per)
	}
	return root.ForEachBucket(func(k []byte) error {
		return walk(root.Bucket(k))
	})
}

func (s *Store) Count(_ context.Context, f store.EventFilter) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		return scanEvents(tx, f, func(*model.Event) error {
			n++
			return nil
		})
	})
	return n, err
}

func (s *Store) FindMany(_ context.Context, f store.EventFilter, page store.Page) ([]*model.Event, error) {
	var out []*model.Event
	err := s.db.View(func(tx *bbolt.Tx) error {
		return scanEvents(tx, f, func(e *model.Event) error {
			out = append(out, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	store.SortEvents(out)
	return store.Paginate(out, page), nil
}

func (s *Store) DeleteMany(_ context.Context, f store.EventFilter) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketEvents)
		var victims []*model.Event
		if err := scanEvents(tx, f, func(e *model.Event) error {
			victims = append(victims, e)
			return nil
		}); err != nil {
			return err
		}
		for _, e := range victims {
			per := root.Bucket([]byte(e.UploadID))
			if per == nil {
				continue
			}
			if err := per.Delete(itob(uint64(e.ID))); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) CreateUpload(_ context.Context, u *model.Upload) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUploads)
		if b.Get([]byte(u.ID)) != nil {
			return fmt.Errorf("upload %s already exists", u.ID)
		}
		buf, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return b.Put([]byte(u.ID), buf)
	})
}

func (s *Store) GetUpload(_ context.Context, id string) (*model.Upload, error) {
	var u model.Upload
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketUploads).Get([]byte(id))
		if v == nil {
			return store.ErrNotFound
		}
		return json.Unmarshal(v, &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status model.UploadStatus, counts *store.RowCounts, errorText string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUploads)
		v := b.Get([]byte(id))
		if v == nil {
			return store.ErrNotFound
		}
		var u model.Upload
		if err := json.Unmarshal(v, &u); err != nil {
			return err
		}
		u.Status = status
		if counts != nil {
			u.TotalRows = counts.Total
			u.ParsedRows = counts.Parsed
		}
		u.ErrorText = errorText
		buf, err := json.Marshal(&u)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), buf)
	})
}

func (s *Store) DeleteUpload(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUploads)
		if b.Get([]byte(id)) == nil {
			return store.ErrNotFound
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		for _, root := range [][]byte{bucketEvents, bucketAnomalies} {
			rb := tx.Bucket(root)
			if rb.Bucket([]byte(id)) != nil {
				if err := rb.DeleteBucket([]byte(id)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) CreateAnomalies(_ context.Context, anomalies []*model.Anomaly) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketAnomalies)
		now := time.Now().UTC()
		for _, a := range anomalies {
			seq, err := root.NextSequence()
			if err != nil {
				return err
			}
			a.ID = int64(seq)
			if a.CreatedAt.IsZero() {
				a.CreatedAt = now
			}
			per, err := root.CreateBucketIfNotExists([]byte(a.UploadID))
			if err != nil {
				return err
			}
			buf, err := json.Marshal(a)
			if err != nil {
				return err
			}
			if err := per.Put(itob(seq), buf); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteAnomalies(_ context.Context, uploadID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketAnomalies)
		if root.Bucket([]byte(uploadID)) == nil {
			return nil
		}
		return root.DeleteBucket([]byte(uploadID))
	})
}

func (s *Store) FindAnomalies(_ context.Context, uploadID string) ([]*model.Anomaly, error) {
	var out []*model.Anomaly
	err := s.db.View(func(tx *bbolt.Tx) error {
		per := tx.Bucket(bucketAnomalies).Bucket([]byte(uploadID))
		if per == nil {
			return nil
		}
		return per.ForEach(func(_, v []byte) error {
			var a model.Anomaly
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			out = append(out, &a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
