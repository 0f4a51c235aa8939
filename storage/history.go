package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/yairfalse/varasto/snapshot"
)

// Bucket names in bbolt
var (
	bucketSnapshots = []byte("snapshots")
	bucketMeta      = []byte("meta")
)

var keyCurrentRevision = []byte("current_revision")

// History archives successful builds in a bbolt database, one revision per
// build. The file store stays authoritative; history exists so earlier good
// snapshots remain inspectable after later rebuilds.
type History struct {
	mu         sync.Mutex
	db         *bbolt.DB
	currentRev int64
}

// OpenHistory opens or creates the history database inside dir. The open
// fails instead of waiting forever when another process holds the file lock.
func OpenHistory(dir string) (*History, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	dbPath := filepath.Join(dir, "history.db")

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketSnapshots, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	h := &History{db: db}
	h.loadRevision()
	return h, nil
}

// Close closes the history database.
func (h *History) Close() error {
	return h.db.Close()
}

// Append records a snapshot under the next revision number.
func (h *History) Append(snap *snapshot.Snapshot) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.currentRev++
	rev := h.currentRev

	err := h.db.Update(func(tx *bbolt.Tx) error {
		value, err := json.Marshal(snap.Document())
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketSnapshots).Put(revisionKey(rev), value); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyCurrentRevision, revisionKey(rev))
	})
	if err != nil {
		h.currentRev--
		return 0, fmt.Errorf("failed to append snapshot: %w", err)
	}

	return rev, nil
}

// Get loads the snapshot stored at a revision.
func (h *History) Get(rev int64) (*snapshot.Snapshot, error) {
	var doc snapshot.Document
	err := h.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketSnapshots).Get(revisionKey(rev))
		if value == nil {
			return ErrNotFound
		}
		return json.Unmarshal(value, &doc)
	})
	if err != nil {
		return nil, err
	}
	return snapshot.FromDocument(&doc), nil
}

// CurrentRevision returns the latest revision number, zero when empty.
func (h *History) CurrentRevision() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentRev
}

// Revisions lists stored revision numbers in ascending order.
func (h *History) Revisions() ([]int64, error) {
	var revs []int64
	err := h.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			revs = append(revs, parseRevisionKey(k))
			return nil
		})
	})
	return revs, err
}

// Compact drops revisions older than the most recent keep entries.
func (h *History) Compact(keep int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.currentRev - keep
	if cutoff <= 0 {
		return nil
	}

	return h.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		c := bucket.Cursor()

		var toDelete [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if parseRevisionKey(k) <= cutoff {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
		}

		for _, key := range toDelete {
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *History) loadRevision() {
	_ = h.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyCurrentRevision)
		if data != nil {
			h.currentRev = parseRevisionKey(data)
		}
		return nil
	})
}

func revisionKey(rev int64) []byte {
	return []byte(fmt.Sprintf("%016d", rev))
}

func parseRevisionKey(key []byte) int64 {
	var rev int64
	_, _ = fmt.Sscanf(string(key), "%016d", &rev)
	return rev
}
