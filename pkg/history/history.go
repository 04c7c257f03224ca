// Package history persists REPL input lines in a bbolt database.
package history

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketCmd = "cmd"

// ErrEmpty is returned by Last when no line has been recorded.
var ErrEmpty = errors.New("history is empty")

// Entry is one recorded line.
type Entry struct {
	Seq  int
	Text string
}

// DB is a command history file.
type DB struct {
	db *bolt.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCmd))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

// Close releases the database file.
func (h *DB) Close() error {
	return h.db.Close()
}

// Add records a line and returns its sequence number.
func (h *DB) Add(text string) (int, error) {
	var seq uint64
	err := h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCmd))
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), []byte(text))
	})
	return int(seq), err
}

// List returns up to limit of the most recent lines, oldest first. A limit
// of zero or less returns everything.
func (h *DB) List(limit int) ([]Entry, error) {
	var entries []Entry
	err := h.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketCmd)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) == limit {
				break
			}
			entries = append(entries, Entry{Seq: int(unmarshalSeq(k)), Text: string(v)})
		}
		return nil
	})
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, err
}

// Last returns the most recent line.
func (h *DB) Last() (Entry, error) {
	var e Entry
	err := h.db.View(func(tx *bolt.Tx) error {
		k, v := tx.Bucket([]byte(bucketCmd)).Cursor().Last()
		if k == nil {
			return ErrEmpty
		}
		e = Entry{Seq: int(unmarshalSeq(k)), Text: string(v)}
		return nil
	})
	return e, err
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
