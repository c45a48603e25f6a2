// Package store archives finished builds and conversation transcripts in a
// local BadgerDB so past sessions can be listed and inspected.
package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vobuild/vobuild/pkg/chat"
	"github.com/vobuild/vobuild/pkg/pipeline"
)

// ErrNotFound is returned when no record exists for the given ID.
var ErrNotFound = errors.New("store: not found")

// BuildRecord is the archived form of a build session.
type BuildRecord struct {
	ID          string         `msgpack:"id"`
	Stage       pipeline.Stage `msgpack:"stage"`
	Prompt      string         `msgpack:"prompt"`
	AppName     string         `msgpack:"app_name"`
	Code        string         `msgpack:"code"`
	IconRef     string         `msgpack:"icon_ref"`
	ArtifactURL string         `msgpack:"artifact_url"`
	Log         []string       `msgpack:"log"`
	Error       string         `msgpack:"error"`
	CreatedAt   time.Time      `msgpack:"created_at"`
	UpdatedAt   time.Time      `msgpack:"updated_at"`
}

// Options configures the store.
type Options struct {
	// Dir is the directory for data files. Required unless InMemory.
	Dir string

	// InMemory runs badger without disk persistence. Used in tests.
	InMemory bool

	// Logger sets the badger logger. Nil silences badger output.
	Logger badger.Logger
}

// Store is a badger-backed session archive.
type Store struct {
	db *badger.DB
}

// Open opens or creates the archive.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(nopLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBuild writes or overwrites a build record.
func (s *Store) SaveBuild(rec *BuildRecord) error {
	if rec.ID == "" {
		return errors.New("store: build record has no ID")
	}
	rec.UpdatedAt = time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	val, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode build: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(buildKey(rec.ID), val)
	})
}

// GetBuild loads a build record by ID.
func (s *Store) GetBuild(id string) (*BuildRecord, error) {
	var rec BuildRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(buildKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListBuilds returns all archived builds, newest first.
func (s *Store) ListBuilds() ([]*BuildRecord, error) {
	var records []*BuildRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(buildPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var rec BuildRecord
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// AppendMessages appends messages to a session's transcript.
func (s *Store) AppendMessages(sessionID string, msgs ...chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		var transcript []chat.Message
		item, err := txn.Get(transcriptKey(sessionID))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &transcript)
			}); err != nil {
				return err
			}
		}

		transcript = append(transcript, msgs...)
		val, err := msgpack.Marshal(transcript)
		if err != nil {
			return fmt.Errorf("store: encode transcript: %w", err)
		}
		return txn.Set(transcriptKey(sessionID), val)
	})
}

// Transcript returns a session's transcript in append order. A session with
// no messages yields an empty transcript, not an error.
func (s *Store) Transcript(sessionID string) ([]chat.Message, error) {
	var transcript []chat.Message
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(transcriptKey(sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &transcript)
		})
	})
	if err != nil {
		return nil, err
	}
	return transcript, nil
}

const (
	buildPrefix      = "build:"
	transcriptPrefix = "transcript:"
)

func buildKey(id string) []byte {
	return []byte(buildPrefix + id)
}

func transcriptKey(id string) []byte {
	return []byte(transcriptPrefix + id)
}

// nopLogger silences badger's internal logging.
type nopLogger struct{}

func (nopLogger) Errorf(string, ...any)   {}
func (nopLogger) Warningf(string, ...any) {}
func (nopLogger) Infof(string, ...any)    {}
func (nopLogger) Debugf(string, ...any)   {}
