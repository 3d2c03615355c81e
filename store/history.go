package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/neurlang/synthparams/arch"
	"github.com/neurlang/synthparams/train"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("store: run not found")

// Run status values.
const (
	StatusRunning  = "running"
	StatusDone     = "done"
	StatusFailed   = "failed"
	StatusStopped  = "stopped"
	StatusCanceled = "canceled"
)

// Run describes one training invocation.
type Run struct {
	ID       string        `msgpack:"id"`
	Started  time.Time     `msgpack:"started"`
	Finished time.Time     `msgpack:"finished"`
	Status   string        `msgpack:"status"`
	Input    string        `msgpack:"input"`
	Layers   []arch.Layer  `msgpack:"layers"`
	Examples int           `msgpack:"examples"`
	Artifact string        `msgpack:"artifact"`
	Error    string        `msgpack:"error,omitempty"`
	Epochs   []train.Epoch `msgpack:"-"`
}

// HistoryOptions configure OpenHistory.
type HistoryOptions struct {
	// Dir holds the database files. Required unless InMemory is set.
	Dir string
	// InMemory keeps everything in memory.
	InMemory bool
	// Logger receives badger warnings and errors; nil discards them.
	Logger *slog.Logger
}

// History keeps training runs in BadgerDB.
type History struct {
	db *badger.DB
}

// OpenHistory opens or creates a run database.
func OpenHistory(o HistoryOptions) (*History, error) {
	if !o.InMemory && o.Dir == "" {
		return nil, errors.New("store: HistoryOptions.Dir is required for on-disk mode")
	}
	opts := badger.DefaultOptions(o.Dir)
	if o.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{o.Logger})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open history: %w", err)
	}
	return &History{db: db}, nil
}

// Close releases the database.
func (h *History) Close() error {
	return h.db.Close()
}

func runKey(id string) []byte { return []byte("run/" + id) }

func epochKey(id string, epoch int) []byte {
	return []byte(fmt.Sprintf("epoch/%s/%08d", id, epoch))
}

// Begin stores a new running Run with a fresh id and start time.
func (h *History) Begin(_ context.Context, r Run) (Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Run{}, err
	}
	r.ID = id.String()
	r.Started = time.Now().UTC()
	r.Status = StatusRunning
	r.Epochs = nil
	if err := h.put(r); err != nil {
		return Run{}, err
	}
	return r, nil
}

// AppendEpoch records one completed epoch of run id.
func (h *History) AppendEpoch(_ context.Context, id string, e train.Epoch) error {
	b, err := msgpack.Marshal(&e)
	if err != nil {
		return err
	}
	return h.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrRunNotFound, id)
			}
			return err
		}
		return txn.Set(epochKey(id, e.Epoch), b)
	})
}

// Finish marks run id as finished with status, artifact path and error.
func (h *History) Finish(ctx context.Context, id, status, artifact string, runErr error) error {
	r, err := h.Get(ctx, id)
	if err != nil {
		return err
	}
	r.Status = status
	r.Finished = time.Now().UTC()
	r.Artifact = artifact
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return h.put(r)
}

// Get loads run id with its epochs.
func (h *History) Get(_ context.Context, id string) (Run, error) {
	var r Run
	err := h.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(v []byte) error { return msgpack.Unmarshal(v, &r) }); err != nil {
			return err
		}
		r.Epochs, err = epochs(txn, id)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// List returns every run, oldest first, without epochs.
func (h *History) List(_ context.Context) ([]Run, error) {
	var runs []Run
	err := h.db.View(func(txn *badger.Txn) error {
		prefix := []byte("run/")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r Run
			if err := it.Item().Value(func(v []byte) error { return msgpack.Unmarshal(v, &r) }); err != nil {
				return err
			}
			runs = append(runs, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Started.Before(runs[j].Started) })
	return runs, nil
}

func epochs(txn *badger.Txn, id string) ([]train.Epoch, error) {
	prefix := []byte("epoch/" + id + "/")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	var out []train.Epoch
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var e train.Epoch
		if err := it.Item().Value(func(v []byte) error { return msgpack.Unmarshal(v, &e) }); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (h *History) put(r Run) error {
	b, err := msgpack.Marshal(&r)
	if err != nil {
		return err
	}
	return h.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(r.ID), b)
	})
}

// badgerLogger forwards warnings and errors to slog.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(f string, v ...interface{}) {
	if b.l != nil {
		b.l.Error(fmt.Sprintf(f, v...), "component", "badger")
	}
}

func (b badgerLogger) Warningf(f string, v ...interface{}) {
	if b.l != nil {
		b.l.Warn(fmt.Sprintf(f, v...), "component", "badger")
	}
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
