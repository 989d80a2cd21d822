// Package snapshot memoizes cleaned tables and their similarity matrices,
// keyed by the content of the source and the cleaning options.
package snapshot

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/KaramelBytes/rntrec/internal/dataset"
	"github.com/KaramelBytes/rntrec/internal/logging"
	"github.com/KaramelBytes/rntrec/internal/metrics"
	"github.com/KaramelBytes/rntrec/internal/similarity"
)

// Snapshot is an immutable cleaned table with its aligned similarity matrix.
// It is shared by reference between readers and must not be modified.
type Snapshot struct {
	ID       string
	Key      string
	Source   string
	Table    *dataset.Table
	Matrix   *similarity.Matrix
	BuiltAt  time.Time
	Duration time.Duration
}

// stamp remembers which key a file had at a given size and mtime.
type stamp struct {
	size    int64
	modTime time.Time
	opts    string
	key     string
}

// Store is a bounded, concurrency-safe snapshot cache.
type Store struct {
	cache  *lru.Cache[string, *Snapshot]
	group  singleflight.Group
	mu     sync.Mutex
	stamps map[string]stamp
}

// New returns a store holding at most size snapshots.
func New(size int) (*Store, error) {
	if size < 1 {
		size = 1
	}
	c, err := lru.New[string, *Snapshot](size)
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: %w", err)
	}
	return &Store{cache: c, stamps: map[string]stamp{}}, nil
}

// Key derives the cache key of a source and its cleaning options.
func Key(data []byte, opt dataset.Options) string {
	h := sha1.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(optionsKey(opt)))
	return hex.EncodeToString(h.Sum(nil))
}

func optionsKey(opt dataset.Options) string {
	opt = opt.WithDefaults()
	s := opt.Schema
	return strings.Join([]string{
		opt.Region, opt.Sheet, string(opt.Delimiter),
		s.Region, s.TradeName, s.Category, s.Locality, s.Employees, s.Beds, s.Rooms,
		dataset.UnknownName, dataset.NotAvailable,
	}, "\x1f")
}

// Load returns the snapshot of the file at path, building it on a miss. An
// unchanged file (same size and mtime) is not re-read.
func (s *Store) Load(ctx context.Context, path string, opt dataset.Options) (*Snapshot, error) {
	log := logging.Ctx(ctx)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		metrics.RecordLoad(0, 0, 0, err)
		return nil, &dataset.LoadError{Kind: dataset.ErrSourceUnavailable, Path: path, Err: err}
	}
	ok := optionsKey(opt)

	s.mu.Lock()
	st, seen := s.stamps[abs]
	s.mu.Unlock()
	if seen && st.size == info.Size() && st.modTime.Equal(info.ModTime()) && st.opts == ok {
		if snap, hit := s.cache.Get(st.key); hit {
			metrics.RecordCache(true)
			log.Debug().Str("source", path).Str("snapshot", snap.ID).Msg("snapshot cache hit (unchanged file)")
			return snap, nil
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		metrics.RecordLoad(0, 0, 0, err)
		return nil, &dataset.LoadError{Kind: dataset.ErrSourceUnavailable, Path: path, Err: err}
	}
	snap, err := s.FromBytes(ctx, path, data, opt)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.stamps[abs] = stamp{size: info.Size(), modTime: info.ModTime(), opts: ok, key: snap.Key}
	s.mu.Unlock()
	return snap, nil
}

// FromBytes returns the snapshot of an in-memory source; name selects the format.
func (s *Store) FromBytes(ctx context.Context, name string, data []byte, opt dataset.Options) (*Snapshot, error) {
	key := Key(data, opt)
	if snap, hit := s.cache.Get(key); hit {
		metrics.RecordCache(true)
		logging.Ctx(ctx).Debug().Str("source", name).Str("snapshot", snap.ID).Msg("snapshot cache hit")
		return snap, nil
	}
	metrics.RecordCache(false)
	v, err, _ := s.group.Do(key, func() (any, error) {
		if snap, hit := s.cache.Get(key); hit {
			return snap, nil
		}
		snap, err := build(name, data, opt)
		if err != nil {
			return nil, err
		}
		snap.Key = key
		s.cache.Add(key, snap)
		return snap, nil
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("source", name).Msg("load failed")
		return nil, err
	}
	return v.(*Snapshot), nil
}

func build(name string, data []byte, opt dataset.Options) (*Snapshot, error) {
	start := time.Now()
	t, err := dataset.Read(name, data, opt)
	if err != nil {
		metrics.RecordLoad(time.Since(start), 0, 0, err)
		return nil, err
	}
	m := similarity.Build(t)
	d := time.Since(start)
	metrics.RecordLoad(d, t.Len(), m.Features(), nil)
	snap := &Snapshot{
		ID:       uuid.NewString(),
		Source:   name,
		Table:    t,
		Matrix:   m,
		BuiltAt:  start,
		Duration: d,
	}
	l := logging.Component("snapshot")
	l.Info().
		Str("snapshot", snap.ID).
		Str("source", name).
		Int("rows", t.Len()).
		Int("features", m.Features()).
		Dur("took", d).
		Msg("snapshot built")
	return snap, nil
}

// Len returns the number of cached snapshots.
func (s *Store) Len() int { return s.cache.Len() }
