package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Xausdorf/signup-bot/internal/domain"
	"github.com/Xausdorf/signup-bot/internal/metrics"
	"github.com/Xausdorf/signup-bot/internal/usecase"
)

type entry struct {
	mu     sync.Mutex
	signup *domain.Signup

	// deleted is set once the entry is pruned from the map.
	deleted bool
}

// SignupRepository keeps signups in memory and writes a full snapshot after every change.
// Updates of the same signup are serialized, updates of different signups are not.
type SignupRepository struct {
	mu      sync.RWMutex
	entries map[string]*entry

	snapshotter usecase.Snapshotter
	saveMu      sync.Mutex
	metrics     *metrics.Metrics
}

func NewSignupRepository(snapshotter usecase.Snapshotter, m *metrics.Metrics) *SignupRepository {
	return &SignupRepository{
		entries:     make(map[string]*entry),
		snapshotter: snapshotter,
		metrics:     m,
	}
}

// Load replaces the content of the repository with the stored snapshot.
func (r *SignupRepository) Load(ctx context.Context) error {
	if r.snapshotter == nil {
		return nil
	}
	signups, err := r.snapshotter.Load(ctx)
	if err != nil {
		return fmt.Errorf("could not load snapshot: %w", err)
	}

	entries := make(map[string]*entry, len(signups))
	for _, s := range signups {
		if err = s.Validate(); err != nil {
			log.Printf("Skipping invalid signup from snapshot: id=%s; %v\n", s.ID, err)
			continue
		}
		entries[s.ID] = &entry{signup: s.Clone()}
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return nil
}

func (r *SignupRepository) Save(ctx context.Context, signup *domain.Signup) error {
	r.mu.Lock()
	if _, ok := r.entries[signup.ID]; ok {
		r.mu.Unlock()
		return domain.ErrDuplicateID
	}
	r.entries[signup.ID] = &entry{signup: signup.Clone()}
	r.mu.Unlock()

	r.persist(ctx)
	return nil
}

func (r *SignupRepository) GetByID(_ context.Context, id string) (*domain.Signup, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, domain.ErrSignupNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, domain.ErrSignupNotFound
	}
	return e.signup.Clone(), nil
}

func (r *SignupRepository) UpdateByID(ctx context.Context, id string, updateFn func(signup *domain.Signup) error) (*domain.Signup, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, domain.ErrSignupNotFound
	}
	return r.update(ctx, e, updateFn)
}

// update commits updateFn on e unless e was pruned after the lookup.
func (r *SignupRepository) update(ctx context.Context, e *entry, updateFn func(signup *domain.Signup) error) (*domain.Signup, error) {
	e.mu.Lock()
	if e.deleted {
		e.mu.Unlock()
		return nil, domain.ErrSignupNotFound
	}
	next := e.signup.Clone()
	if err := updateFn(next); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if err := next.Validate(); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("update broke signup %s: %w", next.ID, err)
	}
	e.signup = next
	out := next.Clone()
	e.mu.Unlock()

	r.persist(ctx)
	return out, nil
}

func (r *SignupRepository) DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	var n int
	for id, e := range r.entries {
		e.mu.Lock()
		stale := e.signup.UpdatedAt.Before(cutoff)
		if stale {
			e.deleted = true
		}
		e.mu.Unlock()
		if stale {
			delete(r.entries, id)
			n++
		}
	}
	r.mu.Unlock()

	if n > 0 {
		r.persist(ctx)
	}
	return n, nil
}

// Snapshot returns copies of all signups ordered by id.
func (r *SignupRepository) Snapshot() []*domain.Signup {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]*domain.Signup, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.signup.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *SignupRepository) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// persist writes the current state. Saves are serialized and each takes a fresh
// snapshot, so the last write always holds the newest state. Errors are only logged.
func (r *SignupRepository) persist(ctx context.Context) {
	if r.snapshotter == nil {
		return
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	start := time.Now()
	err := r.snapshotter.Save(ctx, r.Snapshot())
	r.metrics.SnapshotWritten(start, err)
	if err != nil {
		log.Printf("Could not persist signups snapshot: %v\n", err)
	}
}
