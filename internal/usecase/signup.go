package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Xausdorf/signup-bot/internal/domain"
	"github.com/Xausdorf/signup-bot/internal/metrics"
)

type SignupRepository interface {
	Save(ctx context.Context, signup *domain.Signup) error
	GetByID(ctx context.Context, id string) (*domain.Signup, error)
	// UpdateByID runs updateFn under a per-id lock and returns the committed state.
	UpdateByID(ctx context.Context, id string, updateFn func(signup *domain.Signup) error) (*domain.Signup, error)
	DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Snapshotter - durable sink for the whole set of signups.
type Snapshotter interface {
	Save(ctx context.Context, signups []*domain.Signup) error
	Load(ctx context.Context) ([]*domain.Signup, error)
}

type Signup struct {
	repo    SignupRepository
	metrics *metrics.Metrics
	now     func() time.Time

	// names is a display-only cache filled from the latest event of each user.
	// It is not persisted and may be stale.
	namesMu sync.RWMutex
	names   map[string]string
}

func NewSignup(repo SignupRepository, m *metrics.Metrics) *Signup {
	return &Signup{
		repo:    repo,
		metrics: m,
		now:     time.Now,
		names:   make(map[string]string),
	}
}

// CreateSignup registers a signup under the id of the already posted message.
func (s *Signup) CreateSignup(ctx context.Context, id, channelID, title string) (*domain.Signup, error) {
	signup := domain.NewSignup(id, channelID, title, s.now())
	if err := s.repo.Save(ctx, signup); err != nil {
		return nil, fmt.Errorf("could not save signup: %w", err)
	}
	return signup.Clone(), nil
}

func (s *Signup) GetSignup(ctx context.Context, id string) (*domain.Signup, error) {
	signup, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve signup: %w", err)
	}
	return signup, nil
}

func (s *Signup) Vote(ctx context.Context, signupID, userID, userName string, option domain.OptionID) (*domain.Signup, error) {
	s.RememberName(userID, userName)

	signup, err := s.update(ctx, signupID, func(signup *domain.Signup) error {
		return signup.ApplyVote(userID, option)
	})
	if err != nil {
		s.metrics.VoteRejected(err)
		return nil, err
	}
	s.metrics.VoteAccepted(option)
	return signup, nil
}

// Toggle opens a closed signup or closes an open one.
func (s *Signup) Toggle(ctx context.Context, signupID string) (*domain.Signup, error) {
	return s.update(ctx, signupID, func(signup *domain.Signup) error {
		signup.Toggle()
		return nil
	})
}

func (s *Signup) SetAccess(ctx context.Context, signupID string, mode domain.AccessMode) (*domain.Signup, error) {
	return s.update(ctx, signupID, func(signup *domain.Signup) error {
		return signup.SetAccess(mode)
	})
}

// SetLimit sets the display threshold of option; nil limit removes it.
func (s *Signup) SetLimit(ctx context.Context, signupID string, option domain.OptionID, limit *int) (*domain.Signup, error) {
	return s.update(ctx, signupID, func(signup *domain.Signup) error {
		return signup.SetLimit(option, limit)
	})
}

func (s *Signup) update(ctx context.Context, signupID string, fn func(signup *domain.Signup) error) (*domain.Signup, error) {
	signup, err := s.repo.UpdateByID(ctx, signupID, func(signup *domain.Signup) error {
		if err := fn(signup); err != nil {
			return err
		}
		signup.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not update signup: %w", err)
	}
	return signup, nil
}

func (s *Signup) RememberName(userID, name string) {
	if userID == "" || name == "" {
		return
	}
	s.namesMu.Lock()
	s.names[userID] = name
	s.namesMu.Unlock()
}

// DisplayNames returns the cached names of the users in signup and the ids without one.
func (s *Signup) DisplayNames(signup *domain.Signup) (map[string]string, []string) {
	s.namesMu.RLock()
	defer s.namesMu.RUnlock()

	names := make(map[string]string, len(signup.JoinOrder))
	var missing []string
	for _, uid := range signup.JoinOrder {
		if name, ok := s.names[uid]; ok {
			names[uid] = name
		} else {
			missing = append(missing, uid)
		}
	}
	return names, missing
}

// PruneUpdatedBefore drops signups that have not changed since cutoff.
func (s *Signup) PruneUpdatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.repo.DeleteUpdatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("could not prune signups: %w", err)
	}
	return n, nil
}

// RunJanitor prunes signups older than retention every interval until ctx is done.
func (s *Signup) RunJanitor(ctx context.Context, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PruneUpdatedBefore(ctx, s.now().Add(-retention))
			if err != nil {
				log.Printf("Janitor failed: %v\n", err)
				continue
			}
			if n > 0 {
				log.Printf("Janitor pruned signups: count=%d; retention=%s\n", n, retention)
			}
		}
	}
}
