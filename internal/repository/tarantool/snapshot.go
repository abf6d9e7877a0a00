package tarantool

import (
	"context"
	"fmt"
	"time"

	"github.com/tarantool/go-tarantool/v2"

	"github.com/Xausdorf/signup-bot/internal/domain"
	"github.com/Xausdorf/signup-bot/internal/repository/record"
)

const (
	snapshotSpace = "signup_snapshots"
)

// SnapshotRepository stores all signups as one tuple, so each save replaces the
// previous state atomically.
type SnapshotRepository struct {
	conn *tarantool.Connection
}

func NewSnapshotRepository(conn *tarantool.Connection) *SnapshotRepository {
	return &SnapshotRepository{
		conn: conn,
	}
}

func (r *SnapshotRepository) Save(ctx context.Context, signups []*domain.Signup) error {
	if _, err := r.conn.Do(
		tarantool.NewReplaceRequest(snapshotSpace).
			Context(ctx).
			Tuple(record.NewSnapshotModel(signups, time.Now())),
	).Get(); err != nil {
		return fmt.Errorf("could not replace snapshot in tarantool: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Load(ctx context.Context) ([]*domain.Signup, error) {
	var res []record.SnapshotModel
	if err := r.conn.Do(
		tarantool.NewSelectRequest(snapshotSpace).
			Context(ctx).
			Index("primary").
			Limit(1).
			Iterator(tarantool.IterEq).
			Key(tarantool.StringKey{S: record.CurrentKey}),
	).GetTyped(&res); err != nil {
		return nil, fmt.Errorf("could not select typed snapshot in tarantool: %w", err)
	}
	if len(res) == 0 {
		return nil, nil
	}
	return res[0].ToSignups(), nil
}
