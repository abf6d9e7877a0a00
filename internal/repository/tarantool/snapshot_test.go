package tarantool

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarantool/go-tarantool/v2"

	"github.com/Xausdorf/signup-bot/internal/domain"
)

// Runs against a live instance with the schema from deploy/tarantool/init.lua.
func TestSnapshotRepositoryIntegration(t *testing.T) {
	addr := os.Getenv("TT_TEST_ADDRESS")
	if testing.Short() || addr == "" {
		t.Skip("skipping integration test, TT_TEST_ADDRESS is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := tarantool.Connect(ctx, tarantool.NetDialer{
		Address:  addr,
		User:     os.Getenv("TT_TEST_USER"),
		Password: os.Getenv("TT_TEST_PASSWORD"),
	}, tarantool.Opts{Timeout: time.Second})
	require.NoError(t, err)
	defer conn.Close()

	repo := NewSnapshotRepository(conn)

	s := domain.NewSignup("post1", "chan1", "Meetup", time.Unix(100, 0))
	require.NoError(t, s.ApplyVote("alice", domain.OptionSpotter))
	require.NoError(t, s.ApplyVote("bob", domain.OptionFullsuit))

	require.NoError(t, repo.Save(ctx, []*domain.Signup{s}))
	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, s.JoinOrder, got[0].JoinOrder)
	assert.Equal(t, s.Selections, got[0].Selections)

	require.NoError(t, repo.Save(ctx, nil))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
