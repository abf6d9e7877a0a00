package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSignup() *Signup {
	return NewSignup("post1", "chan1", "", time.Unix(0, 0))
}

func TestNewSignupDefaults(t *testing.T) {
	s := newTestSignup()

	assert.Equal(t, DefaultTitle, s.Title)
	assert.True(t, s.IsOpen)
	assert.Equal(t, AccessAll, s.Access)
	assert.Empty(t, s.Limits)
	assert.Empty(t, s.Selections)
	assert.Empty(t, s.JoinOrder)
	require.NoError(t, s.Validate())
}

func TestApplyVoteKeepsOnlyLatestSelection(t *testing.T) {
	s := newTestSignup()
	votes := []OptionID{OptionSpotter, OptionFotofur, OptionFullsuit, OptionFullsuit, OptionPartsuit}

	for _, v := range votes {
		require.NoError(t, s.ApplyVote("alice", v))
		require.NoError(t, s.Validate())
	}

	assert.Equal(t, map[string]OptionID{"alice": OptionPartsuit}, s.Selections)
	assert.Equal(t, []string{"alice"}, s.JoinOrder)
}

func TestApplyVoteWithdrawRemovesSelection(t *testing.T) {
	s := newTestSignup()
	require.NoError(t, s.ApplyVote("alice", OptionSpotter))
	require.NoError(t, s.ApplyVote("bob", OptionSpotter))

	require.NoError(t, s.ApplyVote("alice", OptionWithdraw))
	require.NoError(t, s.Validate())
	assert.NotContains(t, s.Selections, "alice")
	assert.Equal(t, []string{"bob"}, s.JoinOrder)

	// withdrawing without a selection is a no-op
	require.NoError(t, s.ApplyVote("carol", OptionWithdraw))
	require.NoError(t, s.Validate())
	assert.Len(t, s.Selections, 1)
}

func TestApplyVoteRevoteMovesToEnd(t *testing.T) {
	s := newTestSignup()
	require.NoError(t, s.ApplyVote("alice", OptionSpotter))
	require.NoError(t, s.ApplyVote("bob", OptionFotofur))
	require.NoError(t, s.ApplyVote("carol", OptionFotofur))

	require.NoError(t, s.ApplyVote("alice", OptionFotofur))

	assert.Equal(t, []string{"bob", "carol", "alice"}, s.Roster(OptionFotofur))
	assert.Empty(t, s.Roster(OptionSpotter))

	// same option again still relocates
	require.NoError(t, s.ApplyVote("bob", OptionFotofur))
	assert.Equal(t, []string{"carol", "alice", "bob"}, s.Roster(OptionFotofur))
}

func TestApplyVoteIgnoresLimit(t *testing.T) {
	s := newTestSignup()
	zero := 0
	require.NoError(t, s.SetLimit(OptionSpotter, &zero))

	require.NoError(t, s.ApplyVote("alice", OptionSpotter))
	require.NoError(t, s.ApplyVote("bob", OptionSpotter))

	assert.Equal(t, []string{"alice", "bob"}, s.Roster(OptionSpotter))
}

func TestApplyVoteAccessModes(t *testing.T) {
	tests := []struct {
		name    string
		mode    AccessMode
		option  OptionID
		wantErr error
	}{
		{"all allows player", AccessAll, OptionFullsuit, nil},
		{"guardians allow spotter", AccessGuardians, OptionSpotter, nil},
		{"guardians allow fotofur", AccessGuardians, OptionFotofur, nil},
		{"guardians reject fullsuit", AccessGuardians, OptionFullsuit, ErrOptionNotAllowed},
		{"guardians reject partsuit", AccessGuardians, OptionPartsuit, ErrOptionNotAllowed},
		{"guardians allow withdraw", AccessGuardians, OptionWithdraw, nil},
		{"players allow partsuit", AccessPlayers, OptionPartsuit, nil},
		{"players reject spotter", AccessPlayers, OptionSpotter, ErrOptionNotAllowed},
		{"players allow withdraw", AccessPlayers, OptionWithdraw, nil},
		{"unknown option", AccessAll, OptionID("dancer"), ErrUnknownOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSignup()
			s.Access = tt.mode

			err := s.ApplyVote("alice", tt.option)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, s.Selections)
				return
			}
			require.NoError(t, err)
			require.NoError(t, s.Validate())
		})
	}
}

func TestApplyVoteRejectedWhenClosed(t *testing.T) {
	s := newTestSignup()
	require.NoError(t, s.ApplyVote("alice", OptionSpotter))
	s.Toggle()
	before := s.Clone()

	for _, opt := range Options() {
		require.ErrorIs(t, s.ApplyVote("bob", opt.ID), ErrSignupClosed)
		require.ErrorIs(t, s.ApplyVote("alice", opt.ID), ErrSignupClosed)
	}
	assert.Equal(t, before, s)
}

func TestToggleKeepsAccessMode(t *testing.T) {
	s := newTestSignup()
	require.NoError(t, s.SetAccess(AccessGuardians))

	assert.False(t, s.Toggle())
	assert.Equal(t, AccessGuardians, s.Access)
	assert.True(t, s.Toggle())
	assert.Equal(t, AccessGuardians, s.Access)
}

func TestSetAccessNormalizesAlias(t *testing.T) {
	s := newTestSignup()
	require.NoError(t, s.SetAccess("suiter"))
	assert.Equal(t, AccessPlayers, s.Access)
	require.ErrorIs(t, s.SetAccess("nobody"), ErrUnknownAccessMode)
	assert.Equal(t, AccessPlayers, s.Access)
}

func TestSetLimit(t *testing.T) {
	s := newTestSignup()
	two := 2

	require.NoError(t, s.SetLimit(OptionSpotter, &two))
	assert.Equal(t, 2, s.Limits[OptionSpotter])
	require.NoError(t, s.SetLimit(OptionSpotter, nil))
	assert.NotContains(t, s.Limits, OptionSpotter)

	require.ErrorIs(t, s.SetLimit(OptionWithdraw, &two), ErrUnknownOption)
	neg := -1
	require.ErrorIs(t, s.SetLimit(OptionFotofur, &neg), ErrInvalidLimit)
}

func TestParseLimit(t *testing.T) {
	n, err := ParseLimit("3")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 3, *n)

	n, err = ParseLimit("0")
	require.NoError(t, err)
	assert.Equal(t, 0, *n)

	for _, clear := range []string{"none", "NONE", "clear"} {
		n, err = ParseLimit(clear)
		require.NoError(t, err)
		assert.Nil(t, n)
	}

	for _, bad := range []string{"-1", "two", "", "1.5"} {
		_, err = ParseLimit(bad)
		assert.ErrorIs(t, err, ErrInvalidLimit, bad)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := newTestSignup()
	require.NoError(t, s.ApplyVote("alice", OptionSpotter))

	c := s.Clone()
	require.NoError(t, c.ApplyVote("bob", OptionFotofur))
	c.Limits[OptionSpotter] = 1

	assert.Len(t, s.Selections, 1)
	assert.Equal(t, []string{"alice"}, s.JoinOrder)
	assert.Empty(t, s.Limits)
}
