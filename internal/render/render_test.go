package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xausdorf/signup-bot/internal/domain"
)

func newSignup(t *testing.T, title string) *domain.Signup {
	t.Helper()
	return domain.NewSignup("post1", "chan1", title, time.Unix(0, 0))
}

func vote(t *testing.T, s *domain.Signup, user string, opt domain.OptionID) {
	t.Helper()
	require.NoError(t, s.ApplyVote(user, opt))
}

func TestRenderEmpty(t *testing.T) {
	s := newSignup(t, "Meetup")

	v := Render(s, nil)

	want := strings.Join([]string{
		"**Sign-up: Meetup**",
		"",
		"_No participants yet._",
		"",
		"**Spotter+Fotofur : Suiter** 0 : 0",
	}, "\n")
	assert.Equal(t, want, v.Text)
	require.Len(t, v.Controls, 5)
	for _, c := range v.Controls {
		assert.Equal(t, "post1", c.PollID)
	}
	assert.Equal(t, domain.OptionWithdraw, v.Controls[4].OptionID)
}

func TestRenderLimitOverflow(t *testing.T) {
	s := newSignup(t, "Meetup")
	vote(t, s, "A", domain.OptionSpotter)
	vote(t, s, "B", domain.OptionSpotter)
	limit := 1
	require.NoError(t, s.SetLimit(domain.OptionSpotter, &limit))

	v := Render(s, map[string]string{"A": "A", "B": "B"})

	want := strings.Join([]string{
		"**Sign-up: Meetup**",
		"",
		"**Spotter (1/1):**",
		"1. @A",
		"2. _@B_",
		"",
		"**Spotter+Fotofur : Suiter** 2 : 0",
	}, "\n")
	assert.Equal(t, want, v.Text)
}

func TestRenderLimitTwoOfThree(t *testing.T) {
	s := newSignup(t, "Meetup")
	for _, u := range []string{"u1", "u2", "u3"} {
		vote(t, s, u, domain.OptionFotofur)
	}
	limit := 2
	require.NoError(t, s.SetLimit(domain.OptionFotofur, &limit))

	v := Render(s, nil)

	assert.Contains(t, v.Text, "**Fotofur (2/2):**\n1. u1\n2. u2\n3. _u3_")
	assert.Len(t, s.Selections, 3)
}

func TestRenderZeroLimitMarksEveryone(t *testing.T) {
	s := newSignup(t, "Meetup")
	vote(t, s, "u1", domain.OptionPartsuit)
	zero := 0
	require.NoError(t, s.SetLimit(domain.OptionPartsuit, &zero))

	v := Render(s, nil)

	assert.Contains(t, v.Text, "**Suiter (Partsuit) (0/0):**\n1. _u1_")
}

func TestRenderRevoteOmitsEmptySection(t *testing.T) {
	s := newSignup(t, "Meetup")
	vote(t, s, "A", domain.OptionSpotter)
	vote(t, s, "A", domain.OptionFullsuit)

	v := Render(s, map[string]string{"A": "A"})

	assert.NotContains(t, v.Text, "**Spotter (")
	assert.Contains(t, v.Text, "**Suiter (Fullsuit) (1):**\n1. @A")
	assert.Contains(t, v.Text, "0 : 1")
	assert.NotContains(t, v.Text, noParticipantsLine)
}

func TestRenderSectionsInCatalogOrder(t *testing.T) {
	s := newSignup(t, "Meetup")
	vote(t, s, "u1", domain.OptionFotofur)
	vote(t, s, "u2", domain.OptionPartsuit)
	vote(t, s, "u3", domain.OptionSpotter)
	vote(t, s, "u4", domain.OptionFullsuit)

	text := Render(s, nil).Text

	idx := func(sub string) int { return strings.Index(text, sub) }
	assert.Less(t, idx("**Spotter ("), idx("**Suiter (Fullsuit)"))
	assert.Less(t, idx("**Suiter (Fullsuit)"), idx("**Suiter (Partsuit)"))
	assert.Less(t, idx("**Suiter (Partsuit)"), idx("**Fotofur"))
	assert.True(t, strings.HasSuffix(text, "2 : 2"))
}

func TestRenderClosed(t *testing.T) {
	s := newSignup(t, "Meetup")
	vote(t, s, "A", domain.OptionSpotter)
	s.Toggle()

	v := Render(s, nil)

	assert.True(t, strings.HasPrefix(v.Text, "**Sign-up: Meetup**\n_Sign-up closed_\n"))
	assert.Nil(t, v.Controls)
}

func TestRenderControlsFollowAccessMode(t *testing.T) {
	s := newSignup(t, "Meetup")
	require.NoError(t, s.SetAccess(domain.AccessPlayers))

	v := Render(s, nil)

	require.Len(t, v.Controls, 3)
	assert.Equal(t, Control{PollID: "post1", OptionID: domain.OptionFullsuit, Label: "Suiter (Fullsuit)"}, v.Controls[0])
	assert.Equal(t, domain.OptionPartsuit, v.Controls[1].OptionID)
	assert.Equal(t, domain.OptionWithdraw, v.Controls[2].OptionID)
}

func TestRenderIsDeterministic(t *testing.T) {
	build := func() *domain.Signup {
		s := newSignup(t, "Meetup")
		vote(t, s, "a", domain.OptionSpotter)
		vote(t, s, "b", domain.OptionFullsuit)
		vote(t, s, "c", domain.OptionSpotter)
		limit := 1
		require.NoError(t, s.SetLimit(domain.OptionSpotter, &limit))
		return s
	}
	names := map[string]string{"a": "alice", "b": "bob"}

	first, second := Render(build(), names), Render(build(), names)

	assert.Equal(t, first, second)
	assert.Equal(t, first, Render(build(), names))
}
