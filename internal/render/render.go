// Package render turns a signup into the text and buttons of its Mattermost post.
package render

import (
	"fmt"
	"strings"

	"github.com/Xausdorf/signup-bot/internal/domain"
)

const (
	noParticipantsLine = "_No participants yet._"
	closedLine         = "_Sign-up closed_"
	ratioLabel         = "**Spotter+Fotofur : Suiter**"
)

// Control - one button of the post. PollID and OptionID route the click back to a vote.
type Control struct {
	PollID   string
	OptionID domain.OptionID
	Label    string
}

// View - rendered post. Controls is nil when no buttons must be attached.
type View struct {
	Text     string
	Controls []Control
}

// Render is a pure function of its arguments. names maps user ids to display names,
// users missing from it are shown by id.
func Render(s *domain.Signup, names map[string]string) View {
	lines := []string{fmt.Sprintf("**Sign-up: %s**", s.Title)}
	if !s.IsOpen {
		lines = append(lines, closedLine)
	}

	var guardians, players, sections int
	for _, opt := range domain.RoleOptions() {
		users := s.Roster(opt.ID)
		switch opt.Category {
		case domain.CategoryGuardian:
			guardians += len(users)
		case domain.CategoryPlayer:
			players += len(users)
		}
		if len(users) == 0 {
			continue
		}
		sections++
		lines = append(lines, "", rosterSection(opt, users, s.Limits, names))
	}

	if sections == 0 {
		lines = append(lines, "", noParticipantsLine)
	}
	lines = append(lines, "", fmt.Sprintf("%s %d : %d", ratioLabel, guardians, players))

	return View{
		Text:     strings.Join(lines, "\n"),
		Controls: controls(s),
	}
}

func rosterSection(opt domain.Option, users []string, limits map[domain.OptionID]int, names map[string]string) string {
	limit, limited := limits[opt.ID]

	var b strings.Builder
	if limited {
		fmt.Fprintf(&b, "**%s (%d/%d):**", opt.Label, min(len(users), limit), limit)
	} else {
		fmt.Fprintf(&b, "**%s (%d):**", opt.Label, len(users))
	}
	for i, uid := range users {
		name := mention(uid, names)
		if limited && i >= limit {
			fmt.Fprintf(&b, "\n%d. _%s_", i+1, name)
		} else {
			fmt.Fprintf(&b, "\n%d. %s", i+1, name)
		}
	}
	return b.String()
}

func mention(userID string, names map[string]string) string {
	if name, ok := names[userID]; ok && name != "" {
		return "@" + name
	}
	return userID
}

func controls(s *domain.Signup) []Control {
	if !s.IsOpen {
		return nil
	}
	allowed := domain.AllowedOptions(s.Access)
	out := make([]Control, 0, len(allowed))
	for _, opt := range allowed {
		out = append(out, Control{PollID: s.ID, OptionID: opt.ID, Label: opt.Label})
	}
	return out
}
