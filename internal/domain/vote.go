package domain

import (
	"slices"
	"strconv"
	"strings"
)

// ApplyVote records that userID picked option, replacing any earlier pick.
// A re-vote moves the user to the end of the join order. Limits are not enforced here,
// entries above a limit are only marked when rendered.
func (s *Signup) ApplyVote(userID string, option OptionID) error {
	if !s.IsOpen {
		return ErrSignupClosed
	}
	opt, ok := OptionByID(option)
	if !ok {
		return ErrUnknownOption
	}
	if !s.Access.allows(opt) {
		return ErrOptionNotAllowed
	}

	if _, voted := s.Selections[userID]; voted {
		delete(s.Selections, userID)
		if i := slices.Index(s.JoinOrder, userID); i >= 0 {
			s.JoinOrder = slices.Delete(s.JoinOrder, i, i+1)
		}
	}

	if option != OptionWithdraw {
		if s.Selections == nil {
			s.Selections = make(map[string]OptionID)
		}
		s.Selections[userID] = option
		s.JoinOrder = append(s.JoinOrder, userID)
	}
	return nil
}

// ParseLimit parses a limit argument. "none" and "clear" return nil, meaning unlimited.
func ParseLimit(value string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "clear":
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return nil, ErrInvalidLimit
	}
	return &n, nil
}
