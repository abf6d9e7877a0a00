package domain

import (
	"fmt"
	"time"
)

const DefaultTitle = "Sign-up"

// Signup - state of one posted sign-up message. ID is the id of that message.
type Signup struct {
	ID        string
	ChannelID string
	Title     string
	IsOpen    bool
	Access    AccessMode
	// Limits - display thresholds per role option, absent key means unlimited.
	Limits map[OptionID]int
	// Selections - current option of each participating user.
	Selections map[string]OptionID
	// JoinOrder - user ids in the order of their latest selection.
	JoinOrder []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSignup(id, channelID, title string, now time.Time) *Signup {
	if title == "" {
		title = DefaultTitle
	}
	return &Signup{
		ID:         id,
		ChannelID:  channelID,
		Title:      title,
		IsOpen:     true,
		Access:     AccessAll,
		Limits:     make(map[OptionID]int),
		Selections: make(map[string]OptionID),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a deep copy, so a failed mutation can be discarded.
func (s *Signup) Clone() *Signup {
	c := *s
	c.Limits = make(map[OptionID]int, len(s.Limits))
	for k, v := range s.Limits {
		c.Limits[k] = v
	}
	c.Selections = make(map[string]OptionID, len(s.Selections))
	for k, v := range s.Selections {
		c.Selections[k] = v
	}
	c.JoinOrder = append([]string(nil), s.JoinOrder...)
	return &c
}

// Roster returns the users currently on option, in join order.
func (s *Signup) Roster(option OptionID) []string {
	var users []string
	for _, uid := range s.JoinOrder {
		if s.Selections[uid] == option {
			users = append(users, uid)
		}
	}
	return users
}

// Toggle flips the open state and reports the new one.
func (s *Signup) Toggle() bool {
	s.IsOpen = !s.IsOpen
	return s.IsOpen
}

func (s *Signup) SetAccess(mode AccessMode) error {
	m, err := ParseAccessMode(string(mode))
	if err != nil {
		return err
	}
	s.Access = m
	return nil
}

// SetLimit stores a display threshold for a role option; a nil limit removes it.
func (s *Signup) SetLimit(option OptionID, limit *int) error {
	if option == OptionWithdraw {
		return ErrUnknownOption
	}
	if _, ok := OptionByID(option); !ok {
		return ErrUnknownOption
	}
	if limit == nil {
		delete(s.Limits, option)
		return nil
	}
	if *limit < 0 {
		return ErrInvalidLimit
	}
	if s.Limits == nil {
		s.Limits = make(map[OptionID]int)
	}
	s.Limits[option] = *limit
	return nil
}

// Validate checks that selections and join order describe the same set of users.
func (s *Signup) Validate() error {
	if len(s.JoinOrder) != len(s.Selections) {
		return fmt.Errorf("join order has %d users, selections %d", len(s.JoinOrder), len(s.Selections))
	}
	seen := make(map[string]struct{}, len(s.JoinOrder))
	for _, uid := range s.JoinOrder {
		if _, dup := seen[uid]; dup {
			return fmt.Errorf("user %q appears twice in join order", uid)
		}
		seen[uid] = struct{}{}
		opt, ok := s.Selections[uid]
		if !ok {
			return fmt.Errorf("user %q has no selection", uid)
		}
		if opt == OptionWithdraw {
			return fmt.Errorf("user %q stored with withdraw option", uid)
		}
	}
	for opt, limit := range s.Limits {
		if opt == OptionWithdraw || limit < 0 {
			return fmt.Errorf("invalid limit %d for option %q", limit, opt)
		}
	}
	return nil
}
