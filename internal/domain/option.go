package domain

import "strings"

// OptionID - stable identifier of a selectable role, used in button contexts and snapshots.
type OptionID string

// Category - role group an option counts towards in the ratio line.
type Category int

const (
	CategoryNone Category = iota
	CategoryGuardian
	CategoryPlayer
)

const (
	OptionSpotter  OptionID = "spotter"
	OptionFullsuit OptionID = "fullsuit"
	OptionPartsuit OptionID = "partsuit"
	OptionFotofur  OptionID = "fotofur"
	// OptionWithdraw is never stored as a selection, choosing it removes the current one.
	OptionWithdraw OptionID = "withdraw"
)

// Option - one entry of the role catalog.
type Option struct {
	ID       OptionID
	Label    string
	Category Category
}

var catalog = []Option{
	{ID: OptionSpotter, Label: "Spotter", Category: CategoryGuardian},
	{ID: OptionFullsuit, Label: "Suiter (Fullsuit)", Category: CategoryPlayer},
	{ID: OptionPartsuit, Label: "Suiter (Partsuit)", Category: CategoryPlayer},
	{ID: OptionFotofur, Label: "Fotofur", Category: CategoryGuardian},
	{ID: OptionWithdraw, Label: "Withdraw", Category: CategoryNone},
}

// Options returns the catalog in display order, withdraw last.
func Options() []Option {
	out := make([]Option, len(catalog))
	copy(out, catalog)
	return out
}

// RoleOptions returns every option except withdraw.
func RoleOptions() []Option {
	out := make([]Option, 0, len(catalog)-1)
	for _, opt := range catalog {
		if opt.ID != OptionWithdraw {
			out = append(out, opt)
		}
	}
	return out
}

func OptionByID(id OptionID) (Option, bool) {
	for _, opt := range catalog {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// LookupOption resolves user input by id or label, ignoring case.
func LookupOption(s string) (Option, error) {
	s = strings.TrimSpace(s)
	for _, opt := range catalog {
		if strings.EqualFold(string(opt.ID), s) || strings.EqualFold(opt.Label, s) {
			return opt, nil
		}
	}
	return Option{}, ErrUnknownOption
}

// AccessMode - restricts which role options can be chosen.
type AccessMode string

const (
	AccessAll       AccessMode = "all"
	AccessGuardians AccessMode = "guardians"
	AccessPlayers   AccessMode = "players"
)

func ParseAccessMode(s string) (AccessMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return AccessAll, nil
	case "guardians", "guardian":
		return AccessGuardians, nil
	case "players", "player", "suiter", "suiters":
		return AccessPlayers, nil
	}
	return "", ErrUnknownAccessMode
}

// AllowedOptions returns the options selectable under mode in catalog order.
// Withdraw is always included.
func AllowedOptions(mode AccessMode) []Option {
	out := make([]Option, 0, len(catalog))
	for _, opt := range catalog {
		if mode.allows(opt) {
			out = append(out, opt)
		}
	}
	return out
}

func (m AccessMode) allows(opt Option) bool {
	if opt.ID == OptionWithdraw {
		return true
	}
	switch m {
	case AccessGuardians:
		return opt.Category == CategoryGuardian
	case AccessPlayers:
		return opt.Category == CategoryPlayer
	default:
		return true
	}
}
