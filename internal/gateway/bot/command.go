package bot

import (
	"errors"
	"strings"

	"github.com/Xausdorf/signup-bot/internal/domain"
)

var ErrUnknownCommand = errors.New("unknown command")

const (
	startUsage  = "`%s start [title]` - post a new sign-up"
	toggleUsage = "`%s toggle` - open or close the sign-up (reply to it)"
	accessUsage = "`%s access all|guardians|players` - restrict selectable roles (reply to it)"
	limitUsage  = "`%s limit [option] [number|none]` - set or remove a role limit (reply to it)"
)

// Command - one parsed admin command. The set of implementations is closed.
type Command interface {
	name() string
}

type CreateCommand struct {
	Title string
}

type ToggleCommand struct{}

type SetAccessCommand struct {
	Mode domain.AccessMode
}

type SetLimitCommand struct {
	Option domain.OptionID
	// Limit - nil removes the limit.
	Limit *int
}

type HelpCommand struct{}

func (CreateCommand) name() string    { return "start" }
func (ToggleCommand) name() string    { return "toggle" }
func (SetAccessCommand) name() string { return "access" }
func (SetLimitCommand) name() string  { return "limit" }
func (HelpCommand) name() string      { return "help" }

// InputError - malformed command, Usage tells the user how to fix it.
type InputError struct {
	Err   error
	Usage string
}

func (e *InputError) Error() string {
	return e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// ParseCommand parses the arguments that follow the trigger word.
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return HelpCommand{}, nil
	}

	sub, rest := strings.ToLower(args[0]), args[1:]
	switch sub {
	case "start", "create", "anmeldung":
		return CreateCommand{Title: strings.TrimSpace(strings.Join(rest, " "))}, nil
	case "toggle":
		return ToggleCommand{}, nil
	case "access", "zugang":
		if len(rest) != 1 {
			return nil, &InputError{Err: domain.ErrUnknownAccessMode, Usage: accessUsage}
		}
		mode, err := domain.ParseAccessMode(rest[0])
		if err != nil {
			return nil, &InputError{Err: err, Usage: accessUsage}
		}
		return SetAccessCommand{Mode: mode}, nil
	case "limit":
		return parseLimit(rest)
	case "help":
		return HelpCommand{}, nil
	}
	return nil, &InputError{Err: ErrUnknownCommand}
}

// parseLimit takes the last argument as the value, so unquoted labels with spaces work.
func parseLimit(args []string) (Command, error) {
	if len(args) < 2 {
		return nil, &InputError{Err: domain.ErrInvalidLimit, Usage: limitUsage}
	}
	opt, err := domain.LookupOption(strings.Join(args[:len(args)-1], " "))
	if err != nil || opt.ID == domain.OptionWithdraw {
		return nil, &InputError{Err: domain.ErrUnknownOption, Usage: limitUsage}
	}
	limit, err := domain.ParseLimit(args[len(args)-1])
	if err != nil {
		return nil, &InputError{Err: err, Usage: limitUsage}
	}
	return SetLimitCommand{Option: opt.ID, Limit: limit}, nil
}
