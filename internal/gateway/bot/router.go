package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Xausdorf/signup-bot/internal/domain"
	"github.com/Xausdorf/signup-bot/internal/metrics"
	"github.com/Xausdorf/signup-bot/internal/render"
	"github.com/Xausdorf/signup-bot/internal/usecase"
)

var ErrUnauthorized = errors.New("user is not a channel admin")

const (
	replyToSignupText  = "Reply to the sign-up message."
	unauthorizedText   = "Only channel admins can do that."
	closedText         = "The sign-up is closed."
	notAllowedText     = "This option is currently not available."
	untrackedText      = "This sign-up is no longer tracked."
	voteFailedText     = "Could not register your choice. Try again"
	commandFailedText  = "Something went wrong. Try again"
	unknownCommandText = "Unknown command."
)

// Transport - chat platform operations the router needs.
type Transport interface {
	IsAdmin(ctx context.Context, channelID, userID string) (bool, error)
	// SendMessage posts view into the channel and returns the id of the new message.
	SendMessage(ctx context.Context, channelID string, view render.View) (string, error)
	EditMessage(ctx context.Context, channelID, messageID string, view render.View) error
	Reply(ctx context.Context, inv Invocation, text string)
	// ResolveNames looks up display names; ids that cannot be resolved are left out.
	ResolveNames(ctx context.Context, userIDs []string) map[string]string
}

// Invocation - origin of a command.
type Invocation struct {
	TraceID   string
	ChannelID string
	UserID    string
	PostID    string
	// RootID - id of the message being replied to, empty outside a thread.
	RootID string
}

type Router struct {
	signups   *usecase.Signup
	transport Transport
	metrics   *metrics.Metrics
	trigger   string

	// refreshing holds one lock per signup post so edits land in commit order.
	refreshMu  sync.Mutex
	refreshing map[string]*sync.Mutex
}

func NewRouter(signups *usecase.Signup, transport Transport, m *metrics.Metrics, trigger string) *Router {
	return &Router{
		signups:    signups,
		transport:  transport,
		metrics:    m,
		trigger:    trigger,
		refreshing: make(map[string]*sync.Mutex),
	}
}

func (r *Router) HandleCommand(ctx context.Context, inv Invocation, args []string) {
	if inv.TraceID == "" {
		inv.TraceID = uuid.NewString()
	}

	cmd, err := ParseCommand(args)
	if err != nil {
		r.metrics.CommandHandled("invalid", "rejected")
		r.transport.Reply(ctx, inv, r.inputErrorText(err))
		return
	}

	if _, ok := cmd.(HelpCommand); ok {
		r.metrics.CommandHandled(cmd.name(), "ok")
		r.transport.Reply(ctx, inv, r.helpText())
		return
	}

	if err = r.authorize(ctx, inv); err != nil {
		r.metrics.CommandHandled(cmd.name(), "unauthorized")
		if errors.Is(err, ErrUnauthorized) {
			r.transport.Reply(ctx, inv, unauthorizedText)
			return
		}
		log.Printf("Admin check failed: trace=%s; user=%s; %v\n", inv.TraceID, inv.UserID, err)
		r.transport.Reply(ctx, inv, commandFailedText)
		return
	}

	var signup *domain.Signup
	var ack string
	switch c := cmd.(type) {
	case CreateCommand:
		signup, err = r.create(ctx, inv, c.Title)
	case ToggleCommand:
		signup, err = r.onRoot(inv, func(id string) (*domain.Signup, error) {
			return r.signups.Toggle(ctx, id)
		})
		if err == nil {
			ack = "Sign-up closed."
			if signup.IsOpen {
				ack = "Sign-up opened."
			}
		}
	case SetAccessCommand:
		signup, err = r.onRoot(inv, func(id string) (*domain.Signup, error) {
			return r.signups.SetAccess(ctx, id, c.Mode)
		})
		ack = fmt.Sprintf("Access changed to %s.", c.Mode)
	case SetLimitCommand:
		signup, err = r.onRoot(inv, func(id string) (*domain.Signup, error) {
			return r.signups.SetLimit(ctx, id, c.Option, c.Limit)
		})
		ack = limitAck(c)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	if err != nil {
		r.metrics.CommandHandled(cmd.name(), "failed")
		r.transport.Reply(ctx, inv, r.commandErrorText(inv, err))
		return
	}
	r.metrics.CommandHandled(cmd.name(), "ok")

	r.refresh(ctx, inv.TraceID, signup)
	if ack != "" {
		r.transport.Reply(ctx, inv, ack)
	}
}

// HandleVote applies a button click and returns the text to show only to the voter,
// empty on success.
func (r *Router) HandleVote(ctx context.Context, traceID, signupID, userID, userName string, option domain.OptionID) string {
	signup, err := r.signups.Vote(ctx, signupID, userID, userName, option)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSignupNotFound):
		return untrackedText
	case errors.Is(err, domain.ErrSignupClosed):
		return closedText
	case errors.Is(err, domain.ErrOptionNotAllowed), errors.Is(err, domain.ErrUnknownOption):
		return notAllowedText
	default:
		log.Printf("Failed to vote: trace=%s; signup=%s; user=%s; %v\n", traceID, signupID, userID, err)
		return voteFailedText
	}

	log.Printf("Vote registered: trace=%s; signup=%s; user=%s; option=%s\n", traceID, signupID, userID, option)
	r.refresh(ctx, traceID, signup)
	return ""
}

func (r *Router) authorize(ctx context.Context, inv Invocation) error {
	ok, err := r.transport.IsAdmin(ctx, inv.ChannelID, inv.UserID)
	if err != nil {
		return fmt.Errorf("could not check admin role: %w", err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func (r *Router) create(ctx context.Context, inv Invocation, title string) (*domain.Signup, error) {
	draft := domain.NewSignup("", inv.ChannelID, title, time.Time{})
	view := render.Render(draft, nil)
	view.Controls = nil

	id, err := r.transport.SendMessage(ctx, inv.ChannelID, view)
	if err != nil {
		return nil, fmt.Errorf("could not post signup: %w", err)
	}
	signup, err := r.signups.CreateSignup(ctx, id, inv.ChannelID, title)
	if err != nil {
		return nil, err
	}
	log.Printf("Signup created: trace=%s; id=%s; channel=%s; title=%q\n", inv.TraceID, id, inv.ChannelID, signup.Title)
	return signup, nil
}

func (r *Router) onRoot(inv Invocation, fn func(id string) (*domain.Signup, error)) (*domain.Signup, error) {
	if inv.RootID == "" {
		return nil, domain.ErrSignupNotFound
	}
	return fn(inv.RootID)
}

// refresh re-renders the signup post from the latest stored state. A failed edit is
// only logged, the state change stays.
func (r *Router) refresh(ctx context.Context, traceID string, signup *domain.Signup) {
	lock := r.refreshLock(signup.ID)
	lock.Lock()
	defer lock.Unlock()

	signup, err := r.signups.GetSignup(ctx, signup.ID)
	if err != nil {
		log.Printf("Could not reload signup for refresh: trace=%s; %v\n", traceID, err)
		return
	}

	names, missing := r.signups.DisplayNames(signup)
	if len(missing) > 0 {
		for uid, name := range r.transport.ResolveNames(ctx, missing) {
			r.signups.RememberName(uid, name)
			names[uid] = name
		}
	}

	if err := r.transport.EditMessage(ctx, signup.ChannelID, signup.ID, render.Render(signup, names)); err != nil {
		log.Printf("Could not update signup message: trace=%s; id=%s; %v\n", traceID, signup.ID, err)
	}
}

func (r *Router) refreshLock(id string) *sync.Mutex {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	lock, ok := r.refreshing[id]
	if !ok {
		lock = &sync.Mutex{}
		r.refreshing[id] = lock
	}
	return lock
}

func (r *Router) commandErrorText(inv Invocation, err error) string {
	switch {
	case errors.Is(err, domain.ErrSignupNotFound):
		return replyToSignupText
	case errors.Is(err, domain.ErrUnknownOption), errors.Is(err, domain.ErrInvalidLimit), errors.Is(err, domain.ErrUnknownAccessMode):
		return r.inputErrorText(err)
	}
	log.Printf("Command failed: trace=%s; user=%s; %v\n", inv.TraceID, inv.UserID, err)
	return commandFailedText
}

func (r *Router) inputErrorText(err error) string {
	var inErr *InputError
	if !errors.As(err, &inErr) || inErr.Usage == "" {
		if errors.Is(err, ErrUnknownCommand) {
			return unknownCommandText + "\n" + r.helpText()
		}
		return r.helpText()
	}

	var reason string
	switch {
	case errors.Is(inErr, domain.ErrUnknownOption):
		labels := make([]string, 0, len(domain.RoleOptions()))
		for _, opt := range domain.RoleOptions() {
			labels = append(labels, opt.Label)
		}
		reason = "Unknown option, use one of: " + strings.Join(labels, ", ") + "."
	case errors.Is(inErr, domain.ErrInvalidLimit):
		reason = "Invalid number."
	case errors.Is(inErr, domain.ErrUnknownAccessMode):
		reason = "Unknown access mode."
	}
	return strings.TrimSpace(reason + "\nUsage: " + fmt.Sprintf(inErr.Usage, r.trigger))
}

func (r *Router) helpText() string {
	lines := []string{"Available commands:"}
	for _, usage := range []string{startUsage, toggleUsage, accessUsage, limitUsage} {
		lines = append(lines, "* "+fmt.Sprintf(usage, r.trigger))
	}
	return strings.Join(lines, "\n")
}

func limitAck(c SetLimitCommand) string {
	opt, _ := domain.OptionByID(c.Option)
	if c.Limit == nil {
		return fmt.Sprintf("Limit for %s removed.", opt.Label)
	}
	return fmt.Sprintf("Limit for %s set to %d.", opt.Label, *c.Limit)
}
