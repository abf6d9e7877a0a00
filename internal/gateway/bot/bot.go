package bot

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mattermost/mattermost-server/v6/model"

	"github.com/Xausdorf/signup-bot/internal/render"
)

const (
	maxRetries = 5

	// ActionsPrefix - path the action handler must be mounted at.
	ActionsPrefix = "/actions"
	votePath      = "/vote"
)

type Config struct {
	mmUserName   string
	mmTeamName   string
	mmToken      string
	mmServer     string
	trigger      string
	actionURL    string
	actionSecret string
}

func LoadConfig() Config {
	var cfg Config

	cfg.mmUserName = os.Getenv("MM_USERNAME")
	if cfg.mmUserName == "" {
		cfg.mmUserName = "SignupBot"
	}
	cfg.mmTeamName = os.Getenv("MM_TEAM")
	if cfg.mmTeamName == "" {
		cfg.mmTeamName = "SignupBot"
	}
	cfg.mmToken = os.Getenv("MM_TOKEN")
	if cfg.mmToken == "" {
		log.Fatal("Mattermost token is not set")
	}
	cfg.mmServer = os.Getenv("MM_SERVER")
	if cfg.mmServer == "" {
		log.Fatal("Mattermost URL is not set")
	}
	cfg.trigger = os.Getenv("MM_TRIGGER")
	if cfg.trigger == "" {
		cfg.trigger = "!signup"
	}
	cfg.actionURL = strings.TrimSuffix(os.Getenv("MM_ACTION_URL"), "/")
	if cfg.actionURL == "" {
		log.Fatal("Public URL for button actions is not set")
	}
	cfg.actionSecret = os.Getenv("MM_ACTION_SECRET")
	if cfg.actionSecret == "" {
		log.Fatal("Button action secret is not set")
	}

	return cfg
}

func (c Config) Trigger() string {
	return c.trigger
}

func (c Config) ActionSecret() string {
	return c.actionSecret
}

// SignupBot listens for trigger commands over the Mattermost websocket and
// implements Transport on top of the REST client.
type SignupBot struct {
	cfg             Config
	client          *model.Client4
	webSocketClient *model.WebSocketClient
	user            *model.User
	team            *model.Team
	router          *Router
}

func NewSignupBot(cfg Config) *SignupBot {
	var bot SignupBot

	bot.cfg = cfg
	bot.client = model.NewAPIv4Client(bot.cfg.mmServer)
	bot.client.SetToken(bot.cfg.mmToken)

	user, resp, err := bot.client.GetMe("")
	if err != nil {
		log.Fatal("Could not log in")
	}
	log.Printf("Logged in to mattermost: user=%v; resp=%v\n", user.Username, resp.StatusCode)
	bot.user = user

	team, resp, err := bot.client.GetTeamByName(cfg.mmTeamName, "")
	if err != nil {
		log.Fatal("Could not find team")
	}
	log.Printf("Team found: team=%v; resp=%v\n", team.Name, resp.StatusCode)
	bot.team = team

	return &bot
}

// SetRouter must be called before Listen.
func (b *SignupBot) SetRouter(r *Router) {
	b.router = r
}

func (b *SignupBot) Listen(ctx context.Context) {
	for retry := 0; retry < maxRetries; retry++ {
		var err error
		b.webSocketClient, err = model.NewWebSocketClient4(b.cfg.mmServer, b.client.AuthToken)
		if err != nil {
			log.Printf("Could not connect mattermost websocket, retrying: %v\n", err)
			continue
		}
		log.Println("Mattermost websocket succesfully connected")

		b.webSocketClient.Listen()

		log.Println("Signup Bot listening now")
		if b.consume(ctx) {
			return
		}
		log.Println("Mattermost websocket closed, reconnecting...")
	}
	log.Fatal("Could not connect mattermost websocket, max retries exceeded")
}

// consume handles events until ctx is done (true) or the websocket drops (false).
func (b *SignupBot) consume(ctx context.Context) bool {
	for {
		select {
		case event, ok := <-b.webSocketClient.EventChannel:
			if !ok {
				return false
			}
			go b.handleWebSocketEvent(ctx, event)
		case <-ctx.Done():
			return true
		}
	}
}

func (b *SignupBot) Close() {
	if b.webSocketClient != nil {
		log.Println("Closing mattermost websocket connection")
		b.webSocketClient.Close()
	}
}

func (b *SignupBot) handleWebSocketEvent(ctx context.Context, event *model.WebSocketEvent) {
	if event.EventType() != model.WebsocketEventPosted {
		return
	}

	post := &model.Post{}
	eventData, ok := event.GetData()["post"].(string)
	if !ok {
		log.Println("Could not cast event data to string")
		return
	}
	if err := json.Unmarshal([]byte(eventData), &post); err != nil {
		log.Println("Could not unmarshal event to *model.Post")
		return
	}

	if post.UserId == b.user.Id {
		return
	}

	b.handlePost(ctx, post)
}

func (b *SignupBot) handlePost(ctx context.Context, post *model.Post) {
	if !strings.HasPrefix(post.Message, b.cfg.trigger) {
		return
	}

	// CSV reading for splitting a string at spaces, except spaces inside quotation marks.
	r := csv.NewReader(strings.NewReader(post.Message))
	r.Comma = ' '
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	lines, err := r.ReadAll()
	if err != nil {
		log.Printf("Could not split post's message: msg=%q; post=%s\n", post.Message, post.Id)
		return
	}

	// Every line continues the command, so a title may span several lines.
	var tokens []string
	for _, line := range lines {
		for _, tok := range line {
			if tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	if len(tokens) == 0 || tokens[0] != b.cfg.trigger {
		return
	}
	args := tokens[1:]

	inv := Invocation{
		TraceID:   uuid.NewString(),
		ChannelID: post.ChannelId,
		UserID:    post.UserId,
		PostID:    post.Id,
		RootID:    post.RootId,
	}
	log.Printf("Handling command: trace=%s; msg=%q; user=%s; channel=%s\n", inv.TraceID, post.Message, post.UserId, post.ChannelId)

	b.router.HandleCommand(ctx, inv, args)
}

func (b *SignupBot) Reply(_ context.Context, inv Invocation, msg string) {
	resp := &model.Post{}
	resp.ChannelId = inv.ChannelID
	resp.Message = msg
	resp.RootId = inv.RootID
	if resp.RootId == "" {
		resp.RootId = inv.PostID
	}

	if _, _, err := b.client.CreatePost(resp); err != nil {
		log.Printf("Could not respond to post: trace=%s; msg=%q; post=%s; %v\n", inv.TraceID, msg, inv.PostID, err)
	}
}

func (b *SignupBot) IsAdmin(_ context.Context, channelID, userID string) (bool, error) {
	member, resp, err := b.client.GetChannelMember(channelID, userID, "")
	switch {
	case err == nil:
		if member.SchemeAdmin || model.IsInRole(member.Roles, model.ChannelAdminRoleId) {
			return true, nil
		}
	case notAMember(resp):
		// Only a system admin may still manage signups here.
	default:
		return false, fmt.Errorf("could not get channel member: %w", err)
	}

	user, _, err := b.client.GetUser(userID, "")
	if err != nil {
		return false, fmt.Errorf("could not get user: %w", err)
	}
	return model.IsInRole(user.Roles, model.SystemAdminRoleId), nil
}

func notAMember(resp *model.Response) bool {
	return resp != nil && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden)
}

func (b *SignupBot) SendMessage(_ context.Context, channelID string, view render.View) (string, error) {
	post := &model.Post{
		ChannelId: channelID,
		Message:   view.Text,
	}
	post.SetProps(b.viewProps(view))

	created, _, err := b.client.CreatePost(post)
	if err != nil {
		return "", fmt.Errorf("could not create post: %w", err)
	}
	return created.Id, nil
}

func (b *SignupBot) EditMessage(_ context.Context, _ string, messageID string, view render.View) error {
	props := b.viewProps(view)
	patch := &model.PostPatch{
		Message: &view.Text,
		Props:   &props,
	}
	if _, _, err := b.client.PatchPost(messageID, patch); err != nil {
		return fmt.Errorf("could not patch post: %w", err)
	}
	return nil
}

func (b *SignupBot) ResolveNames(_ context.Context, userIDs []string) map[string]string {
	names := make(map[string]string, len(userIDs))
	for _, uid := range userIDs {
		user, _, err := b.client.GetUser(uid, "")
		if err != nil {
			log.Printf("Could not resolve user name: user=%s; %v\n", uid, err)
			continue
		}
		names[uid] = user.Username
	}
	return names
}

// viewProps attaches one button per control. Without controls the attachments are cleared.
func (b *SignupBot) viewProps(view render.View) model.StringInterface {
	props := model.StringInterface{}
	if view.Controls == nil {
		props["attachments"] = []*model.SlackAttachment{}
		return props
	}

	actions := make([]*model.PostAction, 0, len(view.Controls))
	for _, c := range view.Controls {
		actions = append(actions, &model.PostAction{
			Id:   string(c.OptionID),
			Name: c.Label,
			Type: model.PostActionTypeButton,
			Integration: &model.PostActionIntegration{
				URL: b.cfg.actionURL + ActionsPrefix + votePath,
				Context: map[string]any{
					contextPoll:   c.PollID,
					contextOption: string(c.OptionID),
					contextSecret: b.cfg.actionSecret,
				},
			},
		})
	}
	props["attachments"] = []*model.SlackAttachment{{Actions: actions}}
	return props
}
