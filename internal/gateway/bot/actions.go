package bot

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mattermost/mattermost-server/v6/model"

	"github.com/Xausdorf/signup-bot/internal/domain"
)

const (
	contextPoll   = "poll"
	contextOption = "option"
	contextSecret = "secret"
)

type actionHandler struct {
	router *Router
	secret string
}

// NewActionHandler serves the integration requests sent by Mattermost when a
// signup button is clicked.
func NewActionHandler(router *Router, secret string) http.Handler {
	h := &actionHandler{router: router, secret: secret}

	r := chi.NewRouter()
	r.Post(votePath, h.vote)
	return r
}

func (h *actionHandler) vote(w http.ResponseWriter, r *http.Request) {
	var req model.PostActionIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if secret, _ := req.Context[contextSecret].(string); h.secret != "" && secret != h.secret {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if req.UserId == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}

	signupID, _ := req.Context[contextPoll].(string)
	if signupID == "" {
		signupID = req.PostId
	}
	option, _ := req.Context[contextOption].(string)

	traceID := uuid.NewString()
	log.Printf("Handling vote: trace=%s; signup=%s; user=%s; option=%s\n", traceID, signupID, req.UserId, option)

	resp := model.PostActionIntegrationResponse{
		EphemeralText: h.router.HandleVote(r.Context(), traceID, signupID, req.UserId, req.UserName, domain.OptionID(option)),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Could not write action response: trace=%s; %v\n", traceID, err)
	}
}
