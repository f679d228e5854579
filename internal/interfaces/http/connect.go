package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"financefly/internal/domain/connect"
	"financefly/internal/shared/messages"
	"financefly/internal/shared/session"
)

// SessionCookie carries the flow session ID between requests.
const SessionCookie = "ff_session"

// ConnectFlow is the subset of the connection service the handler needs.
type ConnectFlow interface {
	Submit(ctx context.Context, sess *connect.Session, name, email string) (string, error)
	Complete(ctx context.Context, sess *connect.Session, itemID string) (*connect.CompletionResult, error)
}

type ConnectHandler struct {
	flow          ConnectFlow
	sessions      *session.Store
	secureCookies bool
}

func NewConnectHandler(flow ConnectFlow, sessions *session.Store, secureCookies bool) *ConnectHandler {
	return &ConnectHandler{flow: flow, sessions: sessions, secureCookies: secureCookies}
}

type tokenRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type callbackRequest struct {
	ItemID string `json:"itemId"`
}

type callbackResponse struct {
	Saved   bool   `json:"saved"`
	ID      *int64 `json:"id,omitempty"`
	Message string `json:"message"`
}

type sessionResponse struct {
	State     string `json:"state"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Processed bool   `json:"processed"`
}

// HandleToken receives the name/email form and returns a widget token.
func (h *ConnectHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Error decoding token request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess := h.sessionFor(w, r)
	token, err := h.flow.Submit(r.Context(), sess, req.Name, req.Email)
	if err != nil {
		h.writeFlowError(w, err, "token request")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token})
}

// HandleCallback receives the itemId the widget reports on success and
// persists the completed link.
func (h *ConnectHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Error decoding callback request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess := h.sessionFor(w, r)
	res, err := h.flow.Complete(r.Context(), sess, req.ItemID)
	if err != nil {
		h.writeFlowError(w, err, "callback")
		return
	}

	msg := messages.LinkSaved
	if !res.Saved {
		msg = messages.LinkAlreadyExists
	}
	writeJSON(w, http.StatusOK, callbackResponse{Saved: res.Saved, ID: res.RecordID, Message: msg})
}

// HandleSession reports the current flow state so the page can restore
// itself after a reload.
func (h *ConnectHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := h.sessionFor(w, r)
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, sessionResponse{
		State:     snap.State,
		Name:      snap.Name,
		Email:     snap.Email,
		Processed: snap.Processed,
	})
}

// sessionFor resolves the request's session from the cookie, creating a
// fresh one (and setting the cookie) when absent or expired.
func (h *ConnectHandler) sessionFor(w http.ResponseWriter, r *http.Request) *connect.Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess, ok := h.sessions.Get(c.Value); ok {
			return sess
		}
	}

	sess := h.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (h *ConnectHandler) writeFlowError(w http.ResponseWriter, err error, op string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		log.Printf("Connect %s failed: %v", op, err)
	}
	writeJSON(w, status, map[string]string{"error": messages.ForError(err)})
}

// statusFor maps flow errors to HTTP statuses. Provider-side failures
// surface as 502 so the page can distinguish them from caller mistakes.
func statusFor(err error) int {
	var valErr *connect.ValidationError
	switch {
	case errors.As(err, &valErr), errors.Is(err, connect.ErrIncompleteData):
		return http.StatusBadRequest
	case errors.Is(err, connect.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		var storeErr *connect.StoreError
		if errors.As(err, &storeErr) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
