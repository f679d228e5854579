package connect

import (
	"context"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	flowMeter       = otel.Meter("financefly/connect")
	tokensIssued, _ = flowMeter.Int64Counter("connect.tokens.issued",
		metric.WithDescription("Connect tokens issued to sessions"),
	)
	linksSaved, _ = flowMeter.Int64Counter("connect.links.saved",
		metric.WithDescription("Bank links persisted"),
	)
	linksDuplicate, _ = flowMeter.Int64Counter("connect.links.duplicate",
		metric.WithDescription("Widget callbacks for already-linked items"),
	)
)

// TokenIssuer obtains a short-lived connect token for the client-side
// widget, given the user identifier passed as clientUserId.
type TokenIssuer interface {
	CreateConnectToken(ctx context.Context, clientUserID string) (string, error)
}

// ClientStore persists completed bank links. Save returns the new
// record id, or nil when item_id already existed (idempotent insert).
type ClientStore interface {
	Save(ctx context.Context, name, email, itemID string) (*int64, error)
}

// Flow drives a session through the connection state machine:
//
//	AwaitingForm -> TokenRequested -> WidgetOpen -> Completed
//
// with an error path back to AwaitingForm from any state. All methods
// are synchronous; concurrency only exists across independent sessions.
type Flow struct {
	issuer TokenIssuer
	store  ClientStore
}

func NewFlow(issuer TokenIssuer, store ClientStore) *Flow {
	return &Flow{issuer: issuer, store: store}
}

// Submit handles the form submission. On success the session holds the
// issued token and is in WidgetOpen; on any failure it is back in
// AwaitingForm with the form values preserved for re-render.
func (f *Flow) Submit(ctx context.Context, sess *Session, name, email string) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if err := validateForm(name, email); err != nil {
		return "", err
	}

	sess.mu.Lock()
	sess.name = name
	sess.email = email
	sess.state = StateTokenRequested
	sess.mu.Unlock()

	token, err := f.issuer.CreateConnectToken(ctx, email)
	if err != nil {
		sess.mu.Lock()
		sess.state = StateAwaitingForm
		sess.mu.Unlock()
		log.Printf("Connect token request failed for session %s: %v", sess.id, err)
		return "", err
	}

	sess.mu.Lock()
	sess.token = token
	sess.state = StateWidgetOpen
	sess.mu.Unlock()

	tokensIssued.Add(ctx, 1)
	return token, nil
}

// Complete handles the widget success callback carrying the item id.
// The processed flag makes it idempotent: a page re-render delivering
// the same callback again performs no second write.
func (f *Flow) Complete(ctx context.Context, sess *Session, itemID string) (*CompletionResult, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, &ValidationError{Fields: map[string]string{"itemId": "empty"}}
	}

	sess.mu.Lock()
	if sess.processed {
		res := &CompletionResult{Saved: false, RecordID: sess.savedID, ItemID: itemID}
		sess.mu.Unlock()
		return res, nil
	}
	name, email := sess.name, sess.email
	sess.mu.Unlock()

	// The widget can complete out of band from the form, e.g. the user
	// re-opened the link in a fresh session. Never persist a row with
	// empty name or email.
	if name == "" || email == "" {
		sess.mu.Lock()
		sess.state = StateAwaitingForm
		sess.mu.Unlock()
		log.Printf("Item %s delivered without pending form data for session %s", itemID, sess.id)
		return nil, ErrIncompleteData
	}

	id, err := f.store.Save(ctx, name, email, itemID)
	if err != nil {
		// Session stays as-is so the user can retry the callback.
		log.Printf("Failed to save client for session %s: %v", sess.id, err)
		return nil, err
	}

	sess.mu.Lock()
	sess.processed = true
	sess.savedID = id
	sess.state = StateCompleted
	sess.mu.Unlock()

	if id == nil {
		linksDuplicate.Add(ctx, 1)
	} else {
		linksSaved.Add(ctx, 1)
	}

	return &CompletionResult{Saved: id != nil, RecordID: id, ItemID: itemID}, nil
}

// validateForm applies the loose form checks: non-empty name, and an
// email that at least contains "@" and ".".
func validateForm(name, email string) error {
	fields := map[string]string{}
	if name == "" {
		fields["name"] = "required"
	}
	if email == "" {
		fields["email"] = "required"
	} else if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		fields["email"] = "malformed"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
