package connect

import (
	"context"
	"errors"
	"testing"
)

// MockTokenIssuer implements TokenIssuer for testing.
type MockTokenIssuer struct {
	CreateConnectTokenFunc func(ctx context.Context, clientUserID string) (string, error)
	Calls                  int
}

func (m *MockTokenIssuer) CreateConnectToken(ctx context.Context, clientUserID string) (string, error) {
	m.Calls++
	if m.CreateConnectTokenFunc != nil {
		return m.CreateConnectTokenFunc(ctx, clientUserID)
	}
	return "", nil
}

// MockClientStore implements ClientStore for testing.
type MockClientStore struct {
	SaveFunc func(ctx context.Context, name, email, itemID string) (*int64, error)
	Calls    int
}

func (m *MockClientStore) Save(ctx context.Context, name, email, itemID string) (*int64, error) {
	m.Calls++
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, name, email, itemID)
	}
	return nil, nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestFlow_Submit_Success(t *testing.T) {
	issuer := &MockTokenIssuer{
		CreateConnectTokenFunc: func(ctx context.Context, clientUserID string) (string, error) {
			if clientUserID != "ana@example.com" {
				t.Errorf("clientUserID = %q, want the email", clientUserID)
			}
			return "t1", nil
		},
	}
	flow := NewFlow(issuer, &MockClientStore{})
	sess := NewSession("s1")

	token, err := flow.Submit(context.Background(), sess, "Ana Silva", "ana@example.com")
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if token != "t1" {
		t.Errorf("token = %q, want %q", token, "t1")
	}
	if sess.State() != StateWidgetOpen {
		t.Errorf("state = %v, want StateWidgetOpen", sess.State())
	}
	if sess.Token() != "t1" {
		t.Errorf("session token = %q, want %q", sess.Token(), "t1")
	}
}

func TestFlow_Submit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		formName  string
		formEmail string
		wantField string
	}{
		{"empty name", "", "ana@example.com", "name"},
		{"whitespace name", "   ", "ana@example.com", "name"},
		{"empty email", "Ana Silva", "", "email"},
		{"email without at sign", "Ana Silva", "ana.example.com", "email"},
		{"email without dot", "Ana Silva", "ana@example", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := &MockTokenIssuer{}
			flow := NewFlow(issuer, &MockClientStore{})
			sess := NewSession("s1")

			_, err := flow.Submit(context.Background(), sess, tt.formName, tt.formEmail)

			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("Submit() error = %T, want *ValidationError", err)
			}
			if _, ok := valErr.Fields[tt.wantField]; !ok {
				t.Errorf("Fields = %v, want %q flagged", valErr.Fields, tt.wantField)
			}
			if issuer.Calls != 0 {
				t.Error("validation failure must not reach the provider")
			}
			if sess.State() != StateAwaitingForm {
				t.Errorf("state = %v, want StateAwaitingForm", sess.State())
			}
		})
	}
}

func TestFlow_Submit_ProviderErrorKeepsAwaitingForm(t *testing.T) {
	tests := []struct {
		name      string
		issuerErr error
	}{
		{"invalid credentials", ErrInvalidCredentials},
		{"forbidden", ErrForbidden},
		{"rate limited", ErrRateLimited},
		{"provider unavailable", ErrProviderUnavailable},
		{"network", &NetworkError{Op: "authenticate", Err: errors.New("timeout")}},
		{"invalid response", &InvalidResponseError{Field: "apiKey"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := &MockTokenIssuer{
				CreateConnectTokenFunc: func(ctx context.Context, clientUserID string) (string, error) {
					return "", tt.issuerErr
				},
			}
			flow := NewFlow(issuer, &MockClientStore{})
			sess := NewSession("s1")

			_, err := flow.Submit(context.Background(), sess, "Ana Silva", "ana@example.com")
			if !errors.Is(err, tt.issuerErr) {
				t.Errorf("Submit() error = %v, want %v", err, tt.issuerErr)
			}
			if sess.State() != StateAwaitingForm {
				t.Errorf("state = %v, want StateAwaitingForm after failure", sess.State())
			}

			// Form values survive the failure for re-render.
			snap := sess.Snapshot()
			if snap.Name != "Ana Silva" || snap.Email != "ana@example.com" {
				t.Errorf("form values lost after failure: %+v", snap)
			}
		})
	}
}

func TestFlow_Complete_SavesOnce(t *testing.T) {
	store := &MockClientStore{
		SaveFunc: func(ctx context.Context, name, email, itemID string) (*int64, error) {
			if name != "Ana Silva" || email != "ana@example.com" || itemID != "ext-123" {
				t.Errorf("Save(%q, %q, %q), want form values and item id", name, email, itemID)
			}
			return int64Ptr(42), nil
		},
	}
	issuer := &MockTokenIssuer{
		CreateConnectTokenFunc: func(ctx context.Context, clientUserID string) (string, error) {
			return "t1", nil
		},
	}
	flow := NewFlow(issuer, store)
	sess := NewSession("s1")

	if _, err := flow.Submit(context.Background(), sess, "Ana Silva", "ana@example.com"); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	res, err := flow.Complete(context.Background(), sess, "ext-123")
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if !res.Saved {
		t.Error("Saved = false, want true on first callback")
	}
	if res.RecordID == nil || *res.RecordID != 42 {
		t.Errorf("RecordID = %v, want 42", res.RecordID)
	}
	if sess.State() != StateCompleted {
		t.Errorf("state = %v, want StateCompleted", sess.State())
	}

	// A page re-render delivering the same callback must not re-save.
	res2, err := flow.Complete(context.Background(), sess, "ext-123")
	if err != nil {
		t.Fatalf("second Complete() failed: %v", err)
	}
	if res2.Saved {
		t.Error("Saved = true on re-render, want false")
	}
	if store.Calls != 1 {
		t.Errorf("store called %d times, want exactly 1", store.Calls)
	}
}

func TestFlow_Complete_DuplicateItemID(t *testing.T) {
	store := &MockClientStore{
		SaveFunc: func(ctx context.Context, name, email, itemID string) (*int64, error) {
			return nil, nil // another session already linked this item
		},
	}
	flow := NewFlow(&MockTokenIssuer{}, store)
	sess := NewSession("s1")
	sess.name = "Ana Silva"
	sess.email = "ana@example.com"
	sess.state = StateWidgetOpen

	res, err := flow.Complete(context.Background(), sess, "ext-123")
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if res.Saved {
		t.Error("Saved = true for an already-linked item, want false")
	}
	if sess.State() != StateCompleted {
		t.Errorf("state = %v, want StateCompleted", sess.State())
	}
}

func TestFlow_Complete_MissingFormData(t *testing.T) {
	store := &MockClientStore{}
	flow := NewFlow(&MockTokenIssuer{}, store)

	// Widget completed out of band: the session never saw the form.
	sess := NewSession("s1")

	_, err := flow.Complete(context.Background(), sess, "ext-123")
	if !errors.Is(err, ErrIncompleteData) {
		t.Fatalf("Complete() error = %v, want ErrIncompleteData", err)
	}
	if store.Calls != 0 {
		t.Error("store must never be called without name and email")
	}
	if sess.State() != StateAwaitingForm {
		t.Errorf("state = %v, want StateAwaitingForm", sess.State())
	}
}

func TestFlow_Complete_StoreFailureAllowsRetry(t *testing.T) {
	attempts := 0
	store := &MockClientStore{
		SaveFunc: func(ctx context.Context, name, email, itemID string) (*int64, error) {
			attempts++
			if attempts == 1 {
				return nil, &StoreError{Err: errors.New("connection refused")}
			}
			return int64Ptr(1), nil
		},
	}
	flow := NewFlow(&MockTokenIssuer{}, store)
	sess := NewSession("s1")
	sess.name = "Ana Silva"
	sess.email = "ana@example.com"
	sess.state = StateWidgetOpen

	_, err := flow.Complete(context.Background(), sess, "ext-123")
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Complete() error = %T, want *StoreError", err)
	}

	// The processed flag is not set on failure, so a retry can succeed.
	res, err := flow.Complete(context.Background(), sess, "ext-123")
	if err != nil {
		t.Fatalf("retry Complete() failed: %v", err)
	}
	if !res.Saved {
		t.Error("Saved = false on retry, want true")
	}
}

func TestFlow_Complete_EmptyItemID(t *testing.T) {
	flow := NewFlow(&MockTokenIssuer{}, &MockClientStore{})
	sess := NewSession("s1")

	_, err := flow.Complete(context.Background(), sess, "  ")
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("Complete() error = %T, want *ValidationError", err)
	}
}

// End-to-end over the whole flow with mocked collaborators: form
// submission through widget callback to the final stored record.
func TestFlow_EndToEnd(t *testing.T) {
	var saved []string
	store := &MockClientStore{
		SaveFunc: func(ctx context.Context, name, email, itemID string) (*int64, error) {
			saved = append(saved, name+"|"+email+"|"+itemID)
			return int64Ptr(int64(len(saved))), nil
		},
	}
	issuer := &MockTokenIssuer{
		CreateConnectTokenFunc: func(ctx context.Context, clientUserID string) (string, error) {
			return "t1", nil
		},
	}
	flow := NewFlow(issuer, store)
	sess := NewSession("s1")

	token, err := flow.Submit(context.Background(), sess, "Ana Silva", "ana@example.com")
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if token != "t1" {
		t.Errorf("token = %q, want provider accessToken %q", token, "t1")
	}

	res, err := flow.Complete(context.Background(), sess, "ext-123")
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if !res.Saved {
		t.Error("Saved = false, want true")
	}
	if len(saved) != 1 || saved[0] != "Ana Silva|ana@example.com|ext-123" {
		t.Errorf("stored rows = %v, want exactly one matching record", saved)
	}
}
