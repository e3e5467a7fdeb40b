package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"blogger-platform/internal/audit/domain"
)

type fakeRepo struct {
	mu      sync.Mutex
	entries []*domain.Entry
	err     error
}

func (r *fakeRepo) Create(ctx context.Context, e *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Entry
	for _, e := range r.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestLogger_Record(t *testing.T) {
	repo := &fakeRepo{}
	l := NewLogger(repo)

	l.Record(context.Background(), "a1", domain.ActionLogin, "1.2.3.4", map[string]string{"device_id": "d1"})

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID == "" {
		t.Error("entry ID should be set")
	}
	if e.Action != domain.ActionLogin || e.AccountID != "a1" || e.IP != "1.2.3.4" {
		t.Errorf("entry = %+v", e)
	}
	if e.Metadata["device_id"] != "d1" {
		t.Errorf("metadata = %v", e.Metadata)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestLogger_RecordSwallowsStoreFailure(t *testing.T) {
	repo := &fakeRepo{err: errors.New("db down")}
	l := NewLogger(repo)

	// Must not panic or propagate the error.
	l.Record(context.Background(), "a1", domain.ActionLogin, "1.2.3.4", nil)
}

func TestLogger_NilReceiverAndNilRepo(t *testing.T) {
	var l *Logger
	l.Record(context.Background(), "a1", domain.ActionLogin, "1.2.3.4", nil)

	NewLogger(nil).Record(context.Background(), "a1", domain.ActionLogin, "1.2.3.4", nil)
}
