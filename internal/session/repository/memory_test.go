package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"blogger-platform/internal/session/domain"
)

func newSession(accountID, deviceID string, issuedAt time.Time) *domain.Session {
	return &domain.Session{
		AccountID: accountID,
		DeviceID:  deviceID,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(time.Hour),
		IP:        "127.0.0.1",
		Title:     "test agent",
		CreatedAt: issuedAt,
	}
}

func TestMemoryRepository_UpsertAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Microsecond)

	if err := repo.Upsert(ctx, newSession("a1", "d1", t0)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.Get(ctx, "a1", "d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil after Upsert")
	}
	if !got.IssuedAt.Equal(t0) {
		t.Errorf("IssuedAt = %v, want %v", got.IssuedAt, t0)
	}

	missing, err := repo.Get(ctx, "a1", "other")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if missing != nil {
		t.Error("Get for unknown device should return nil")
	}
}

func TestMemoryRepository_Rotate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Microsecond)
	t1 := t0.Add(time.Second)

	if err := repo.Upsert(ctx, newSession("a1", "d1", t0)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	next := domain.Rotation{IssuedAt: t1, ExpiresAt: t1.Add(time.Hour), IP: "10.0.0.1", Title: "rotated"}
	if err := repo.Rotate(ctx, "a1", "d1", t0, next); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	got, _ := repo.Get(ctx, "a1", "d1")
	if !got.IssuedAt.Equal(t1) {
		t.Errorf("IssuedAt = %v, want %v", got.IssuedAt, t1)
	}
	if got.IP != "10.0.0.1" || got.Title != "rotated" {
		t.Errorf("client meta not updated: %+v", got)
	}

	// The prior issued-at no longer matches: replay must be rejected.
	if err := repo.Rotate(ctx, "a1", "d1", t0, next); !errors.Is(err, ErrStaleSession) {
		t.Errorf("Rotate(replayed) = %v, want ErrStaleSession", err)
	}
}

func TestMemoryRepository_Rotate_MissingSession(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	t0 := time.Now().UTC()

	err := repo.Rotate(ctx, "a1", "d1", t0, domain.Rotation{IssuedAt: t0.Add(time.Second)})
	if !errors.Is(err, ErrStaleSession) {
		t.Errorf("Rotate(no session) = %v, want ErrStaleSession", err)
	}
}

func TestMemoryRepository_Rotate_ConcurrentExactlyOneWinner(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Microsecond)

	if err := repo.Upsert(ctx, newSession("a1", "d1", t0)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	const racers = 32
	var wins, stales atomic.Int64
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			next := domain.Rotation{
				IssuedAt:  t0.Add(time.Duration(i+1) * time.Millisecond),
				ExpiresAt: t0.Add(time.Hour),
			}
			switch err := repo.Rotate(ctx, "a1", "d1", t0, next); {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrStaleSession):
				stales.Add(1)
			default:
				t.Errorf("Rotate: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("wins = %d, want exactly 1", wins.Load())
	}
	if stales.Load() != racers-1 {
		t.Errorf("stales = %d, want %d", stales.Load(), racers-1)
	}
}

func TestMemoryRepository_RevokeAndList(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	t0 := time.Now().UTC()

	_ = repo.Upsert(ctx, newSession("a1", "d1", t0))
	_ = repo.Upsert(ctx, newSession("a1", "d2", t0))
	_ = repo.Upsert(ctx, newSession("a2", "d1", t0))

	list, err := repo.ListByAccount(ctx, "a1")
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByAccount = %d sessions, want 2", len(list))
	}

	ok, err := repo.Revoke(ctx, "a1", "d1")
	if err != nil || !ok {
		t.Fatalf("Revoke = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = repo.Revoke(ctx, "a1", "d1")
	if err != nil || ok {
		t.Fatalf("second Revoke = (%v, %v), want (false, nil)", ok, err)
	}

	// a2's session is untouched.
	other, _ := repo.Get(ctx, "a2", "d1")
	if other == nil {
		t.Error("Revoke removed another account's session")
	}
}

func TestMemoryRepository_RevokeOthers(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	t0 := time.Now().UTC()

	_ = repo.Upsert(ctx, newSession("a1", "d1", t0))
	_ = repo.Upsert(ctx, newSession("a1", "d2", t0))
	_ = repo.Upsert(ctx, newSession("a1", "d3", t0))

	kept, err := repo.RevokeOthers(ctx, "a1", "d1")
	if err != nil {
		t.Fatalf("RevokeOthers: %v", err)
	}
	if !kept {
		t.Error("RevokeOthers should report the kept session")
	}

	list, _ := repo.ListByAccount(ctx, "a1")
	if len(list) != 1 || list[0].DeviceID != "d1" {
		t.Errorf("after RevokeOthers sessions = %+v, want only d1", list)
	}
}

func TestMemoryRepository_RevokeAll(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	t0 := time.Now().UTC()

	_ = repo.Upsert(ctx, newSession("a1", "d1", t0))
	_ = repo.Upsert(ctx, newSession("a1", "d2", t0))

	if err := repo.RevokeAll(ctx, "a1"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	list, _ := repo.ListByAccount(ctx, "a1")
	if len(list) != 0 {
		t.Errorf("after RevokeAll sessions = %d, want 0", len(list))
	}
}

func TestMemoryRepository_DeleteExpired(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	stale := newSession("a1", "d1", now.Add(-2*time.Hour)) // expires_at = issued+1h, already past
	live := newSession("a1", "d2", now)
	_ = repo.Upsert(ctx, stale)
	_ = repo.Upsert(ctx, live)

	n, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpired = %d, want 1", n)
	}
	got, _ := repo.Get(ctx, "a1", "d2")
	if got == nil {
		t.Error("DeleteExpired removed a live session")
	}
}
