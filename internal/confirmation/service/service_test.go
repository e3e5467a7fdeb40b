package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"blogger-platform/internal/confirmation/domain"
)

type fakeRepo struct {
	mu    sync.Mutex
	codes map[string]*domain.Code
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{codes: make(map[string]*domain.Code)}
}

func (r *fakeRepo) Upsert(ctx context.Context, c *domain.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, prev := range r.codes {
		if prev.AccountID == c.AccountID && prev.Purpose == c.Purpose {
			delete(r.codes, k)
		}
	}
	cp := *c
	r.codes[c.Code] = &cp
	return nil
}

func (r *fakeRepo) GetByCode(ctx context.Context, code string) (*domain.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeRepo) MarkConfirmed(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.codes[code]; ok {
		c.Confirmed = true
	}
	return nil
}

func (r *fakeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, c := range r.codes {
		if c.Expired(now) {
			delete(r.codes, k)
			n++
		}
	}
	return n, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	to, subject, body string
}

func (n *fakeNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{to, subject, body})
	return nil
}

func TestService_IssueAndValidate(t *testing.T) {
	repo := newFakeRepo()
	mail := &fakeNotifier{}
	svc := NewService(repo, mail, "https://example.com/confirm")
	ctx := context.Background()

	code, err := svc.Issue(ctx, "a1", "user@example.com", domain.PurposeEmailConfirm, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if code == "" {
		t.Fatal("Issue returned empty code")
	}
	if len(mail.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mail.sent))
	}
	if mail.sent[0].to != "user@example.com" {
		t.Errorf("email to = %s", mail.sent[0].to)
	}
	if !strings.Contains(mail.sent[0].body, "code="+code) {
		t.Errorf("email body missing code link: %q", mail.sent[0].body)
	}

	got, err := svc.Validate(ctx, code, domain.PurposeEmailConfirm)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.AccountID != "a1" {
		t.Errorf("AccountID = %s, want a1", got.AccountID)
	}
}

func TestService_Validate_Errors(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeNotifier{}, "https://example.com/confirm")
	ctx := context.Background()

	if _, err := svc.Validate(ctx, "no-such-code", domain.PurposeEmailConfirm); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("unknown code: %v, want ErrCodeNotFound", err)
	}

	code, err := svc.Issue(ctx, "a1", "user@example.com", domain.PurposeEmailConfirm, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Wrong purpose is indistinguishable from a missing code.
	if _, err := svc.Validate(ctx, code, domain.PurposePasswordRecovery); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("wrong purpose: %v, want ErrCodeNotFound", err)
	}

	if err := svc.Consume(ctx, code); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if _, err := svc.Validate(ctx, code, domain.PurposeEmailConfirm); !errors.Is(err, ErrCodeAlreadyUsed) {
		t.Errorf("consumed code: %v, want ErrCodeAlreadyUsed", err)
	}
}

func TestService_Validate_Expired(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeNotifier{}, "https://example.com/confirm")
	ctx := context.Background()

	now := time.Now().UTC()
	svc.nowF = func() time.Time { return now }

	code, err := svc.Issue(ctx, "a1", "user@example.com", domain.PurposeEmailConfirm, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc.nowF = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := svc.Validate(ctx, code, domain.PurposeEmailConfirm); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("expired code: %v, want ErrCodeExpired", err)
	}
}

func TestService_Issue_SupersedesPrevious(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeNotifier{}, "https://example.com/confirm")
	ctx := context.Background()

	first, err := svc.Issue(ctx, "a1", "user@example.com", domain.PurposeEmailConfirm, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := svc.Issue(ctx, "a1", "user@example.com", domain.PurposeEmailConfirm, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if first == second {
		t.Fatal("reissued code should differ")
	}

	if _, err := svc.Validate(ctx, first, domain.PurposeEmailConfirm); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("superseded code: %v, want ErrCodeNotFound", err)
	}
	if _, err := svc.Validate(ctx, second, domain.PurposeEmailConfirm); err != nil {
		t.Errorf("latest code: %v, want nil", err)
	}
}

func TestService_Issue_DeliveryFailureIsNotFatal(t *testing.T) {
	repo := newFakeRepo()
	mail := &fakeNotifier{err: errors.New("smtp down")}
	svc := NewService(repo, mail, "https://example.com/confirm")
	ctx := context.Background()

	code, err := svc.Issue(ctx, "a1", "user@example.com", domain.PurposeEmailConfirm, time.Hour)
	if err != nil {
		t.Fatalf("Issue with failing notifier: %v", err)
	}

	// The code is stored regardless and can still be validated.
	if _, err := svc.Validate(ctx, code, domain.PurposeEmailConfirm); err != nil {
		t.Errorf("Validate after failed delivery: %v", err)
	}
}

func TestService_RecoveryEmailBody(t *testing.T) {
	repo := newFakeRepo()
	mail := &fakeNotifier{}
	svc := NewService(repo, mail, "https://example.com/confirm")
	ctx := context.Background()

	code, err := svc.Issue(ctx, "a1", "user@example.com", domain.PurposePasswordRecovery, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !strings.Contains(mail.sent[0].body, "recoveryCode="+code) {
		t.Errorf("recovery email body missing recoveryCode link: %q", mail.sent[0].body)
	}
}
