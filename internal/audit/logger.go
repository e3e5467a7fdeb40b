// Package audit records security-relevant actions without blocking the flows
// that produce them.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"blogger-platform/internal/audit/domain"
	"blogger-platform/internal/audit/repository"
)

// Logger writes audit entries best-effort. Persistence failures are logged and
// swallowed so a broken audit store never fails a login or refresh.
type Logger struct {
	repo repository.Repository
	nowF func() time.Time
}

// NewLogger returns a Logger backed by the given repository. A nil repository
// disables recording entirely.
func NewLogger(repo repository.Repository) *Logger {
	return &Logger{repo: repo, nowF: time.Now}
}

// Record stores one action. metadata may be nil.
func (l *Logger) Record(ctx context.Context, accountID, action, ip string, metadata map[string]string) {
	if l == nil || l.repo == nil {
		return
	}
	e := &domain.Entry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Action:    action,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.nowF().UTC(),
	}
	if err := l.repo.Create(ctx, e); err != nil {
		log.Printf("audit: record %s for account %q failed: %v", action, accountID, err)
	}
}
