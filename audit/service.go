// audit/service.go
package audit

import (
	"context"
	"time"
)

type Service interface {
	LogCheck(ctx context.Context, log CheckAuditLog) error
	QueryLogs(ctx context.Context, from, to time.Time, userID string) ([]CheckAuditLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogCheck(ctx context.Context, log CheckAuditLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	return s.repo.LogCheck(ctx, log)
}

func (s *service) QueryLogs(ctx context.Context, from, to time.Time, userID string) ([]CheckAuditLog, error) {
	return s.repo.QueryLogs(ctx, from, to, userID)
}
