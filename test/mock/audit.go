// test/mock/audit.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/permcheck/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogCheck(ctx context.Context, log audit.CheckAuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditService) QueryLogs(ctx context.Context, from, to time.Time, userID string) ([]audit.CheckAuditLog, error) {
	args := m.Called(ctx, from, to, userID)
	logs, _ := args.Get(0).([]audit.CheckAuditLog)
	return logs, args.Error(1)
}
