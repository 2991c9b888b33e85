// test/mock/checker.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/permcheck/model"
)

// MockChecker is a mock implementation of service.Checker
type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) Check(ctx context.Context, policyXML, project []byte) (*model.CheckReport, error) {
	args := m.Called(ctx, policyXML, project)
	report, _ := args.Get(0).(*model.CheckReport)
	return report, args.Error(1)
}

// MockReportStore is a mock implementation of dao.ReportStore
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) SaveReport(ctx context.Context, report *model.CheckReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportStore) GetReport(ctx context.Context, checkID string) (*model.CheckReport, error) {
	args := m.Called(ctx, checkID)
	report, _ := args.Get(0).(*model.CheckReport)
	return report, args.Error(1)
}

func (m *MockReportStore) ListReports(ctx context.Context, limit, offset int) ([]model.ReportSummary, error) {
	args := m.Called(ctx, limit, offset)
	summaries, _ := args.Get(0).([]model.ReportSummary)
	return summaries, args.Error(1)
}
