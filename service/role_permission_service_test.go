package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/permcheck/audit"
	"github.com/dev-mohitbeniwal/permcheck/dao"
	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	"github.com/dev-mohitbeniwal/permcheck/model"
	"github.com/dev-mohitbeniwal/permcheck/service"
	"github.com/dev-mohitbeniwal/permcheck/test/mock"
	"github.com/dev-mohitbeniwal/permcheck/util"
)

var (
	policyXML = []byte(`<Rules><Module/></Rules>`)
	project   = []byte("PK\x03\x04archive-bytes")
)

type fixture struct {
	checker *mock.MockChecker
	store   *mock.MockReportStore
	audit   *mock.MockAuditService
	cache   *util.CacheService
	bus     *util.EventBus
	svc     *service.RolePermissionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		checker: new(mock.MockChecker),
		store:   new(mock.MockReportStore),
		audit:   new(mock.MockAuditService),
		cache:   util.NewCacheService(false, 10, 0),
		bus:     util.NewEventBus(),
	}
	f.svc = service.NewRolePermissionService(f.checker, f.store, f.audit, util.NewValidationUtil(1<<20), f.cache, f.bus, time.Minute)
	return f
}

func sampleReport() *model.CheckReport {
	return &model.CheckReport{
		CheckID: "chk-1",
		ReconciliationResult: model.ReconciliationResult{
			RedundantRule: []model.ImplementedPermission{},
			LackRule:      []model.PolicyRule{{Role: "USER", Action: "GET", Resource: "account"}},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestCheckProjectPermissions_StoresAndPublishes(t *testing.T) {
	f := newFixture(t)
	completed := make(chan *model.CheckReport, 1)
	f.bus.Subscribe(util.EventCheckCompleted, func(_ context.Context, e util.Event) error {
		completed <- e.Payload.(*model.CheckReport)
		return nil
	})

	f.checker.On("Check", testifymock.Anything, policyXML, project).Return(sampleReport(), nil).Once()
	f.store.On("SaveReport", testifymock.Anything, testifymock.MatchedBy(func(r *model.CheckReport) bool {
		return r.CheckID == "chk-1" && r.RequestedBy == "alice"
	})).Return(nil).Once()

	report, err := f.svc.CheckProjectPermissions(context.Background(), policyXML, project, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", report.RequestedBy)
	assert.Len(t, report.LackRule, 1)

	f.bus.Wait()
	require.Len(t, completed, 1)
	assert.Equal(t, "chk-1", (<-completed).CheckID)

	cached, err := f.cache.GetReport(context.Background(), "chk-1")
	require.NoError(t, err)
	assert.NotNil(t, cached)

	f.checker.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func TestCheckProjectPermissions_ReusesIdenticalInputs(t *testing.T) {
	f := newFixture(t)
	reused := make(chan *model.CheckReport, 1)
	f.bus.Subscribe(util.EventCheckReused, func(_ context.Context, e util.Event) error {
		reused <- e.Payload.(*model.CheckReport)
		return nil
	})
	f.checker.On("Check", testifymock.Anything, policyXML, project).Return(sampleReport(), nil).Once()
	f.store.On("SaveReport", testifymock.Anything, testifymock.Anything).Return(nil).Once()

	first, err := f.svc.CheckProjectPermissions(context.Background(), policyXML, project, "alice")
	require.NoError(t, err)
	second, err := f.svc.CheckProjectPermissions(context.Background(), policyXML, project, "bob")
	require.NoError(t, err)

	assert.Equal(t, first.CheckID, second.CheckID)
	assert.Equal(t, "bob", second.RequestedBy)
	assert.Equal(t, "alice", first.RequestedBy)
	f.checker.AssertNumberOfCalls(t, "Check", 1)

	f.bus.Wait()
	require.Len(t, reused, 1)
	assert.Equal(t, "bob", (<-reused).RequestedBy)

	cached, err := f.cache.GetReport(context.Background(), first.CheckID)
	require.NoError(t, err)
	assert.Equal(t, "alice", cached.RequestedBy)
}

func TestCheckProjectPermissions_DegradedReportIsNotReused(t *testing.T) {
	f := newFixture(t)
	degraded := sampleReport()
	degraded.Stats.OracleFailures = 3
	fresh := sampleReport()
	fresh.CheckID = "chk-2"

	f.checker.On("Check", testifymock.Anything, policyXML, project).Return(degraded, nil).Once()
	f.checker.On("Check", testifymock.Anything, policyXML, project).Return(fresh, nil).Once()
	f.store.On("SaveReport", testifymock.Anything, testifymock.Anything).Return(nil).Twice()

	first, err := f.svc.CheckProjectPermissions(context.Background(), policyXML, project, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Stats.OracleFailures)

	second, err := f.svc.CheckProjectPermissions(context.Background(), policyXML, project, "bob")
	require.NoError(t, err)
	assert.Equal(t, "chk-2", second.CheckID)
	assert.Zero(t, second.Stats.OracleFailures)
	assert.Equal(t, "bob", second.RequestedBy)
	f.checker.AssertNumberOfCalls(t, "Check", 2)

	// the degraded report stays readable by ID
	cached, err := f.cache.GetReport(context.Background(), "chk-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	f.store.AssertExpectations(t)
}

func TestCheckProjectPermissions_RejectsConcurrentIdenticalCheck(t *testing.T) {
	f := newFixture(t)
	ok, err := f.cache.Lock(context.Background(), service.InputKey(policyXML, project), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.CheckProjectPermissions(context.Background(), policyXML, project, "alice")
	assert.ErrorIs(t, err, permcheck_errors.ErrCheckInProgress)
	f.checker.AssertNotCalled(t, "Check", testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func TestCheckProjectPermissions_InvalidUpload(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CheckProjectPermissions(context.Background(), nil, project, "alice")
	assert.ErrorIs(t, err, permcheck_errors.ErrMissingUpload)

	_, err = f.svc.CheckProjectPermissions(context.Background(), policyXML, []byte("plain text"), "alice")
	assert.ErrorIs(t, err, permcheck_errors.ErrArchiveCorrupt)
}

func TestCheckProjectPermissions_CheckerFailureReleasesLock(t *testing.T) {
	f := newFixture(t)
	var failures sync.WaitGroup
	failures.Add(1)
	f.bus.Subscribe(util.EventCheckFailed, func(_ context.Context, e util.Event) error {
		defer failures.Done()
		assert.ErrorIs(t, e.Payload.(util.CheckFailure).Err, permcheck_errors.ErrInvalidPolicyDocument)
		return nil
	})
	f.checker.On("Check", testifymock.Anything, policyXML, project).Return(nil, permcheck_errors.ErrInvalidPolicyDocument).Once()

	_, err := f.svc.CheckProjectPermissions(context.Background(), policyXML, project, "alice")
	assert.ErrorIs(t, err, permcheck_errors.ErrInvalidPolicyDocument)
	failures.Wait()

	ok, err := f.cache.Lock(context.Background(), service.InputKey(policyXML, project), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	f.store.AssertNotCalled(t, "SaveReport", testifymock.Anything, testifymock.Anything)
}

func TestCheckProjectPermissions_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.checker.On("Check", testifymock.Anything, policyXML, project).Return(sampleReport(), nil).Once()
	f.store.On("SaveReport", testifymock.Anything, testifymock.Anything).Return(errors.New("neo4j down")).Once()

	_, err := f.svc.CheckProjectPermissions(context.Background(), policyXML, project, "alice")
	assert.ErrorIs(t, err, permcheck_errors.ErrDatabaseOperation)
}

func TestGetReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.On("GetReport", testifymock.Anything, "chk-1").Return(sampleReport(), nil).Once()
	f.store.On("GetReport", testifymock.Anything, "missing").Return(nil, permcheck_errors.ErrReportNotFound).Once()
	f.store.On("GetReport", testifymock.Anything, "broken").Return(nil, errors.New("boom")).Once()

	report, err := f.svc.GetReport(ctx, "chk-1")
	require.NoError(t, err)
	assert.Equal(t, "chk-1", report.CheckID)

	// second read is served from cache
	_, err = f.svc.GetReport(ctx, "chk-1")
	require.NoError(t, err)

	_, err = f.svc.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, permcheck_errors.ErrReportNotFound)

	_, err = f.svc.GetReport(ctx, "broken")
	assert.ErrorIs(t, err, permcheck_errors.ErrInternalServer)

	f.store.AssertExpectations(t)
}

func TestListReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.On("ListReports", testifymock.Anything, 10, 0).Return(nil, nil).Once()
	summaries, err := f.svc.ListReports(ctx, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)

	_, err = f.svc.ListReports(ctx, 0, 0)
	assert.ErrorIs(t, err, permcheck_errors.ErrInvalidPagination)
}

func TestListReports_MemoryStore(t *testing.T) {
	store := dao.NewMemoryReportStore(10)
	svc := service.NewRolePermissionService(new(mock.MockChecker), store, audit.NewService(audit.NewMemoryRepository()),
		util.NewValidationUtil(0), util.NewCacheService(false, 10, 0), util.NewEventBus(), 0)
	require.NoError(t, store.SaveReport(context.Background(), sampleReport()))

	summaries, err := svc.ListReports(context.Background(), 5, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].LackCount)
}

func TestQueryAudit(t *testing.T) {
	f := newFixture(t)
	from, to := time.Now().Add(-time.Hour), time.Now()
	f.audit.On("QueryLogs", testifymock.Anything, from, to, "alice").
		Return([]audit.CheckAuditLog{{CheckID: "chk-1"}}, nil).Once()
	f.audit.On("QueryLogs", testifymock.Anything, from, to, "bob").
		Return(nil, errors.New("es down")).Once()

	logs, err := f.svc.QueryAudit(context.Background(), from, to, "alice")
	require.NoError(t, err)
	require.Len(t, logs, 1)

	_, err = f.svc.QueryAudit(context.Background(), from, to, "bob")
	assert.Error(t, err)
}
