package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/permcheck/audit"
	"github.com/dev-mohitbeniwal/permcheck/checker/archive"
	"github.com/dev-mohitbeniwal/permcheck/dao"
	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/metrics"
	"github.com/dev-mohitbeniwal/permcheck/model"
	"github.com/dev-mohitbeniwal/permcheck/util"
)

// IRolePermissionService defines the interface for consistency check operations
type IRolePermissionService interface {
	CheckProjectPermissions(ctx context.Context, policyXML, project []byte, userID string) (*model.CheckReport, error)
	GetReport(ctx context.Context, checkID string) (*model.CheckReport, error)
	ListReports(ctx context.Context, limit int, offset int) ([]model.ReportSummary, error)
	QueryAudit(ctx context.Context, from, to time.Time, userID string) ([]audit.CheckAuditLog, error)
}

// Checker runs one consistency check.
type Checker interface {
	Check(ctx context.Context, policyXML, project []byte) (*model.CheckReport, error)
}

// RolePermissionService handles business logic around consistency checks
type RolePermissionService struct {
	checker        Checker
	reportStore    dao.ReportStore
	auditService   audit.Service
	validationUtil *util.ValidationUtil
	cacheService   *util.CacheService
	eventBus       *util.EventBus
	lockTTL        time.Duration
}

// NewRolePermissionService creates a new instance of RolePermissionService
func NewRolePermissionService(
	checker Checker,
	reportStore dao.ReportStore,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	eventBus *util.EventBus,
	lockTTL time.Duration,
) *RolePermissionService {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &RolePermissionService{
		checker:        checker,
		reportStore:    reportStore,
		auditService:   auditService,
		validationUtil: validationUtil,
		cacheService:   cacheService,
		eventBus:       eventBus,
		lockTTL:        lockTTL,
	}
}

// InputKey identifies a pair of inputs: identical policy and archive bytes
// produce the same key.
func InputKey(policyXML, project []byte) string {
	sum := sha256.Sum256(policyXML)
	return hex.EncodeToString(sum[:8]) + "-" + archive.Fingerprint(project)[:16]
}

// CheckProjectPermissions validates the uploads, runs the check under a lock
// keyed by the inputs and stores the report. A complete report already
// computed for identical inputs is returned from cache, stamped with userID.
// Reports with oracle failures are stored but never reused.
func (s *RolePermissionService) CheckProjectPermissions(ctx context.Context, policyXML, project []byte, userID string) (*model.CheckReport, error) {
	if err := s.validationUtil.ValidateUpload(policyXML, project, userID); err != nil {
		return nil, err
	}

	key := InputKey(policyXML, project)
	if cached := s.cachedCheck(ctx, key); cached != nil {
		reused := *cached
		reused.RequestedBy = userID
		metrics.IncCheck(metrics.OutcomeCached)
		s.eventBus.Publish(ctx, util.EventCheckReused, &reused)
		logger.Info("Returning cached check report",
			zap.String("checkID", reused.CheckID),
			zap.String("userID", userID))
		return &reused, nil
	}

	locked, err := s.cacheService.Lock(ctx, key, s.lockTTL)
	if err != nil {
		logger.Error("Failed to acquire check lock", zap.Error(err), zap.String("inputKey", key))
		return nil, fmt.Errorf("%w: %v", permcheck_errors.ErrInternalServer, err)
	}
	if !locked {
		logger.Warn("Identical check already running", zap.String("inputKey", key), zap.String("userID", userID))
		return nil, permcheck_errors.ErrCheckInProgress
	}
	defer func() {
		if err := s.cacheService.Unlock(context.WithoutCancel(ctx), key); err != nil {
			logger.Warn("Failed to release check lock", zap.Error(err), zap.String("inputKey", key))
		}
	}()

	report, err := s.checker.Check(ctx, policyXML, project)
	if err != nil {
		metrics.IncCheck(metrics.OutcomeFailed)
		s.eventBus.Publish(ctx, util.EventCheckFailed, util.CheckFailure{
			Fingerprint: archive.Fingerprint(project),
			RequestedBy: userID,
			Err:         err,
		})
		logger.Error("Check failed", zap.Error(err), zap.String("userID", userID))
		return nil, err
	}
	report.RequestedBy = userID
	metrics.ObserveCheck(report)

	if err := s.reportStore.SaveReport(ctx, report); err != nil {
		logger.Error("Failed to store check report", zap.Error(err), zap.String("checkID", report.CheckID))
		return nil, fmt.Errorf("%w: %v", permcheck_errors.ErrDatabaseOperation, err)
	}

	if err := s.cacheService.SetReport(ctx, report); err != nil {
		logger.Warn("Failed to cache check report", zap.Error(err), zap.String("checkID", report.CheckID))
	} else if report.Stats.OracleFailures > 0 {
		logger.Info("Check had oracle failures, not reusing it for identical inputs",
			zap.String("checkID", report.CheckID),
			zap.Int("oracleFailures", report.Stats.OracleFailures))
	} else if err := s.cacheService.IndexCheck(ctx, key, report.CheckID); err != nil {
		logger.Warn("Failed to index check", zap.Error(err), zap.String("checkID", report.CheckID))
	}

	s.eventBus.Publish(ctx, util.EventCheckCompleted, report)

	logger.Info("Check stored",
		zap.String("checkID", report.CheckID),
		zap.String("userID", userID),
		zap.Int("redundant", len(report.RedundantRule)),
		zap.Int("lacking", len(report.LackRule)))
	return report, nil
}

func (s *RolePermissionService) cachedCheck(ctx context.Context, key string) *model.CheckReport {
	checkID, err := s.cacheService.LookupCheck(ctx, key)
	if err != nil || checkID == "" {
		return nil
	}
	report, err := s.cacheService.GetReport(ctx, checkID)
	if err != nil {
		logger.Warn("Failed to read cached report", zap.Error(err), zap.String("checkID", checkID))
		return nil
	}
	if report != nil && report.Stats.OracleFailures > 0 {
		return nil
	}
	return report
}

// GetReport retrieves a report, trying the cache first
func (s *RolePermissionService) GetReport(ctx context.Context, checkID string) (*model.CheckReport, error) {
	cached, err := s.cacheService.GetReport(ctx, checkID)
	if err == nil && cached != nil {
		return cached, nil
	}

	report, err := s.reportStore.GetReport(ctx, checkID)
	if err != nil {
		if errors.Is(err, permcheck_errors.ErrReportNotFound) {
			return nil, permcheck_errors.ErrReportNotFound
		}
		logger.Error("Error retrieving report", zap.Error(err), zap.String("checkID", checkID))
		return nil, permcheck_errors.ErrInternalServer
	}

	if err := s.cacheService.SetReport(ctx, report); err != nil {
		logger.Warn("Failed to cache report", zap.Error(err), zap.String("checkID", checkID))
	}
	return report, nil
}

// ListReports retrieves stored report summaries, newest first
func (s *RolePermissionService) ListReports(ctx context.Context, limit int, offset int) ([]model.ReportSummary, error) {
	if err := s.validationUtil.ValidatePagination(limit, offset); err != nil {
		return nil, err
	}

	summaries, err := s.reportStore.ListReports(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing reports", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	if summaries == nil {
		summaries = []model.ReportSummary{}
	}
	return summaries, nil
}

// QueryAudit returns the audit trail of checks in [from, to]
func (s *RolePermissionService) QueryAudit(ctx context.Context, from, to time.Time, userID string) ([]audit.CheckAuditLog, error) {
	logs, err := s.auditService.QueryLogs(ctx, from, to, userID)
	if err != nil {
		logger.Error("Error querying audit logs", zap.Error(err))
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	if logs == nil {
		logs = []audit.CheckAuditLog{}
	}
	return logs, nil
}
