// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/permcheck/audit"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/model"
)

// CheckFailure is the payload of EventCheckFailed.
type CheckFailure struct {
	CheckID     string
	Fingerprint string
	RequestedBy string
	Err         error
}

// NotificationService turns check events into audit entries and log lines.
type NotificationService struct {
	audit audit.Service
}

func NewNotificationService(auditService audit.Service) *NotificationService {
	return &NotificationService{audit: auditService}
}

// Register subscribes the service to the check events on bus.
func (n *NotificationService) Register(bus *EventBus) {
	bus.Subscribe(EventCheckCompleted, n.handleCompleted)
	bus.Subscribe(EventCheckFailed, n.handleFailed)
	bus.Subscribe(EventCheckReused, n.handleReused)
}

func (n *NotificationService) handleCompleted(ctx context.Context, e Event) error {
	report, ok := e.Payload.(*model.CheckReport)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e.Payload)
	}
	return n.NotifyCheckCompleted(ctx, report)
}

func (n *NotificationService) handleReused(ctx context.Context, e Event) error {
	report, ok := e.Payload.(*model.CheckReport)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e.Payload)
	}
	return n.NotifyCheckReused(ctx, report)
}

func (n *NotificationService) handleFailed(ctx context.Context, e Event) error {
	failure, ok := e.Payload.(CheckFailure)
	if !ok {
		return fmt.Errorf("unexpected payload %T", e.Payload)
	}
	return n.NotifyCheckFailed(ctx, failure)
}

func (n *NotificationService) NotifyCheckCompleted(ctx context.Context, report *model.CheckReport) error {
	logger.Info("NOTIFICATION: Check completed",
		zap.String("checkID", report.CheckID),
		zap.Int("redundant", len(report.RedundantRule)),
		zap.Int("lacking", len(report.LackRule)))

	return n.audit.LogCheck(ctx, audit.CheckAuditLog{
		Timestamp:      report.CreatedAt,
		CheckID:        report.CheckID,
		UserID:         report.RequestedBy,
		Fingerprint:    report.Fingerprint,
		Outcome:        audit.OutcomeCompleted,
		RedundantCount: len(report.RedundantRule),
		LackCount:      len(report.LackRule),
		OracleFailures: report.Stats.OracleFailures,
	})
}

// NotifyCheckReused records that report was served again for identical inputs.
func (n *NotificationService) NotifyCheckReused(ctx context.Context, report *model.CheckReport) error {
	logger.Info("NOTIFICATION: Check reused",
		zap.String("checkID", report.CheckID),
		zap.String("userID", report.RequestedBy))

	return n.audit.LogCheck(ctx, audit.CheckAuditLog{
		CheckID:        report.CheckID,
		UserID:         report.RequestedBy,
		Fingerprint:    report.Fingerprint,
		Outcome:        audit.OutcomeReused,
		RedundantCount: len(report.RedundantRule),
		LackCount:      len(report.LackRule),
		OracleFailures: report.Stats.OracleFailures,
	})
}

func (n *NotificationService) NotifyCheckFailed(ctx context.Context, failure CheckFailure) error {
	logger.Warn("NOTIFICATION: Check failed",
		zap.String("checkID", failure.CheckID),
		zap.Error(failure.Err))

	entry := audit.CheckAuditLog{
		CheckID:     failure.CheckID,
		UserID:      failure.RequestedBy,
		Fingerprint: failure.Fingerprint,
		Outcome:     audit.OutcomeFailed,
	}
	if failure.Err != nil {
		entry.Error = failure.Err.Error()
	}
	return n.audit.LogCheck(ctx, entry)
}
