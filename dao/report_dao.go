// dao/report_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/permcheck/db"
	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/model"
	permcheck_neo4j "github.com/dev-mohitbeniwal/permcheck/model/neo4j"
)

// ReportStore persists check reports.
type ReportStore interface {
	SaveReport(ctx context.Context, report *model.CheckReport) error
	GetReport(ctx context.Context, checkID string) (*model.CheckReport, error)
	ListReports(ctx context.Context, limit, offset int) ([]model.ReportSummary, error)
}

type ReportDAO struct {
	Driver neo4j.DriverWithContext
}

func NewReportDAO(driver neo4j.DriverWithContext) *ReportDAO {
	dao := &ReportDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the Check ID
func (dao *ReportDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on Check ID")
	_, err := db.ExecuteWriteTransaction(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
        CREATE CONSTRAINT unique_check_id IF NOT EXISTS
        FOR (c:` + permcheck_neo4j.LabelCheck + `) REQUIRE c.id IS UNIQUE
        `
		if _, err := tx.Run(ctx, query, nil); err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on Check ID", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraint on Check ID")
	return nil
}

// SaveReport stores the check node with its redundant permissions and
// lacking rules as separate nodes, and the full report as JSON.
func (dao *ReportDAO) SaveReport(ctx context.Context, report *model.CheckReport) error {
	start := time.Now()
	logger.Info("Saving check report", zap.String("checkID", report.CheckID))

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	redundant := make([]map[string]any, 0, len(report.RedundantRule))
	for _, p := range report.RedundantRule {
		redundant = append(redundant, map[string]any{
			permcheck_neo4j.AttrRole:      p.Role,
			permcheck_neo4j.AttrAction:    p.Action,
			permcheck_neo4j.AttrResource:  p.Resource,
			permcheck_neo4j.AttrCondition: p.Condition,
			permcheck_neo4j.AttrMethod:    p.Method,
			"controller":                  p.Controller,
		})
	}
	lacking := make([]map[string]any, 0, len(report.LackRule))
	for _, r := range report.LackRule {
		lacking = append(lacking, map[string]any{
			permcheck_neo4j.AttrRole:      r.Role,
			permcheck_neo4j.AttrAction:    r.Action,
			permcheck_neo4j.AttrResource:  r.Resource,
			permcheck_neo4j.AttrCondition: r.Condition,
		})
	}

	_, err = db.ExecuteWriteTransaction(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
        CREATE (c:` + permcheck_neo4j.LabelCheck + ` {
            id: $id, fingerprint: $fingerprint, requestedBy: $requestedBy,
            createdAt: $createdAt, redundantCount: $redundantCount, lackCount: $lackCount,
            report: $report
        })
        FOREACH (p IN $redundant |
            MERGE (ctl:` + permcheck_neo4j.LabelController + ` {path: p.controller})
            CREATE (c)-[:` + permcheck_neo4j.RelReportsRedundant + `]->(perm:` + permcheck_neo4j.LabelPermission + ` {
                role: p.role, action: p.action, resource: p.resource, condition: p.condition, method: p.method
            })-[:` + permcheck_neo4j.RelImplementedIn + `]->(ctl)
        )
        FOREACH (r IN $lacking |
            CREATE (c)-[:` + permcheck_neo4j.RelReportsLacking + `]->(:` + permcheck_neo4j.LabelRule + ` {
                role: r.role, action: r.action, resource: r.resource, condition: r.condition
            })
        )
        RETURN c.id AS id
        `
		params := map[string]any{
			"id":             report.CheckID,
			"fingerprint":    report.Fingerprint,
			"requestedBy":    report.RequestedBy,
			"createdAt":      report.CreatedAt.Format(time.RFC3339Nano),
			"redundantCount": len(report.RedundantRule),
			"lackCount":      len(report.LackRule),
			"report":         string(reportJSON),
			"redundant":      redundant,
			"lacking":        lacking,
		}
		if _, err := tx.Run(ctx, query, params); err != nil {
			return nil, fmt.Errorf("%w: %v", permcheck_errors.ErrDatabaseOperation, err)
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to save check report",
			zap.Error(err),
			zap.String("checkID", report.CheckID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Check report saved",
		zap.String("checkID", report.CheckID),
		zap.Duration("duration", duration))
	return nil
}

func (dao *ReportDAO) GetReport(ctx context.Context, checkID string) (*model.CheckReport, error) {
	result, err := db.ExecuteReadTransaction(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
        MATCH (c:` + permcheck_neo4j.LabelCheck + ` {id: $id})
        RETURN c.report AS report
        `
		res, err := tx.Run(ctx, query, map[string]any{"id": checkID})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", permcheck_errors.ErrDatabaseOperation, err)
		}
		if !res.Next(ctx) {
			return nil, permcheck_errors.ErrReportNotFound
		}
		raw, _ := res.Record().Get("report")
		return raw, nil
	})
	if err != nil {
		logger.Error("Failed to get check report", zap.String("checkID", checkID), zap.Error(err))
		return nil, err
	}

	raw, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: report property is not a string", permcheck_errors.ErrDatabaseOperation)
	}
	var report model.CheckReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

func (dao *ReportDAO) ListReports(ctx context.Context, limit, offset int) ([]model.ReportSummary, error) {
	result, err := db.ExecuteReadTransaction(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
        MATCH (c:` + permcheck_neo4j.LabelCheck + `)
        RETURN c.id AS id, c.fingerprint AS fingerprint, c.redundantCount AS redundantCount,
               c.lackCount AS lackCount, c.requestedBy AS requestedBy, c.createdAt AS createdAt
        ORDER BY c.createdAt DESC
        SKIP $offset LIMIT $limit
        `
		res, err := tx.Run(ctx, query, map[string]any{"limit": limit, "offset": offset})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", permcheck_errors.ErrDatabaseOperation, err)
		}

		var summaries []model.ReportSummary
		for res.Next(ctx) {
			rec := res.Record()
			summaries = append(summaries, model.ReportSummary{
				CheckID:        getString(rec, "id"),
				Fingerprint:    getString(rec, "fingerprint"),
				RedundantCount: getInt(rec, "redundantCount"),
				LackCount:      getInt(rec, "lackCount"),
				RequestedBy:    getString(rec, "requestedBy"),
				CreatedAt:      getTime(rec, "createdAt"),
			})
		}
		return summaries, res.Err()
	})
	if err != nil {
		logger.Error("Failed to list check reports", zap.Error(err))
		return nil, err
	}

	summaries, _ := result.([]model.ReportSummary)
	return summaries, nil
}

func getString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func getInt(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	n, _ := v.(int64)
	return int(n)
}

func getTime(rec *neo4j.Record, key string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, getString(rec, key))
	return t
}

// MemoryReportStore keeps the most recent reports in process. It backs the
// service when Neo4j is disabled.
type MemoryReportStore struct {
	mu       sync.RWMutex
	capacity int
	reports  map[string]*model.CheckReport
	order    []string
}

func NewMemoryReportStore(capacity int) *MemoryReportStore {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryReportStore{capacity: capacity, reports: make(map[string]*model.CheckReport)}
}

func (s *MemoryReportStore) SaveReport(_ context.Context, report *model.CheckReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.CheckID]; !exists {
		s.order = append(s.order, report.CheckID)
	}
	s.reports[report.CheckID] = report
	for len(s.order) > s.capacity {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryReportStore) GetReport(_ context.Context, checkID string) (*model.CheckReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[checkID]
	if !ok {
		return nil, permcheck_errors.ErrReportNotFound
	}
	return report, nil
}

func (s *MemoryReportStore) ListReports(_ context.Context, limit, offset int) ([]model.ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.ReportSummary, 0, len(s.order))
	for _, id := range s.order {
		summaries = append(summaries, Summarize(s.reports[id]))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	if offset >= len(summaries) {
		return []model.ReportSummary{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(summaries) {
		end = len(summaries)
	}
	return summaries[offset:end], nil
}

// Summarize builds the list view of a report.
func Summarize(r *model.CheckReport) model.ReportSummary {
	return model.ReportSummary{
		CheckID:        r.CheckID,
		Fingerprint:    r.Fingerprint,
		RedundantCount: len(r.RedundantRule),
		LackCount:      len(r.LackRule),
		RequestedBy:    r.RequestedBy,
		CreatedAt:      r.CreatedAt,
	}
}
