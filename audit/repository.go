// audit/repository.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const DefaultIndex = "permcheck-audit"

type Repository interface {
	LogCheck(ctx context.Context, log CheckAuditLog) error
	QueryLogs(ctx context.Context, from, to time.Time, userID string) ([]CheckAuditLog, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
	index    string
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL, index string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticsearchRepository{esClient: esClient, index: index}, nil
}

// LogCheck indexes one audit entry. Completed checks are keyed by their check
// ID; other outcomes get a generated ID so they never replace that entry.
func (r *ElasticsearchRepository) LogCheck(ctx context.Context, log CheckAuditLog) error {
	data, err := json.Marshal(log)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:   r.index,
		Body:    bytes.NewReader(data),
		Refresh: "true",
	}
	if log.Outcome == OutcomeCompleted {
		req.DocumentID = log.CheckID
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	return nil
}

// QueryLogs searches for audit entries in a time frame, optionally filtered by user.
func (r *ElasticsearchRepository) QueryLogs(ctx context.Context, from, to time.Time, userID string) ([]CheckAuditLog, error) {
	must := []map[string]any{
		{
			"range": map[string]any{
				"timestamp": map[string]any{
					"gte": from.Format(time.RFC3339),
					"lte": to.Format(time.RFC3339),
				},
			},
		},
	}
	if userID != "" {
		must = append(must, map[string]any{
			"match": map[string]any{"user_id": userID},
		})
	}
	query := map[string]any{
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"sort":  []map[string]any{{"timestamp": map[string]any{"order": "desc"}}},
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching documents: %s", res.String())
	}

	var body struct {
		Hits struct {
			Hits []struct {
				Source CheckAuditLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}

	logs := make([]CheckAuditLog, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		logs = append(logs, hit.Source)
	}
	return logs, nil
}

// MemoryRepository keeps audit entries in process when Elasticsearch is disabled.
type MemoryRepository struct {
	mu   sync.RWMutex
	logs []CheckAuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) LogCheck(_ context.Context, log CheckAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

func (r *MemoryRepository) QueryLogs(_ context.Context, from, to time.Time, userID string) ([]CheckAuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []CheckAuditLog
	for _, l := range r.logs {
		if l.Timestamp.Before(from) || l.Timestamp.After(to) {
			continue
		}
		if userID != "" && l.UserID != userID {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}
