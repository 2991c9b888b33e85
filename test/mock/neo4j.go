// test/mock/neo4j.go
package mock

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"
)

// MockDriver is a mock implementation of neo4j.DriverWithContext. Methods
// the DAOs never call fall through to the embedded nil interface.
type MockDriver struct {
	neo4j.DriverWithContext
	mock.Mock
}

func (m *MockDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) neo4j.SessionWithContext {
	args := m.Called(config.AccessMode)
	return args.Get(0).(neo4j.SessionWithContext)
}

func (m *MockDriver) VerifyConnectivity(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDriver) Close(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// MockSession is a mock implementation of neo4j.SessionWithContext. The
// managed transaction functions run the work against the transaction the
// expectation returns.
type MockSession struct {
	neo4j.SessionWithContext
	mock.Mock
}

func (m *MockSession) ExecuteRead(ctx context.Context, work neo4j.ManagedTransactionWork, configurers ...func(*neo4j.TransactionConfig)) (any, error) {
	args := m.Called()
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return work(args.Get(0).(neo4j.ManagedTransaction))
}

func (m *MockSession) ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork, configurers ...func(*neo4j.TransactionConfig)) (any, error) {
	args := m.Called()
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return work(args.Get(0).(neo4j.ManagedTransaction))
}

func (m *MockSession) Close(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// MockTransaction is a mock implementation of neo4j.ManagedTransaction
type MockTransaction struct {
	neo4j.ManagedTransaction
	mock.Mock
}

func (m *MockTransaction) Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error) {
	args := m.Called(cypher, params)
	result, _ := args.Get(0).(neo4j.ResultWithContext)
	return result, args.Error(1)
}

// MockResult replays a fixed list of records as a neo4j.ResultWithContext.
type MockResult struct {
	neo4j.ResultWithContext
	Records []*neo4j.Record
	Error   error

	current *neo4j.Record
}

func (r *MockResult) Next(ctx context.Context) bool {
	if len(r.Records) == 0 {
		r.current = nil
		return false
	}
	r.current, r.Records = r.Records[0], r.Records[1:]
	return true
}

func (r *MockResult) Record() *neo4j.Record {
	return r.current
}

func (r *MockResult) Err() error {
	return r.Error
}
