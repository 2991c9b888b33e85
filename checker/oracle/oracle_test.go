package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
)

func TestParseMapping(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]string
	}{
		{
			name: "plain",
			in:   "getTellerTransactions: transaction,transferFunds: account",
			want: map[string]string{"getTellerTransactions": "transaction", "transferFunds": "account"},
		},
		{
			name: "extra whitespace and newlines",
			in:   "  getA :  account ,\n\n getB:transaction  ",
			want: map[string]string{"getA": "account", "getB": "transaction"},
		},
		{
			name: "quotes bullets and fences",
			in:   "```\n- \"getA\": 'account'\n* getB: `loan`\n```",
			want: map[string]string{"getA": "account", "getB": "loan"},
		},
		{
			name: "constraint values keep operators",
			in:   "TellerPolicy: user.branchId == transaction.branchId",
			want: map[string]string{"TellerPolicy": "user.branchId == transaction.branchId"},
		},
		{
			name: "garbage entries are dropped",
			in:   "Sure! Here you go, : orphan, getA: account",
			want: map[string]string{"getA": "account"},
		},
		{
			name: "empty",
			in:   "",
			want: map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMapping(tt.in))
		})
	}
}

func TestFilterPairs(t *testing.T) {
	in := "Here is the answer:\ngetA: account\nand also getB:  loan. Thanks"
	assert.Equal(t, "getA: account, getB: loan", FilterPairs(in))
}

func TestRestrictDropsUnknownAndEmpty(t *testing.T) {
	got := restrict(map[string]string{"a": "x", "b": "", "c": "z"}, []string{"a", "b", "d"})
	assert.Equal(t, map[string]string{"a": "x"}, got)
}

func TestStatic(t *testing.T) {
	s := &Static{Entities: map[string]string{"getA": "account"}, Constraints: map[string]string{"P": "x==y"}}

	entities, err := s.ResolveEntityNames(context.Background(), []string{"getA", "getB"}, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"getA": "account"}, entities)

	constraints, err := s.ResolveConstraints(context.Background(), []string{"P", "Q"}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"P": "x==y"}, constraints)
}

func TestStatic_DerivesEntityFromServiceClass(t *testing.T) {
	s := &Static{DeriveEntities: true}
	entities, err := s.ResolveEntityNames(context.Background(), []string{"findAll"}, "@Injectable()\nexport class LoanAccountService {}")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"findAll": "loanaccount"}, entities)
}

func TestStatic_Error(t *testing.T) {
	s := &Static{Err: errors.New("boom")}
	entities, err := s.ResolveEntityNames(context.Background(), []string{"a"}, "")
	assert.Error(t, err)
	assert.Empty(t, entities)
}

type blockingOracle struct{}

func (blockingOracle) ResolveEntityNames(ctx context.Context, _ []string, _ string) (map[string]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingOracle) ResolveConstraints(ctx context.Context, _ []string, _ []string, _ string) (map[string]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	o := WithTimeout(blockingOracle{}, 20*time.Millisecond)

	start := time.Now()
	_, err := o.ResolveEntityNames(context.Background(), []string{"a"}, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, blockingOracle{}, WithTimeout(blockingOracle{}, 0))
}

func TestNew(t *testing.T) {
	o, err := New(Options{Provider: "static"})
	require.NoError(t, err)
	assert.IsType(t, &Static{}, o)

	_, err = New(Options{Provider: "openai"})
	assert.True(t, errors.Is(err, permcheck_errors.ErrOracleUnavailable))

	_, err = New(Options{Provider: "carrier-pigeon"})
	assert.True(t, errors.Is(err, permcheck_errors.ErrOracleUnavailable))

	o, err = New(Options{Provider: "huggingface", URL: "http://x", APIKey: "k", Timeout: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &timeoutOracle{}, o)
}

func TestHuggingFace_ResolveEntityNames(t *testing.T) {
	var got hfRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mistral", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`[{"generated_text": "The entities are:\ngetA: account, getB: loan"}]`))
	}))
	defer server.Close()

	h := NewHuggingFace(Options{URL: server.URL, Model: "mistral", APIKey: "secret"}, server.Client())
	entities, err := h.ResolveEntityNames(context.Background(), []string{"getA", "getB"}, "class AService {}")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"getA": "account", "getB": "loan"}, entities)

	assert.Contains(t, got.Inputs, "[INST]")
	assert.Contains(t, got.Inputs, "getA: entityName,getB: entityName")
	assert.Equal(t, defaultMaxNewTokens, got.Parameters.MaxNewTokens)
	assert.False(t, got.Parameters.ReturnFullText)
}

func TestHuggingFace_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	h := NewHuggingFace(Options{URL: server.URL, APIKey: "k"}, server.Client())
	constraints, err := h.ResolveConstraints(context.Background(), []string{"P"}, nil, "")
	assert.True(t, errors.Is(err, permcheck_errors.ErrOracleUnavailable))
	assert.Empty(t, constraints)
}

func TestOpenAI_ResolveConstraints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "TellerPolicy: user.branchId == branch.id, Other: x"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	o := NewOpenAI(Options{URL: server.URL, APIKey: "k", Model: "test-model"})
	constraints, err := o.ResolveConstraints(context.Background(), []string{"TellerPolicy"}, []string{"./policies/transaction.policy"}, "class TellerPolicy {}")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"TellerPolicy": "user.branchId == branch.id"}, constraints)
}

func TestOpenAI_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	o := NewOpenAI(Options{URL: server.URL, APIKey: "k"})
	entities, err := o.ResolveEntityNames(context.Background(), []string{"a"}, "")
	assert.True(t, errors.Is(err, permcheck_errors.ErrOracleUnavailable))
	assert.Empty(t, entities)
}
