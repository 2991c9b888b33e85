// Package oracle resolves entity and constraint names that static analysis
// cannot read directly. Answers are untrusted text and parsed defensively.
package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
)

// Oracle maps method names to the entity they manipulate and policy names to
// the constraint they enforce. Names absent from the returned map are unresolved.
type Oracle interface {
	ResolveEntityNames(ctx context.Context, methods []string, source string) (map[string]string, error)
	ResolveConstraints(ctx context.Context, operations []string, policyRefs []string, source string) (map[string]string, error)
}

const (
	ProviderOpenAI      = "openai"
	ProviderHuggingFace = "huggingface"
	ProviderStatic      = "static"
)

// Options configures the remote providers.
type Options struct {
	Provider    string
	URL         string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

// New builds the oracle for opts.Provider, wrapped with the per-call timeout.
func New(opts Options) (Oracle, error) {
	var o Oracle
	switch strings.ToLower(opts.Provider) {
	case ProviderOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("%w: openai provider needs an api key", permcheck_errors.ErrOracleUnavailable)
		}
		o = NewOpenAI(opts)
	case ProviderHuggingFace:
		if opts.APIKey == "" || opts.URL == "" {
			return nil, fmt.Errorf("%w: huggingface provider needs url and api key", permcheck_errors.ErrOracleUnavailable)
		}
		o = NewHuggingFace(opts, nil)
	case ProviderStatic, "":
		o = &Static{DeriveEntities: true}
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", permcheck_errors.ErrOracleUnavailable, opts.Provider)
	}

	logger.Info("Oracle configured", zap.String("provider", opts.Provider), zap.String("model", opts.Model))
	return WithTimeout(o, opts.Timeout), nil
}

type timeoutOracle struct {
	next    Oracle
	timeout time.Duration
}

// WithTimeout bounds every call to next. A zero timeout returns next unchanged.
func WithTimeout(next Oracle, timeout time.Duration) Oracle {
	if timeout <= 0 {
		return next
	}
	return &timeoutOracle{next: next, timeout: timeout}
}

func (t *timeoutOracle) ResolveEntityNames(ctx context.Context, methods []string, source string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ResolveEntityNames(ctx, methods, source)
}

func (t *timeoutOracle) ResolveConstraints(ctx context.Context, operations []string, policyRefs []string, source string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ResolveConstraints(ctx, operations, policyRefs, source)
}
