package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
)

const (
	defaultMaxNewTokens = 500
	defaultTemperature  = 0.1
	defaultTopP         = 0.95
)

// HuggingFace calls a text-generation inference endpoint at URL/Model.
type HuggingFace struct {
	endpoint string
	apiKey   string
	params   hfParameters
	client   *http.Client
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"top_p"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// NewHuggingFace builds the client; a nil httpClient uses http.DefaultClient.
func NewHuggingFace(opts Options, httpClient *http.Client) *HuggingFace {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	params := hfParameters{
		MaxNewTokens: opts.MaxTokens,
		Temperature:  opts.Temperature,
		TopP:         opts.TopP,
	}
	if params.MaxNewTokens == 0 {
		params.MaxNewTokens = defaultMaxNewTokens
	}
	if params.Temperature == 0 {
		params.Temperature = defaultTemperature
	}
	if params.TopP == 0 {
		params.TopP = defaultTopP
	}

	endpoint := strings.TrimRight(opts.URL, "/")
	if opts.Model != "" {
		endpoint += "/" + opts.Model
	}
	return &HuggingFace{endpoint: endpoint, apiKey: opts.APIKey, params: params, client: httpClient}
}

// ResolveEntityNames keeps only word pairs from the generation since these
// models tend to wrap the answer in prose.
func (h *HuggingFace) ResolveEntityNames(ctx context.Context, methods []string, source string) (map[string]string, error) {
	if len(methods) == 0 {
		return map[string]string{}, nil
	}
	text, err := h.generate(ctx, instruct(entityPrompt(methods, source)))
	if err != nil {
		return map[string]string{}, err
	}
	return restrict(ParseMapping(FilterPairs(text)), methods), nil
}

func (h *HuggingFace) ResolveConstraints(ctx context.Context, operations []string, policyRefs []string, source string) (map[string]string, error) {
	if len(operations) == 0 {
		return map[string]string{}, nil
	}
	text, err := h.generate(ctx, instruct(constraintPrompt(operations, policyRefs, source)))
	if err != nil {
		return map[string]string{}, err
	}
	return restrict(ParseMapping(text), operations), nil
}

func (h *HuggingFace) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(hfRequest{Inputs: prompt, Parameters: h.params})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", permcheck_errors.ErrOracleUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		logger.Error("Text generation request failed", zap.String("endpoint", h.endpoint), zap.Error(err))
		return "", fmt.Errorf("%w: %v", permcheck_errors.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", permcheck_errors.ErrOracleUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Error("Text generation returned an error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(raw)))
		return "", fmt.Errorf("%w: status %d", permcheck_errors.ErrOracleUnavailable, resp.StatusCode)
	}

	// The endpoint answers either [{"generated_text": "..."}] or a bare list of strings.
	var generations []hfGeneration
	if err := json.Unmarshal(raw, &generations); err == nil && len(generations) > 0 {
		return generations[0].GeneratedText, nil
	}
	var texts []string
	if err := json.Unmarshal(raw, &texts); err == nil && len(texts) > 0 {
		return texts[0], nil
	}
	return "", fmt.Errorf("%w: unexpected response shape", permcheck_errors.ErrOracleUnavailable)
}
