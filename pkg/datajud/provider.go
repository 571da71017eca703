package datajud

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/mitchellh/mapstructure"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/advwell/pkg/expressions"
	"github.com/Ramsey-B/advwell/pkg/httpclient"
	"github.com/Ramsey-B/advwell/pkg/ratelimit"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

const (
	hitsExpression  = "hits.hits[*]._source"
	totalExpression = "hits.total.value"
)

// Provider queries one registry for a process. A nil record with a nil
// error means the registry has no such process.
type Provider interface {
	Tribunal() string
	Query(ctx context.Context, digits string) (*CaseRecord, error)
}

// StatusError is a non-2xx answer from DataJud
type StatusError struct {
	Tribunal   string
	StatusCode int
	// RetryAfter is the back-off DataJud asked for, zero when it sent none
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("datajud %s returned status %d", e.Tribunal, e.StatusCode)
}

// Retryable reports whether the same query may succeed later
func (e *StatusError) Retryable() bool {
	return httpclient.IsRetryableStatus(e.StatusCode)
}

func newStatusError(tribunal string, resp *httpclient.Response) *StatusError {
	statusErr := &StatusError{Tribunal: tribunal, StatusCode: resp.StatusCode}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return statusErr
	}
	if value := resp.Headers.Get("Retry-After"); value != "" {
		if d, err := ratelimit.ParseRetryAfter(value); err == nil && d > 0 {
			statusErr.RetryAfter = d
		}
	}
	return statusErr
}

type searchRequest struct {
	Query struct {
		Match struct {
			NumeroProcesso string `json:"numeroProcesso"`
		} `json:"match"`
	} `json:"query"`
}

// TribunalProvider queries the api_publica index of one tribunal
type TribunalProvider struct {
	tribunal  string
	url       string
	apiKey    string
	client    *httpclient.Client
	evaluator *expressions.Evaluator
	logger    ectologger.Logger
}

func NewTribunalProvider(tribunal, baseURL, apiKey string, client *httpclient.Client, evaluator *expressions.Evaluator, logger ectologger.Logger) *TribunalProvider {
	return &TribunalProvider{
		tribunal:  tribunal,
		url:       fmt.Sprintf("%s/api_publica_%s/_search", strings.TrimRight(baseURL, "/"), tribunal),
		apiKey:    apiKey,
		client:    client,
		evaluator: evaluator,
		logger:    logger,
	}
}

func (p *TribunalProvider) Tribunal() string {
	return p.tribunal
}

func (p *TribunalProvider) Query(ctx context.Context, digits string) (*CaseRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "TribunalProvider.Query")
	defer span.End()
	span.SetAttributes(attribute.String("datajud.tribunal", p.tribunal))

	var body searchRequest
	body.Query.Match.NumeroProcesso = digits

	resp, err := p.client.PostJSON(ctx, p.url, body, map[string]string{
		"Authorization": "ApiKey " + p.apiKey,
	})
	if err != nil {
		return nil, err
	}
	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		return nil, newStatusError(p.tribunal, resp)
	}

	data, err := httpclient.DecodeJSON(resp)
	if err != nil {
		return nil, err
	}

	sources, err := p.evaluator.EvaluateSlice(hitsExpression, data)
	if err != nil {
		return nil, err
	}
	if total, err := p.evaluator.EvaluateInt(totalExpression, data); err == nil {
		span.SetAttributes(attribute.Int("datajud.hits_total", total))
	}
	if len(sources) == 0 {
		return nil, nil
	}

	hits := make([]CaseRecord, 0, len(sources))
	for _, source := range sources {
		record, err := decodeRecord(source)
		if err != nil {
			return nil, fmt.Errorf("datajud %s: %w", p.tribunal, err)
		}
		hits = append(hits, record)
	}

	if len(hits) > 1 {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"tribunal": p.tribunal,
			"hits":     len(hits),
		}).Debug("Merging DataJud instances")
	}

	return mergeHits(hits), nil
}

func decodeRecord(source any) (CaseRecord, error) {
	var record CaseRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &record,
	})
	if err != nil {
		return record, err
	}
	if err := decoder.Decode(source); err != nil {
		return record, fmt.Errorf("failed to decode hit: %w", err)
	}
	return record, nil
}
