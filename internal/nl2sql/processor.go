package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tickerql/tickerql/internal/observability"
	"github.com/tickerql/tickerql/internal/query"
)

const (
	DefaultModel    ModelID = "google/gemini-2.0-flash-001"
	DefaultCallerID         = "system"
)

type QueryExecutor interface {
	Execute(ctx context.Context, sql string) (query.Result, error)
}

// RetryPolicy applies to completion calls that fail with
// ErrServiceUnavailable. MaxAttempts counts the first call.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

type state string

const (
	statePromptBuilt         state = "prompt_built"
	stateCompletionRequested state = "completion_requested"
	stateQueryExtracted      state = "query_extracted"
	stateExecuted            state = "executed"
	stateSucceeded           state = "succeeded"
	stateFailed              state = "failed"
)

type Option func(*Processor)

func WithDescriptor(desc Descriptor) Option {
	return func(p *Processor) { p.descriptor = desc }
}

func WithModel(model ModelID) Option {
	return func(p *Processor) {
		if model != "" {
			p.model = model
		}
	}
}

func WithTemperature(temperature float64) Option {
	return func(p *Processor) { p.temperature = temperature }
}

// WithDefaultCallerID sets the caller id used when the context carries none.
func WithDefaultCallerID(callerID string) Option {
	return func(p *Processor) {
		if callerID != "" {
			p.callerID = callerID
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithRetry(policy RetryPolicy) Option {
	return func(p *Processor) { p.retry = policy }
}

func WithReadOnly(enabled bool) Option {
	return func(p *Processor) { p.readOnly = enabled }
}

func WithExtractOptions(opts ExtractOptions) Option {
	return func(p *Processor) { p.extract = opts }
}

// WithTimeout bounds a whole ProcessNaturalLanguageQuery call. Zero means
// no deadline beyond the caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Processor) { p.timeout = timeout }
}

// Processor turns a question into SQL through a completion service and runs
// it. It keeps no per-call state and is safe for concurrent use.
type Processor struct {
	completion  CompletionClient
	executor    QueryExecutor
	descriptor  Descriptor
	model       ModelID
	temperature float64
	callerID    string
	logger      *slog.Logger
	retry       RetryPolicy
	readOnly    bool
	extract     ExtractOptions
	timeout     time.Duration
}

func NewProcessor(completion CompletionClient, executor QueryExecutor, opts ...Option) (*Processor, error) {
	if completion == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("query executor is required")
	}
	p := &Processor{
		completion:  completion,
		executor:    executor,
		descriptor:  DefaultDescriptor(),
		model:       DefaultModel,
		temperature: 1,
		callerID:    DefaultCallerID,
		logger:      observability.DiscardLogger(),
		retry:       RetryPolicy{MaxAttempts: 1},
		readOnly:    true,
		extract:     ExtractOptions{StripFences: true},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.retry.MaxAttempts <= 0 {
		p.retry.MaxAttempts = 1
	}
	return p, nil
}

// Answer is a successful pipeline run: the SQL that was executed and what
// the store returned for it.
type Answer struct {
	SQL    string
	Result query.Result
}

func (p *Processor) ProcessNaturalLanguageQuery(ctx context.Context, question string) (query.Result, error) {
	answer, err := p.Process(ctx, question)
	if err != nil {
		return query.Result{}, err
	}
	return answer.Result, nil
}

// Process runs the pipeline once. On failure the returned error is an
// *Error and no partial result is returned.
func (p *Processor) Process(ctx context.Context, question string) (Answer, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	answer, err := p.process(ctx, question)
	observability.ObserveNLQuery(KindOf(err))
	if err != nil {
		p.transition(ctx, stateFailed, slog.String("reason", KindOf(err)), slog.String("error", err.Error()))
		return Answer{}, err
	}
	p.transition(ctx, stateSucceeded, slog.Int("rows", len(answer.Result.Rows)))
	return answer, nil
}

func (p *Processor) process(ctx context.Context, question string) (Answer, error) {
	prompt := BuildPrompt(p.descriptor, question)
	p.transition(ctx, statePromptBuilt, slog.Int("system_prompt_bytes", len(prompt.System)))

	callerID := p.callerID
	if fromCtx, ok := CallerIDFromContext(ctx); ok {
		callerID = fromCtx
	}
	req := CompletionRequest{
		SystemPrompt: prompt.System,
		Model:        p.model,
		Temperature:  p.temperature,
		Messages:     []Message{prompt.User},
		CallerID:     callerID,
	}
	resp, err := p.complete(ctx, req)
	if err != nil {
		return Answer{}, err
	}
	p.transition(ctx, stateCompletionRequested, slog.Int("choices", len(resp.Choices)))

	sql, err := ExtractWith(resp, p.extract)
	if err != nil {
		return Answer{}, err
	}
	p.transition(ctx, stateQueryExtracted)

	p.logger.InfoContext(ctx, "generated sql",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("caller_id", callerID),
		slog.String("sql", sql),
	)

	if p.readOnly {
		if err := CheckReadOnly(sql); err != nil {
			return Answer{}, newError(ErrQueryExecutionFailed, StageExecution, err)
		}
	}

	start := time.Now()
	result, err := p.executor.Execute(ctx, sql)
	observability.ObserveQueryExecutionLatency(time.Since(start))
	if err != nil {
		return Answer{}, newError(ErrQueryExecutionFailed, StageExecution, err)
	}
	p.transition(ctx, stateExecuted, slog.Int("columns", len(result.Columns)))
	return Answer{SQL: sql, Result: result}, nil
}

func (p *Processor) complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	for attempt := 1; ; attempt++ {
		start := time.Now()
		resp, err := p.completion.Complete(ctx, req)
		observability.ObserveCompletionLatency(time.Since(start))
		if err == nil {
			return resp, nil
		}
		err = classifyCompletionError(err)
		if !errors.Is(err, ErrServiceUnavailable) || attempt >= p.retry.MaxAttempts {
			return CompletionResponse{}, err
		}

		observability.IncrementCompletionRetry()
		backoff := p.retry.Backoff * time.Duration(attempt)
		p.logger.WarnContext(ctx, "completion service unavailable, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
		if err := sleepContext(ctx, backoff); err != nil {
			return CompletionResponse{}, newError(ErrServiceUnavailable, StageCompletion, err)
		}
	}
}

// classifyCompletionError tags errors from clients that do not return an
// *Error themselves. Anything untagged is treated as a transport failure.
func classifyCompletionError(err error) error {
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	switch {
	case errors.Is(err, ErrEmptyCompletion):
		return newError(ErrEmptyCompletion, StageCompletion, err)
	case errors.Is(err, ErrNoQueryGenerated):
		return newError(ErrNoQueryGenerated, StageCompletion, err)
	default:
		return newError(ErrServiceUnavailable, StageCompletion, err)
	}
}

func (p *Processor) transition(ctx context.Context, to state, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("state", string(to)))
	p.logger.LogAttrs(ctx, slog.LevelDebug, "nl2sql state", attrs...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type callerIDKey struct{}

// WithCallerID attaches the identity forwarded to the completion service.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, callerIDKey{}, callerID)
}

func CallerIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(callerIDKey{}).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
