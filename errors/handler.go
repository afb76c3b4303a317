package errors

import (
	"context"
	"fmt"
)

// Option modifies a HelixError during construction via a handler's Wrap.
type Option func(*HelixError)

func WithSeverityOption(s Severity) Option {
	return func(e *HelixError) { e.Severity = s }
}

func WithClassOption(c ErrorClass) Option {
	return func(e *HelixError) { e.Class = c }
}

func WithContextOption(key string, value interface{}) Option {
	return func(e *HelixError) { e.WithContext(key, value) }
}

// RecoveryAction names how a caller should respond to an error.
type RecoveryAction string

const (
	RecoveryActionNone     RecoveryAction = "NONE"
	RecoveryActionRetry    RecoveryAction = "RETRY"
	RecoveryActionFallback RecoveryAction = "FALLBACK"
	RecoveryActionAbort    RecoveryAction = "ABORT"
	RecoveryActionLog      RecoveryAction = "LOG"
)

// RecoveryStrategy is the recommended response to an error.
type RecoveryStrategy struct {
	Action      RecoveryAction `json:"action"`
	Message     string         `json:"message"`
	RetryCount  int            `json:"retry_count"`
	RetryDelay  string         `json:"retry_delay"`
	ShouldRetry bool           `json:"should_retry"`
}

// Handler processes and classifies errors raised anywhere in the
// pipeline.
type Handler interface {
	Handle(ctx context.Context, err error) error
	Recover(ctx context.Context, err error) (RecoveryStrategy, error)
	Wrap(ctx context.Context, err error, class ErrorClass, code, message string, opts ...Option) *HelixError
}

// RecoveryPolicy configures DefaultHandler's response to one ErrorClass.
type RecoveryPolicy struct {
	MaxRetries    int
	RetryDelay    string
	DefaultAction RecoveryAction
}

// DefaultHandler is the default Handler, with one RecoveryPolicy per
// ErrorClass reflecting how recoverable each pipeline stage's failures
// typically are: IO and timeouts are worth retrying, a malformed binary
// artifact or a configuration mistake is not.
type DefaultHandler struct {
	policies map[ErrorClass]RecoveryPolicy
}

func NewDefaultHandler() *DefaultHandler {
	return &DefaultHandler{
		policies: map[ErrorClass]RecoveryPolicy{
			ErrorClassLex:           {MaxRetries: 0, RetryDelay: "0s", DefaultAction: RecoveryActionLog},
			ErrorClassParse:         {MaxRetries: 0, RetryDelay: "0s", DefaultAction: RecoveryActionLog},
			ErrorClassSemantic:      {MaxRetries: 0, RetryDelay: "0s", DefaultAction: RecoveryActionLog},
			ErrorClassEvaluation:    {MaxRetries: 1, RetryDelay: "1s", DefaultAction: RecoveryActionRetry},
			ErrorClassCodegen:       {MaxRetries: 0, RetryDelay: "0s", DefaultAction: RecoveryActionAbort},
			ErrorClassBinaryFormat:  {MaxRetries: 0, RetryDelay: "0s", DefaultAction: RecoveryActionAbort},
			ErrorClassIO:            {MaxRetries: 3, RetryDelay: "1s", DefaultAction: RecoveryActionRetry},
			ErrorClassTimeout:       {MaxRetries: 2, RetryDelay: "2s", DefaultAction: RecoveryActionRetry},
			ErrorClassConfiguration: {MaxRetries: 0, RetryDelay: "0s", DefaultAction: RecoveryActionLog},
		},
	}
}

func (h *DefaultHandler) Handle(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*HelixError); ok {
		return e
	}
	e := NewIOError("E-WRAPPED", err.Error())
	e.WithStackTrace()
	e.Wrap(err)
	return e
}

func (h *DefaultHandler) Recover(ctx context.Context, err error) (RecoveryStrategy, error) {
	e, ok := err.(*HelixError)
	if !ok {
		e = NewIOError("E-WRAPPED", err.Error())
	}

	policy, ok := h.policies[e.Class]
	if !ok {
		policy = RecoveryPolicy{DefaultAction: RecoveryActionLog}
	}

	return RecoveryStrategy{
		Action:      policy.DefaultAction,
		Message:     fmt.Sprintf("recovery strategy for %s error: %s", e.Class, e.Message),
		RetryCount:  policy.MaxRetries,
		RetryDelay:  policy.RetryDelay,
		ShouldRetry: policy.MaxRetries > 0,
	}, nil
}

func (h *DefaultHandler) Wrap(ctx context.Context, err error, class ErrorClass, code, message string, opts ...Option) *HelixError {
	if err == nil {
		return nil
	}
	e := newError(class, SeverityError, code, message)
	e.Wrap(err)
	for _, opt := range opts {
		opt(e)
	}
	if ctx != nil {
		for _, key := range []string{"request_id", "file_id", "trace_id"} {
			if v := ctx.Value(key); v != nil {
				e.WithContext(key, v)
			}
		}
	}
	return e
}

// HandlerRegistry maps a component name (e.g. "parser", "binary") to the
// Handler responsible for its errors, falling back to a default.
type HandlerRegistry struct {
	handlers map[string]Handler
	def      Handler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler), def: NewDefaultHandler()}
}

func (r *HandlerRegistry) Register(component string, h Handler) {
	r.handlers[component] = h
}

func (r *HandlerRegistry) Get(component string) Handler {
	if h, ok := r.handlers[component]; ok {
		return h
	}
	return r.def
}

func (r *HandlerRegistry) Handle(ctx context.Context, component string, err error) error {
	return r.Get(component).Handle(ctx, err)
}

func (r *HandlerRegistry) Recover(ctx context.Context, component string, err error) (RecoveryStrategy, error) {
	return r.Get(component).Recover(ctx, err)
}

func (r *HandlerRegistry) Wrap(ctx context.Context, component string, err error, class ErrorClass, code, message string, opts ...Option) *HelixError {
	return r.Get(component).Wrap(ctx, err, class, code, message, opts...)
}
