package operations

import (
	"time"

	"github.com/avast/retry-go/v4"
)

const defaultMaxAttempts = 10

// ExecuteConfig holds the options of a single ExecuteOperation call.
type ExecuteConfig[IN, DEP any] struct {
	retryConfig RetryConfig[IN, DEP]
	force       bool
}

type ExecuteOption[IN, DEP any] func(*ExecuteConfig[IN, DEP])

func newExecuteConfig[IN, DEP any](opts []ExecuteOption[IN, DEP]) *ExecuteConfig[IN, DEP] {
	cfg := &ExecuteConfig[IN, DEP]{
		retryConfig: RetryConfig[IN, DEP]{Policy: RetryPolicy{MaxAttempts: defaultMaxAttempts}},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// RetryConfig controls retries of a failed operation.
type RetryConfig[IN, DEP any] struct {
	Enabled bool
	Policy  RetryPolicy
	// InputHook, when set, replaces the input before each retry, e.g. to raise a gas limit.
	InputHook func(attempt uint, err error, input IN, deps DEP) IN
}

// RetryPolicy bounds the retries.
type RetryPolicy struct {
	MaxAttempts uint
	// Delay is the base backoff delay. Zero keeps the retry-go default.
	Delay time.Duration
}

func (p RetryPolicy) options() []retry.Option {
	opts := []retry.Option{retry.Attempts(p.MaxAttempts)}
	if p.Delay > 0 {
		opts = append(opts, retry.Delay(p.Delay))
	}

	return opts
}

// WithRetry retries a failed operation with the default policy.
func WithRetry[IN, DEP any]() ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig.Enabled = true
	}
}

// WithRetryInput retries with the default policy, passing the input through hook before each
// retry.
func WithRetryInput[IN, DEP any](hook func(uint, error, IN, DEP) IN) ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig.Enabled = true
		c.retryConfig.InputHook = hook
	}
}

// WithRetryConfig replaces the retry configuration.
func WithRetryConfig[IN, DEP any](config RetryConfig[IN, DEP]) ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig = config
	}
}

// WithForceExecute runs the operation even if an identical successful run was already reported.
func WithForceExecute[IN, DEP any]() ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.force = true
	}
}

// NewUnrecoverableError wraps err so that no further retries are attempted.
func NewUnrecoverableError(err error) error {
	return retry.Unrecoverable(err)
}
