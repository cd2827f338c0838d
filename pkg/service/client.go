package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"esghandlers/pkg/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ValidationResult is the decoded ValidateFile response.
type ValidationResult struct {
	RequestID string
	Valid     bool
	Kind      string
	Message   string
}

// Client calls a remote Validator service. Calls failing with a transient
// status are retried with exponential backoff.
type Client struct {
	cc grpc.ClientConnInterface

	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	jitterFactor float64
}

// NewClient returns a client over cc that retries transient failures up
// to three times.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{
		cc:           cc,
		maxRetries:   3,
		baseDelay:    100 * time.Millisecond,
		maxDelay:     5 * time.Second,
		jitterFactor: 0.2,
	}
}

// ConfigureRetry sets the retry policy. maxRetries of 0 disables retries.
func (c *Client) ConfigureRetry(maxRetries int, baseDelay, maxDelay time.Duration) {
	c.maxRetries = maxRetries
	c.baseDelay = baseDelay
	c.maxDelay = maxDelay
}

func (c *Client) invoke(ctx context.Context, method string, req, resp *structpb.Struct) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = c.cc.Invoke(ctx, method, req, resp)
		if err == nil || !isRetryable(err) || attempt >= c.maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}

	delay += delay * c.jitterFactor * (2*rand.Float64() - 1)
	if delay < 0 {
		delay = float64(c.baseDelay)
	}
	return time.Duration(delay)
}

// isRetryable reports whether err is a transient transport failure. Handler
// rejections and bad requests are final.
func isRetryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

// ValidateFile validates a file described by its global attributes.
func (c *Client) ValidateFile(ctx context.Context, project, path string, attrs types.Attributes) (*ValidationResult, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"project":    project,
		"path":       path,
		"attributes": toMap(attrs),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp := new(structpb.Struct)
	if err := c.invoke(ctx, validateFileMethod, req, resp); err != nil {
		return nil, err
	}

	return &ValidationResult{
		RequestID: stringField(resp, "request_id"),
		Valid:     resp.GetFields()["valid"].GetBoolValue(),
		Kind:      stringField(resp, "kind"),
		Message:   stringField(resp, "message"),
	}, nil
}

// GetContext reads the dataset context of a sample file, keeping the fields
// already set in initial.
func (c *Client) GetContext(ctx context.Context, project, path string, attrs types.Attributes, initial types.Context) (types.Context, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"project":    project,
		"path":       path,
		"attributes": toMap(attrs),
		"initial":    toMap(initial),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp := new(structpb.Struct)
	if err := c.invoke(ctx, getContextMethod, req, resp); err != nil {
		return nil, err
	}

	return types.Context(attributesField(resp, "context")), nil
}

func toMap[M ~map[string]string](m M) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
