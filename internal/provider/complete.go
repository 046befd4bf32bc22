package provider

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/schema"

	"github.com/relaycode/relay/internal/logging"
	"github.com/relaycode/relay/pkg/types"
)

// StopReason classifies how a one-shot completion ended.
type StopReason string

const (
	// StopEnd is a normal completion.
	StopEnd StopReason = "stop"
	// StopAborted means the caller's context was cancelled mid-call.
	StopAborted StopReason = "aborted"
	// StopError covers provider and transport failures.
	StopError StopReason = "error"
)

// CompleteRequest is a single non-streaming completion: one system prompt
// and a message list, no tools.
type CompleteRequest struct {
	SystemPrompt string
	Messages     []*schema.Message
	MaxTokens    int
}

// CompleteOptions carries per-call credentials.
type CompleteOptions struct {
	APIKey string
}

// CompleteResponse is the normalized outcome. Callers branch on StopReason;
// ErrorMessage may be empty even when StopReason is StopError.
type CompleteResponse struct {
	Text         string
	StopReason   StopReason
	ErrorMessage string
}

// completeRetryInterval bounds the backoff between transient-failure
// retries of a one-shot call.
const (
	completeRetryInterval = 500 * time.Millisecond
	completeMaxElapsed    = 30 * time.Second
)

// Complete executes one non-streaming completion against the given model.
// Provider-level failures are folded into the response's StopReason rather
// than returned as errors; only an unknown provider or model is an error.
func (r *Registry) Complete(ctx context.Context, ref types.ModelRef, req *CompleteRequest, opts *CompleteOptions) (*CompleteResponse, error) {
	prov, err := r.Get(ref.ProviderID)
	if err != nil {
		return nil, err
	}
	if _, err := r.GetModel(ref.ProviderID, ref.ModelID); err != nil {
		return nil, err
	}

	messages := make([]*schema.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, &schema.Message{Role: schema.System, Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = completeRetryInterval
	b.MaxElapsedTime = completeMaxElapsed
	retry := backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx)

	var result *schema.Message
	var callErr error
	for {
		result, callErr = prov.ChatModel().Generate(ctx, messages)
		if callErr == nil {
			break
		}
		if ctx.Err() != nil {
			return &CompleteResponse{StopReason: StopAborted}, nil
		}
		next := retry.NextBackOff()
		if next == backoff.Stop {
			logging.Warn().Err(callErr).Str("provider", ref.ProviderID).Msg("completion failed")
			return &CompleteResponse{StopReason: StopError, ErrorMessage: callErr.Error()}, nil
		}
		time.Sleep(next)
	}

	if ctx.Err() != nil {
		return &CompleteResponse{StopReason: StopAborted}, nil
	}

	text := strings.TrimRight(result.Content, "\n")
	return &CompleteResponse{Text: text, StopReason: StopEnd}, nil
}

// ErrNoAPIKey is returned when no credential can be resolved for a model's
// provider.
var ErrNoAPIKey = errors.New("no api key configured")

// GetAPIKey resolves the credential for a model's provider: explicit config
// first, then the provider's conventional environment variable.
func (r *Registry) GetAPIKey(ref types.ModelRef) (string, error) {
	if r.config != nil {
		if cfg, ok := r.config.Provider[ref.ProviderID]; ok && cfg.Options != nil && cfg.Options.APIKey != "" {
			return cfg.Options.APIKey, nil
		}
	}

	var env string
	switch ref.ProviderID {
	case "anthropic", "claude":
		env = "ANTHROPIC_API_KEY"
	case "openai":
		env = "OPENAI_API_KEY"
	case "ark":
		env = "ARK_API_KEY"
	default:
		env = strings.ToUpper(ref.ProviderID) + "_API_KEY"
	}
	if key := os.Getenv(env); key != "" {
		return key, nil
	}
	return "", ErrNoAPIKey
}
