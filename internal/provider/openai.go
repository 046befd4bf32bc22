package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/relaycode/relay/pkg/types"
)

// OpenAIProvider implements Provider for OpenAI models.
type OpenAIProvider struct {
	chatModel model.ToolCallingChatModel
	models    []types.Model
	config    *OpenAIConfig
}

// OpenAIConfig holds configuration for OpenAI provider.
type OpenAIConfig struct {
	// ID is the provider identifier (e.g., "openai", "qwen", "ollama")
	// If empty, defaults to "openai"
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int

	// Azure configuration
	UseAzure   bool
	APIVersion string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(ctx context.Context, config *OpenAIConfig) (*OpenAIProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		if config.UseAzure {
			apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
		} else {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	modelID := config.Model
	if modelID == "" {
		modelID = os.Getenv("OPENAI_MODEL_ID")
	}
	if modelID == "" {
		modelID = "gpt-4o"
	}

	cfg := &openai.ChatModelConfig{
		APIKey:              apiKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens, // Use MaxCompletionTokens for GPT-5 compatibility
	}

	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	if config.UseAzure {
		cfg.ByAzure = true
		if config.APIVersion != "" {
			cfg.APIVersion = config.APIVersion
		} else {
			cfg.APIVersion = "2024-02-15-preview"
		}
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}

	return &OpenAIProvider{
		chatModel: chatModel,
		models:    openAIModels(),
		config:    config,
	}, nil
}

// ID returns the provider identifier.
func (p *OpenAIProvider) ID() string {
	if p.config.ID != "" {
		return p.config.ID
	}
	return "openai"
}

// Name returns the human-readable provider name.
func (p *OpenAIProvider) Name() string { return "OpenAI" }

// Models returns the list of available models.
func (p *OpenAIProvider) Models() []types.Model {
	return p.models
}

// ChatModel returns the Eino ChatModel.
func (p *OpenAIProvider) ChatModel() model.ToolCallingChatModel {
	return p.chatModel
}

// CreateCompletion creates a streaming completion. GPT-5 models require
// max_completion_tokens instead of max_tokens.
func (p *OpenAIProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	opts := []model.Option{
		openai.WithMaxCompletionTokens(req.MaxTokens),
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	return streamCompletion(ctx, p.chatModel, req, opts...)
}

// openAIModels returns the OpenAI model catalog.
func openAIModels() []types.Model {
	return buildCatalog("openai", []modelSpec{
		// GPT-5 family (newest)
		{id: "gpt-5", name: "GPT-5", context: 272000, output: 128000,
			inPrice: 1.25, outPrice: 10.0, vision: true, reasoning: true},
		{id: "gpt-5-mini", name: "GPT-5 Mini", context: 272000, output: 128000,
			inPrice: 0.25, outPrice: 2.0, vision: true, reasoning: true},
		{id: "gpt-5-nano", name: "GPT-5 Nano", context: 272000, output: 128000,
			inPrice: 0.05, outPrice: 0.4, vision: true},
		// GPT-4o family
		{id: "gpt-4o", name: "GPT-4o", context: 128000, output: 16384,
			inPrice: 2.5, outPrice: 10.0, vision: true},
		{id: "gpt-4o-mini", name: "GPT-4o Mini", context: 128000, output: 16384,
			inPrice: 0.15, outPrice: 0.6, vision: true},
		// O1 family
		{id: "o1", name: "O1", context: 200000, output: 100000,
			inPrice: 15.0, outPrice: 60.0, reasoning: true},
		{id: "o1-mini", name: "O1 Mini", context: 128000, output: 65536,
			inPrice: 1.1, outPrice: 4.4, reasoning: true},
	})
}
