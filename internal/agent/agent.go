// Package agent runs a tool-calling chat model against any OpenAI-compatible
// chat completions endpoint (OpenAI, Groq, local gateways).
package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
)

const (
	DefaultMaxTurns = 8
)

// ErrMaxTurnsExceeded is returned when the model keeps calling tools past
// the turn budget.
var ErrMaxTurnsExceeded = errors.New("agent exceeded maximum turns")

// reasoning models (deepseek-r1) prefix their answer with a think block
var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Agent is a named model configuration with instructions and tools. It is
// built once at startup and is safe for concurrent use.
type Agent struct {
	name         string
	instructions string
	model        string
	tools        []FunctionTool
	toolIndex    map[string]FunctionTool
	maxTurns     int
	client       openai.Client
	logger       *common.Logger
}

// Option configures the agent
type Option func(*agentConfig)

type agentConfig struct {
	baseURL  string
	apiKey   string
	name     string
	maxTurns int
	tools    []FunctionTool
	logger   *common.Logger
	reqOpts  []option.RequestOption
}

// WithBaseURL sets the chat completions base URL
func WithBaseURL(baseURL string) Option {
	return func(c *agentConfig) {
		c.baseURL = baseURL
	}
}

// WithAPIKey sets the API key
func WithAPIKey(apiKey string) Option {
	return func(c *agentConfig) {
		c.apiKey = apiKey
	}
}

// WithName sets the agent name used in logs
func WithName(name string) Option {
	return func(c *agentConfig) {
		c.name = name
	}
}

// WithMaxTurns caps the number of model calls per run
func WithMaxTurns(n int) Option {
	return func(c *agentConfig) {
		if n > 0 {
			c.maxTurns = n
		}
	}
}

// WithTools registers tools the model may call
func WithTools(tools ...FunctionTool) Option {
	return func(c *agentConfig) {
		c.tools = append(c.tools, tools...)
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) Option {
	return func(c *agentConfig) {
		c.logger = logger
	}
}

// WithRequestOptions passes extra options to the underlying client
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(c *agentConfig) {
		c.reqOpts = append(c.reqOpts, opts...)
	}
}

// New creates an agent for model with the given system instructions
func New(model, instructions string, opts ...Option) (*Agent, error) {
	cfg := &agentConfig{
		name:     "analyst",
		maxTurns: DefaultMaxTurns,
		logger:   common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if model == "" {
		return nil, fmt.Errorf("agent model is required")
	}

	index := make(map[string]FunctionTool, len(cfg.tools))
	for _, t := range cfg.tools {
		if _, dup := index[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name: %s", t.Name)
		}
		index[t.Name] = t
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.apiKey)}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	clientOpts = append(clientOpts, cfg.reqOpts...)

	return &Agent{
		name:         cfg.name,
		instructions: instructions,
		model:        model,
		tools:        cfg.tools,
		toolIndex:    index,
		maxTurns:     cfg.maxTurns,
		client:       openai.NewClient(clientOpts...),
		logger:       cfg.logger,
	}, nil
}

// Name returns the agent name
func (a *Agent) Name() string {
	return a.name
}

// Model returns the model name
func (a *Agent) Model() string {
	return a.model
}

// Tools returns the names of the registered tools
func (a *Agent) Tools() []string {
	names := make([]string, len(a.tools))
	for i, t := range a.tools {
		names[i] = t.Name
	}
	return names
}

// Analyze runs the agent on prompt and returns the final assistant text.
// Each tool call is executed and its output fed back until the model
// answers without calling tools or the turn budget runs out.
func (a *Agent) Analyze(ctx context.Context, prompt string, temperature float64) (*models.AgentResponse, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if a.instructions != "" {
		messages = append(messages, openai.SystemMessage(a.instructions))
	}
	messages = append(messages, openai.UserMessage(prompt))

	tools := a.toolParams()

	for turn := 1; turn <= a.maxTurns; turn++ {
		params := openai.ChatCompletionNewParams{
			Model:       openai.ChatModel(a.model),
			Messages:    messages,
			Temperature: openai.Float(temperature),
		}
		if len(tools) > 0 {
			params.Tools = tools
		}

		a.logger.Debug().Str("agent", a.name).Int("turn", turn).Int("messages", len(messages)).Msg("Agent model call")

		completion, err := a.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("agent %s model call failed: %w", a.name, err)
		}
		if len(completion.Choices) == 0 {
			return nil, fmt.Errorf("agent %s: model returned no choices", a.name)
		}

		msg := completion.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			content := strings.TrimSpace(thinkBlock.ReplaceAllString(msg.Content, ""))
			a.logger.Debug().Str("agent", a.name).Int("turns", turn).Int("length", len(content)).Msg("Agent finished")
			return &models.AgentResponse{Content: content}, nil
		}

		messages = append(messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			output := a.invokeTool(ctx, call.Function.Name, call.Function.Arguments)
			messages = append(messages, openai.ToolMessage(output, call.ID))
		}
	}

	return nil, fmt.Errorf("%w (%d)", ErrMaxTurnsExceeded, a.maxTurns)
}

// invokeTool runs a tool and returns its output. Failures are reported to
// the model as text so it can continue without the data.
func (a *Agent) invokeTool(ctx context.Context, name, arguments string) string {
	tool, ok := a.toolIndex[name]
	if !ok {
		a.logger.Warn().Str("agent", a.name).Str("tool", name).Msg("Model called unknown tool")
		return fmt.Sprintf("error: unknown tool %q", name)
	}

	a.logger.Debug().Str("agent", a.name).Str("tool", name).Str("arguments", arguments).Msg("Invoking tool")

	out, err := tool.Invoke(ctx, arguments)
	if err != nil {
		a.logger.Warn().Err(err).Str("agent", a.name).Str("tool", name).Msg("Tool call failed")
		return fmt.Sprintf("error: %s failed: %v", name, err)
	}
	return out
}

func (a *Agent) toolParams() []openai.ChatCompletionToolUnionParam {
	params := make([]openai.ChatCompletionToolUnionParam, 0, len(a.tools))
	for _, t := range a.tools {
		def := openai.FunctionDefinitionParam{
			Name:       t.Name,
			Parameters: openai.FunctionParameters(t.ParamsJSONSchema),
		}
		if t.Description != "" {
			def.Description = openai.String(t.Description)
		}
		params = append(params, openai.ChatCompletionFunctionTool(def))
	}
	return params
}

// Ensure Agent implements Analyst
var _ interfaces.Analyst = (*Agent)(nil)
