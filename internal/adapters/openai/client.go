package openai

import (
    "context"
    "errors"
    "strings"

    "github.com/openai/openai-go"
    "github.com/openai/openai-go/option"
    "github.com/rs/zerolog"

    "github.com/michal-palko/smart-claimer/internal/config"
)

// ChatMessage is one turn of a forwarded conversation.
type ChatMessage struct {
    Role    string `json:"role"`
    Content string `json:"content"`
}

// ChatRequest is the client-facing proxy payload. Model, max_tokens and
// temperature fall back to configured defaults when omitted.
type ChatRequest struct {
    Model       string        `json:"model"`
    Messages    []ChatMessage `json:"messages"`
    MaxTokens   *int64        `json:"max_tokens"`
    Temperature *float64      `json:"temperature"`
}

type Client struct {
    api       openai.Client
    key       string
    model     string
    maxTokens int64
    temp      float64
    log       zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        api:       openai.NewClient(option.WithAPIKey(cfg.OpenAIKey), option.WithRequestTimeout(cfg.OpenAITimeout)),
        key:       cfg.OpenAIKey,
        model:     cfg.OpenAIModel,
        maxTokens: int64(cfg.OpenAIMaxTokens),
        temp:      cfg.OpenAITemperature,
        log:       log,
    }
}

var ErrNotConfigured = errors.New("openai: missing key")

// Chat forwards a conversation to the completions API on behalf of the
// browser, so the key never leaves the server.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*openai.ChatCompletion, error) {
    if strings.TrimSpace(c.key) == "" { return nil, ErrNotConfigured }
    if len(req.Messages) == 0 { return nil, errors.New("openai: no messages") }

    model := req.Model
    if model == "" { model = c.model }
    maxTokens := c.maxTokens
    if req.MaxTokens != nil { maxTokens = *req.MaxTokens }
    temp := c.temp
    if req.Temperature != nil { temp = *req.Temperature }

    messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
    for _, m := range req.Messages {
        switch m.Role {
        case "system":
            messages = append(messages, openai.SystemMessage(m.Content))
        case "assistant":
            messages = append(messages, openai.AssistantMessage(m.Content))
        default:
            messages = append(messages, openai.UserMessage(m.Content))
        }
    }

    resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
        Model:               model,
        Messages:            messages,
        MaxCompletionTokens: openai.Int(maxTokens),
        Temperature:         openai.Float(temp),
    })
    if err != nil { return nil, err }
    if len(resp.Choices) == 0 { return nil, errors.New("openai: no choices") }
    return resp, nil
}
