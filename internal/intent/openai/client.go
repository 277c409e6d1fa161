// Package openai 通过 OpenAI Chat Completions API 实现意图解析。
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/africanwebguy/erpassist/internal/action"
	"github.com/africanwebguy/erpassist/internal/intent"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModelName = "gpt-4o"
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 4000
)

// Config 描述调用 OpenAI Chat Completions API 所需的信息。
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Client 通过 HTTP 调用 OpenAI，把可用动作以函数定义的形式提供给模型。
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewClient 根据配置创建 OpenAI 客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 OpenAI API Key")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Resolve 调用模型，返回文本回复或动作调用建议。
func (c *Client) Resolve(ctx context.Context, req intent.Request) (*intent.Resolution, error) {
	payload, err := c.buildPayload(req)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建 OpenAI 请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求 OpenAI 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("OpenAI 返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content      string `json:"content"`
				FunctionCall *struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function_call"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("解析 OpenAI 响应失败: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("OpenAI 响应中没有有效的 choices")
	}

	message := decoded.Choices[0].Message
	if message.FunctionCall != nil {
		arguments := map[string]any{}
		// 参数解析失败时按空参数处理，由后续校验环节兜底。
		if raw := strings.TrimSpace(message.FunctionCall.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &arguments); err != nil {
				arguments = map[string]any{}
			}
		}
		return &intent.Resolution{
			Kind:       intent.KindActionCall,
			ActionName: strings.TrimSpace(message.FunctionCall.Name),
			Arguments:  arguments,
		}, nil
	}

	content := strings.TrimSpace(message.Content)
	if content == "" {
		return nil, errors.New("OpenAI 响应内容为空")
	}
	return &intent.Resolution{Kind: intent.KindText, Content: content}, nil
}

func (c *Client) buildPayload(req intent.Request) ([]byte, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	messages := make([]message, 0, len(req.History)+2)
	messages = append(messages, message{Role: "system", Content: buildSystemPrompt(req)})
	for _, entry := range req.History {
		messages = append(messages, message{Role: string(entry.Role), Content: entry.Content})
	}
	messages = append(messages, message{Role: "user", Content: req.Message})

	body := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"max_tokens":  c.maxTokens,
		"temperature": 0.7,
	}
	if functions := buildFunctionDefinitions(req.Actions); len(functions) > 0 {
		body["functions"] = functions
		body["function_call"] = "auto"
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("序列化 OpenAI 请求失败: %w", err)
	}
	return encoded, nil
}

func buildSystemPrompt(req intent.Request) string {
	var builder strings.Builder
	builder.WriteString("You are ERPAssist, an AI assistant for business data. You help users with their ERP tasks.\n\n")
	builder.WriteString("Current User Roles: ")
	builder.WriteString(strings.Join(req.User.Roles, ", "))
	builder.WriteString("\n\nIMPORTANT RULES:\n")
	builder.WriteString("1. NEVER guess or hallucinate data. Only use data from the system via the available functions.\n")
	builder.WriteString("2. Always respect user permissions. You can only perform actions the user has permission for.\n")
	builder.WriteString("3. For financial actions (POST) and payroll (EXECUTE_PAYROLL), always ask for explicit confirmation.\n")
	builder.WriteString("4. Be concise and professional in your responses.\n")
	builder.WriteString("5. When showing data, format it clearly with tables when appropriate.\n")

	if len(req.Actions) > 0 {
		builder.WriteString("\nAVAILABLE ACTIONS:\n")
		for _, act := range req.Actions {
			builder.WriteString(fmt.Sprintf("- %s: %s (Category: %s, Module: %s)\n",
				act.Name, act.Description, act.Category, act.Module))
		}
	}

	builder.WriteString("\nWhen a user asks about data, use the appropriate query function. ")
	builder.WriteString("When they want to create or modify something, use the appropriate action function. ")
	builder.WriteString("Always explain what you're going to do before calling a function that requires confirmation.")
	return builder.String()
}

func buildFunctionDefinitions(actions []action.Action) []map[string]any {
	if len(actions) == 0 {
		return nil
	}
	functions := make([]map[string]any, 0, len(actions))
	for _, act := range actions {
		parameters := map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		}
		if len(act.Parameters) > 0 {
			var declared map[string]any
			if err := json.Unmarshal(act.Parameters, &declared); err == nil && len(declared) > 0 {
				parameters = declared
			}
		}
		functions = append(functions, map[string]any{
			"name":        act.Name,
			"description": act.Description,
			"parameters":  parameters,
		})
	}
	return functions
}

var _ intent.Resolver = (*Client)(nil)
