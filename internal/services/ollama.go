package services

import (
	"context"
	"net/http"
)

const (
	ollamaBaseURL      = "http://localhost:11434"
	ollamaDefaultModel = "llama3.1"
)

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message *ollamaMessage `json:"message"`
	Error   string         `json:"error,omitempty"`
}

// OllamaService implements [TextGenerator] against a local Ollama instance.
type OllamaService struct {
	model  string
	client *apiClient
}

// NewOllamaService creates an Ollama client. No key is needed.
func NewOllamaService(model string, opts Options) *OllamaService {
	if model == "" {
		model = ollamaDefaultModel
	}
	return &OllamaService{model: model, client: newAPIClient("ollama", ollamaBaseURL, opts)}
}

// Name implements [TextGenerator].
func (s *OllamaService) Name() string { return "ollama" }

// Generate implements [TextGenerator] with a non-streaming chat call.
func (s *OllamaService) Generate(ctx context.Context, preamble, message string) (string, error) {
	const op = "ollama.chat"

	payload := ollamaChatRequest{
		Model:  s.model,
		Stream: false,
		Messages: []ollamaMessage{
			{Role: "system", Content: preamble},
			{Role: "user", Content: message},
		},
	}
	req, err := s.client.newRequest(ctx, http.MethodPost, "/api/chat", payload)
	if err != nil {
		return "", err
	}

	var resp ollamaChatResponse
	if err := s.client.doJSON(op, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", malformed(op, "%s", resp.Error)
	}
	if resp.Message == nil {
		return "", malformed(op, "response has no message")
	}
	return resp.Message.Content, nil
}
