package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/passtheaux/internal/shared"
)

const (
	cohereBaseURL      = "https://api.cohere.com"
	cohereDefaultModel = "command-r-plus-08-2024"
)

type cohereChatRequest struct {
	Model    string `json:"model"`
	Message  string `json:"message"`
	Preamble string `json:"preamble,omitempty"`
}

type cohereChatResponse struct {
	Text         *string `json:"text"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// CohereService implements [TextGenerator] with the Cohere chat endpoint.
type CohereService struct {
	apiKey string
	model  string
	client *apiClient
}

// NewCohereService creates a Cohere client; model defaults to command-r-plus.
func NewCohereService(apiKey, model string, opts Options) (*CohereService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: cohere api key", shared.ErrMissingCredentials)
	}
	if model == "" {
		model = cohereDefaultModel
	}
	return &CohereService{apiKey: apiKey, model: model, client: newAPIClient("cohere", cohereBaseURL, opts)}, nil
}

// Name implements [TextGenerator].
func (s *CohereService) Name() string { return "cohere" }

// Generate implements [TextGenerator].
//
// An empty reply is returned as-is; deciding whether it is usable is up to the caller.
func (s *CohereService) Generate(ctx context.Context, preamble, message string) (string, error) {
	const op = "cohere.chat"

	payload := cohereChatRequest{Model: s.model, Message: message, Preamble: preamble}
	req, err := s.client.newRequest(ctx, http.MethodPost, "/v1/chat", payload)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	var resp cohereChatResponse
	if err := s.client.doJSON(op, req, &resp); err != nil {
		return "", err
	}
	if resp.Text == nil {
		return "", malformed(op, "response has no text field")
	}
	return *resp.Text, nil
}
