package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// OracleSuggestion is the model's proposal: a price it read off the page
// and a selector that should resolve to the element holding it.
type OracleSuggestion struct {
	Price        string `json:"price"`
	SelectorType string `json:"selectorType"`
	Selector     string `json:"selector"`
}

// PriceExtractionOracle proposes a price and selector for a cleaned page.
// The fallback extractor verifies whatever comes back before trusting it.
type PriceExtractionOracle interface {
	ExtractPrice(ctx context.Context, cleanedHTML string) (*OracleSuggestion, error)
}

const oracleSystemPrompt = "You are an expert in web scraping and HTML analysis. " +
	"Your task is to identify product prices and create reliable selectors for them."

const oracleUserPrompt = "Analyze this HTML and identify the product price. " +
	"Return the price and how to select the element. Use the most reliable " +
	"option for this case (xpath or css selector). Return a JSON with: " +
	`price (string), selectorType (string: "xpath" or "css"), and selector (string).`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// OpenAIOracle asks the chat-completions endpoint for a price and selector,
// forcing a JSON object response.
type OpenAIOracle struct {
	client *resty.Client
	model  string
}

func NewOpenAIOracle(apiKey, model string, timeout time.Duration) *OpenAIOracle {
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := resty.New().
		SetBaseURL("https://api.openai.com/v1").
		SetAuthToken(apiKey).
		SetTimeout(timeout)
	return &OpenAIOracle{client: client, model: model}
}

func (o *OpenAIOracle) ExtractPrice(ctx context.Context, cleanedHTML string) (*OracleSuggestion, error) {
	req := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: oracleSystemPrompt},
			{Role: "user", Content: oracleUserPrompt},
			{Role: "user", Content: cleanedHTML},
		},
	}
	req.ResponseFormat.Type = "json_object"

	var decoded chatResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&decoded).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to call extraction endpoint: %v", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("extraction endpoint returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("extraction endpoint returned no choices")
	}
	log.Printf("extraction oracle usage: %d tokens", decoded.Usage.TotalTokens)

	var suggestion OracleSuggestion
	if err := json.Unmarshal([]byte(decoded.Choices[0].Message.Content), &suggestion); err != nil {
		return nil, fmt.Errorf("failed to decode oracle suggestion: %v", err)
	}
	return &suggestion, nil
}
