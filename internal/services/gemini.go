package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Candidate models in order of preference, newest first. Providers rename
// and retire model IDs frequently; unavailable candidates are skipped.
var geminiModels = []string{
	"gemini-2.0-flash-exp",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// ImagePart is one inline image sent alongside the prompt text.
type ImagePart struct {
	MIMEType string
	Data     []byte
}

type generateFunc func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error)

type GeminiService struct {
	client   *genai.Client
	limiter  *RateLimiter
	models   []string
	generate generateFunc
}

func NewGeminiService(apiKey string, limiter *RateLimiter) (*GeminiService, error) {
	s := &GeminiService{
		limiter: limiter,
		models:  geminiModels,
	}

	// An empty key must not prevent startup: the health endpoint reports it
	// as not configured and message sends fail with an auth error instead.
	if apiKey == "" {
		s.generate = func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
			return nil, &ProviderAuthError{Message: "Invalid or missing Gemini API key. Please check your GEMINI_API_KEY configuration."}
		}
		return s, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.client = client
	s.generate = func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		return client.GenerativeModel(modelName).GenerateContent(ctx, parts...)
	}
	return s, nil
}

func (s *GeminiService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// SendMessage sends text with optional inline images and returns the reply.
// One rate-limit slot is consumed up front, then candidate models are tried
// in order. Auth, quota and safety failures abort immediately; an unknown
// or unavailable model advances to the next candidate.
func (s *GeminiService) SendMessage(ctx context.Context, text string, images []ImagePart) (string, error) {
	if waited := s.limiter.Acquire(); waited > 0 {
		log.Printf("Gemini call delayed %.1fs by rate limiting", waited.Seconds())
	}

	// Text first, then images in upload order. Part order affects model
	// output quality and must match what the user sent.
	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(text))
	for _, img := range images {
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
	}

	var lastErr error
	for _, modelName := range s.models {
		resp, err := s.generate(ctx, modelName, parts...)
		if err != nil {
			outcome, classified := classifyProviderError(err)
			if outcome == outcomeAbort {
				return "", classified
			}
			log.Printf("Model %q unusable, trying next: %v", modelName, err)
			lastErr = err
			continue
		}

		if reason, blocked := blockedReason(resp); blocked {
			return "", &ProviderSafetyError{Message: "Content was blocked by safety filters (" + reason + "). Try rephrasing your message."}
		}

		reply := extractText(resp)
		if reply == "" {
			return "", &ProviderSafetyError{Message: "Response was blocked or empty. Try rephrasing your message."}
		}

		log.Printf("Gemini reply produced by model %q", modelName)
		return reply, nil
	}

	return "", &ProviderUnavailableError{
		Message: fmt.Sprintf("All Gemini models failed. Last error: %v. Please check that your API key has access to Gemini models at https://aistudio.google.com/", lastErr),
		LastErr: lastErr,
	}
}

type providerOutcome int

const (
	// outcomeNextCandidate means the failure is specific to the attempted
	// model; the next candidate may still succeed.
	outcomeNextCandidate providerOutcome = iota
	// outcomeAbort means every candidate would fail the same way.
	outcomeAbort
)

// classifyProviderError sorts a provider failure into the abort/advance
// decision table. Structured HTTP codes from the API client are preferred;
// message text is only consulted when no code is available.
func classifyProviderError(err error) (providerOutcome, error) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return outcomeAbort, &ProviderAuthError{Message: "Invalid or missing Gemini API key. Please check your GEMINI_API_KEY configuration."}
		case 429:
			return outcomeAbort, &ProviderQuotaError{Message: "API quota exceeded. Please try again later or upgrade your plan."}
		case 404:
			// Model ID not recognized by the provider.
			return outcomeNextCandidate, err
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "api_key"):
		return outcomeAbort, &ProviderAuthError{Message: "Invalid or missing Gemini API key. Please check your GEMINI_API_KEY configuration."}
	case strings.Contains(msg, "quota") || strings.Contains(msg, "resource"):
		return outcomeAbort, &ProviderQuotaError{Message: "API quota exceeded. Please try again later or upgrade your plan."}
	case strings.Contains(msg, "safety") || strings.Contains(msg, "block"):
		return outcomeAbort, &ProviderSafetyError{Message: "Content was blocked by safety filters. Try rephrasing your message."}
	case strings.Contains(msg, "not found") || strings.Contains(msg, "models/"):
		return outcomeNextCandidate, err
	default:
		// Unclassified provider failure; worth one shot on the next model.
		return outcomeNextCandidate, err
	}
}

func blockedReason(resp *genai.GenerateContentResponse) (string, bool) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return resp.PromptFeedback.BlockReason.String(), true
	}
	for _, cand := range resp.Candidates {
		if cand.FinishReason == genai.FinishReasonSafety {
			return cand.FinishReason.String(), true
		}
	}
	return "", false
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
