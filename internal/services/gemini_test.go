package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
)

func newStubGemini(gen generateFunc) *GeminiService {
	return &GeminiService{
		limiter:  NewRateLimiter(100),
		models:   []string{"model-a", "model-b", "model-c"},
		generate: gen,
	}
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content:      &genai.Content{Parts: []genai.Part{genai.Text(s)}},
				FinishReason: genai.FinishReasonStop,
			},
		},
	}
}

func TestNewGeminiService_StartsWithoutAPIKey(t *testing.T) {
	svc, err := NewGeminiService("", NewRateLimiter(15))
	if err != nil {
		t.Fatalf("Expected service construction to succeed without a key, got %v", err)
	}
	defer svc.Close()

	_, err = svc.SendMessage(context.Background(), "hello", nil)

	var authErr *ProviderAuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected ProviderAuthError from an unconfigured service, got %T: %v", err, err)
	}
}

func TestSendMessage_FallsBackThroughUnavailableModels(t *testing.T) {
	var attempts []string
	svc := newStubGemini(func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		attempts = append(attempts, modelName)
		if modelName == "model-c" {
			return textResponse("ok"), nil
		}
		return nil, &googleapi.Error{Code: 404, Message: "models/" + modelName + " is not found"}
	})

	reply, err := svc.SendMessage(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "ok" {
		t.Errorf("Expected reply %q, got %q", "ok", reply)
	}
	if len(attempts) != 3 {
		t.Errorf("Expected 3 attempts, got %d (%v)", len(attempts), attempts)
	}
}

func TestSendMessage_AuthErrorAbortsImmediately(t *testing.T) {
	var attempts int
	svc := newStubGemini(func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		attempts++
		return nil, &googleapi.Error{Code: 403, Message: "permission denied"}
	})

	_, err := svc.SendMessage(context.Background(), "hello", nil)

	var authErr *ProviderAuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected ProviderAuthError, got %T: %v", err, err)
	}
	if attempts != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", attempts)
	}
}

func TestSendMessage_QuotaErrorAbortsImmediately(t *testing.T) {
	var attempts int
	svc := newStubGemini(func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		attempts++
		return nil, &googleapi.Error{Code: 429, Message: "resource exhausted"}
	})

	_, err := svc.SendMessage(context.Background(), "hello", nil)

	var quotaErr *ProviderQuotaError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("Expected ProviderQuotaError, got %T: %v", err, err)
	}
	if attempts != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", attempts)
	}
}

func TestSendMessage_AllCandidatesExhausted(t *testing.T) {
	lastErr := &googleapi.Error{Code: 404, Message: "models/model-c is not found"}
	svc := newStubGemini(func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		return nil, &googleapi.Error{Code: 404, Message: "models/" + modelName + " is not found"}
	})

	_, err := svc.SendMessage(context.Background(), "hello", nil)

	var unavailable *ProviderUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected ProviderUnavailableError, got %T: %v", err, err)
	}
	if unavailable.LastErr == nil {
		t.Error("Expected the last underlying error to be preserved")
	}
	var apiErr *googleapi.Error
	if !errors.As(unavailable.LastErr, &apiErr) || apiErr.Message != lastErr.Message {
		t.Errorf("Expected last error from model-c, got %v", unavailable.LastErr)
	}
}

func TestSendMessage_EmptyResponseIsSafetyError(t *testing.T) {
	var attempts int
	svc := newStubGemini(func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		attempts++
		return textResponse(""), nil
	})

	_, err := svc.SendMessage(context.Background(), "hello", nil)

	var safetyErr *ProviderSafetyError
	if !errors.As(err, &safetyErr) {
		t.Fatalf("Expected ProviderSafetyError, got %T: %v", err, err)
	}
	if attempts != 1 {
		t.Errorf("Empty response must not be retried, got %d attempts", attempts)
	}
}

func TestSendMessage_BlockedPromptIsSafetyError(t *testing.T) {
	svc := newStubGemini(func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{
			PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
		}, nil
	})

	_, err := svc.SendMessage(context.Background(), "hello", nil)

	var safetyErr *ProviderSafetyError
	if !errors.As(err, &safetyErr) {
		t.Fatalf("Expected ProviderSafetyError, got %T: %v", err, err)
	}
}

func TestSendMessage_PartsOrderTextThenImages(t *testing.T) {
	var captured []genai.Part
	svc := newStubGemini(func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		captured = parts
		return textResponse("fine"), nil
	})

	images := []ImagePart{
		{MIMEType: "image/png", Data: []byte{1}},
		{MIMEType: "image/jpeg", Data: []byte{2}},
	}
	if _, err := svc.SendMessage(context.Background(), "describe", images); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(captured) != 3 {
		t.Fatalf("Expected 3 parts, got %d", len(captured))
	}
	if text, ok := captured[0].(genai.Text); !ok || string(text) != "describe" {
		t.Errorf("Expected first part to be the prompt text, got %#v", captured[0])
	}
	first, ok := captured[1].(genai.Blob)
	if !ok || first.MIMEType != "image/png" {
		t.Errorf("Expected first image part image/png, got %#v", captured[1])
	}
	second, ok := captured[2].(genai.Blob)
	if !ok || second.MIMEType != "image/jpeg" {
		t.Errorf("Expected second image part image/jpeg, got %#v", captured[2])
	}
}

func TestClassifyProviderError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome providerOutcome
	}{
		{"structured 401", &googleapi.Error{Code: 401}, outcomeAbort},
		{"structured 403", &googleapi.Error{Code: 403}, outcomeAbort},
		{"structured 429", &googleapi.Error{Code: 429}, outcomeAbort},
		{"structured 404", &googleapi.Error{Code: 404, Message: "model missing"}, outcomeNextCandidate},
		{"api key text", errors.New("API key not valid"), outcomeAbort},
		{"quota text", errors.New("quota exceeded for project"), outcomeAbort},
		{"safety text", errors.New("request blocked for safety reasons"), outcomeAbort},
		{"model not found text", errors.New("models/gemini-x is not found"), outcomeNextCandidate},
		{"unclassified", errors.New("connection reset by peer"), outcomeNextCandidate},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outcome, _ := classifyProviderError(tc.err)
			if outcome != tc.outcome {
				t.Errorf("Expected outcome %v, got %v", tc.outcome, outcome)
			}
		})
	}
}
