package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/examind/examind-backend/internal/config"
	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func advisorConfig(url string) *config.Config {
	return &config.Config{
		AdvisorURL:     url,
		AdvisorAPIKey:  "test-key",
		AdvisorTimeout: 200 * time.Millisecond,
	}
}

func sampleQuestion() *model.Question {
	return &model.Question{
		ID:            uuid.New(),
		ExamID:        uuid.New(),
		QuestionText:  "Which protocol provides reliable, ordered delivery over an IP network?",
		Options:       json.RawMessage(`{"A":"UDP","B":"TCP","C":"ICMP","D":"ARP"}`),
		CorrectOption: "B",
		Explanation:   "TCP retransmits lost segments and reorders out-of-order arrivals.",
	}
}

func TestExplainUsesRemoteAdvisor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["correct_option"] != "B" {
			t.Errorf("correct_option = %v", payload["correct_option"])
		}
		json.NewEncoder(w).Encode(model.TutorResponse{
			Explanation:   "TCP is connection-oriented and guarantees delivery order.",
			RelatedTopics: []string{"Transport layer"},
			Confidence:    0.95,
		})
	}))
	defer srv.Close()

	svc := NewAdvisorService(advisorConfig(srv.URL), nil, zerolog.Nop())
	resp := svc.Explain(context.Background(), sampleQuestion(), "A")

	if resp.Source != "remote" {
		t.Errorf("source = %q, want remote", resp.Source)
	}
	if resp.Confidence != 0.95 {
		t.Errorf("confidence = %f, want 0.95", resp.Confidence)
	}
	if resp.Explanation == "" {
		t.Error("empty explanation")
	}
}

func TestExplainFallsBackOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	svc := NewAdvisorService(advisorConfig(srv.URL), nil, zerolog.Nop())
	resp := svc.Explain(context.Background(), sampleQuestion(), "A")

	if resp.Source != "fallback" {
		t.Errorf("source = %q, want fallback", resp.Source)
	}
	if resp.Confidence != 0.8 {
		t.Errorf("confidence = %f, want 0.8", resp.Confidence)
	}
}

func TestExplainFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewAdvisorService(advisorConfig(srv.URL), nil, zerolog.Nop())
	resp := svc.Explain(context.Background(), sampleQuestion(), "A")
	if resp.Source != "fallback" {
		t.Errorf("source = %q, want fallback", resp.Source)
	}
}

func TestExplainWithoutBackendUsesFallback(t *testing.T) {
	svc := NewAdvisorService(advisorConfig(""), nil, zerolog.Nop())
	resp := svc.Explain(context.Background(), sampleQuestion(), "A")
	if resp.Source != "fallback" {
		t.Errorf("source = %q, want fallback", resp.Source)
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	svc := NewAdvisorService(advisorConfig(""), nil, zerolog.Nop())
	q := sampleQuestion()

	first := svc.Explain(context.Background(), q, "A")
	for i := 0; i < 5; i++ {
		again := svc.Explain(context.Background(), q, "A")
		if again.Explanation != first.Explanation {
			t.Fatalf("explanation drifted on run %d", i)
		}
		if len(again.RelatedTopics) != len(first.RelatedTopics) {
			t.Fatalf("related topics drifted on run %d", i)
		}
	}
}

func TestFallbackMentionsSubmittedMistake(t *testing.T) {
	svc := NewAdvisorService(advisorConfig(""), nil, zerolog.Nop())
	q := sampleQuestion()

	wrong := svc.Explain(context.Background(), q, "A")
	right := svc.Explain(context.Background(), q, "B")

	if wrong.Explanation == right.Explanation {
		t.Error("explanation does not distinguish a wrong submission from a correct one")
	}
	if len(wrong.RelatedTopics) == 0 {
		t.Error("no related topics extracted from a protocol question")
	}
}
