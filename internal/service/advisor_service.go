package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/examind/examind-backend/internal/config"
	"github.com/examind/examind-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	advisorSourceRemote   = "remote"
	advisorSourceFallback = "fallback"

	remoteDefaultConfidence = 0.9
	fallbackConfidence      = 0.8
	advisorCacheTTL         = 24 * time.Hour
)

// AdvisorService produces post-exam tutoring explanations. A remote advisory
// backend is consulted when configured; on timeout, error, or absence of a
// backend the service degrades to a deterministic local explanation. Explain
// never fails: the learner always gets something readable.
type AdvisorService struct {
	cfg    *config.Config
	rdb    *redis.Client
	client *http.Client
	log    zerolog.Logger
}

// NewAdvisorService creates a new AdvisorService.
func NewAdvisorService(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) *AdvisorService {
	return &AdvisorService{
		cfg: cfg,
		rdb: rdb,
		client: &http.Client{
			Timeout: cfg.AdvisorTimeout,
		},
		log: log.With().Str("component", "advisor_service").Logger(),
	}
}

// Explain returns a tutoring explanation for one question and the learner's
// submitted option.
func (s *AdvisorService) Explain(ctx context.Context, q *model.Question, submittedOption string) *model.TutorResponse {
	cacheKey := config.CacheKey.AdvisorCacheKey(q.ID.String(), submittedOption)

	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached model.TutorResponse
			if json.Unmarshal(raw, &cached) == nil {
				return &cached
			}
		}
	}

	if s.cfg.AdvisorURL != "" {
		if resp, err := s.remote(ctx, q, submittedOption); err == nil {
			s.cache(ctx, cacheKey, resp)
			return resp
		} else {
			s.log.Warn().Err(err).Str("question_id", q.ID.String()).Msg("Remote advisor unavailable, using fallback")
		}
	}

	return s.fallback(q, submittedOption)
}

func (s *AdvisorService) remote(ctx context.Context, q *model.Question, submittedOption string) (*model.TutorResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AdvisorTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]interface{}{
		"question_text":    q.QuestionText,
		"options":          q.Options,
		"correct_option":   q.CorrectOption,
		"submitted_option": submittedOption,
		"explanation":      q.Explanation,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AdvisorURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.AdvisorAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.AdvisorAPIKey)
	}

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisor returned status %d", httpResp.StatusCode)
	}

	var resp model.TutorResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode advisor response: %w", err)
	}
	if resp.Explanation == "" {
		return nil, fmt.Errorf("advisor returned empty explanation")
	}

	resp.Source = advisorSourceRemote
	if resp.Confidence <= 0 {
		resp.Confidence = remoteDefaultConfidence
	}
	return &resp, nil
}

func (s *AdvisorService) cache(ctx context.Context, key string, resp *model.TutorResponse) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, advisorCacheTTL).Err(); err != nil {
		s.log.Debug().Err(err).Msg("Advisor cache write failed")
	}
}

// topicHints maps question-text keywords to review topics for the local
// fallback. Matching is substring-based over the lowercased question text.
var topicHints = []struct {
	keyword string
	topic   string
}{
	{"network", "Computer networking fundamentals"},
	{"protocol", "Network protocols"},
	{"database", "Database design"},
	{"sql", "SQL querying"},
	{"algorithm", "Algorithm analysis"},
	{"complexity", "Computational complexity"},
	{"data structure", "Data structures"},
	{"encrypt", "Cryptography basics"},
	{"security", "Information security"},
	{"operating system", "Operating systems"},
	{"process", "Processes and scheduling"},
	{"memory", "Memory management"},
	{"function", "Functions and scope"},
	{"variable", "Variables and types"},
	{"equation", "Solving equations"},
	{"derivative", "Differential calculus"},
	{"integral", "Integral calculus"},
	{"probability", "Probability theory"},
	{"matrix", "Linear algebra"},
}

// fallback builds a deterministic explanation from the question record alone.
// The same inputs always produce byte-identical output.
func (s *AdvisorService) fallback(q *model.Question, submittedOption string) *model.TutorResponse {
	var b strings.Builder
	fmt.Fprintf(&b, "The correct answer is option %s.", q.CorrectOption)
	if submittedOption != "" && submittedOption != q.CorrectOption {
		fmt.Fprintf(&b, " You selected option %s, which does not satisfy what the question asks for.", submittedOption)
	}
	if q.Explanation != "" {
		b.WriteString(" ")
		b.WriteString(q.Explanation)
	} else {
		b.WriteString(" Re-read the question and compare each option against its requirements before choosing.")
	}

	lowered := strings.ToLower(q.QuestionText)
	topics := make([]string, 0, 3)
	for _, hint := range topicHints {
		if strings.Contains(lowered, hint.keyword) {
			topics = append(topics, hint.topic)
			if len(topics) == 3 {
				break
			}
		}
	}
	sort.Strings(topics)

	examples := []string{
		fmt.Sprintf("Work through the question again assuming option %s, and check each condition it must satisfy.", q.CorrectOption),
	}

	return &model.TutorResponse{
		Explanation:   b.String(),
		Examples:      examples,
		RelatedTopics: topics,
		Confidence:    fallbackConfidence,
		Source:        advisorSourceFallback,
	}
}
