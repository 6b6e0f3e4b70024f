package judgescorer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"strings"

	"voice-agent-eval-platform/backend/internal/retrypolicy"
)

// ScoreInput is everything the judge needs to grade one response.
type ScoreInput struct {
	ScenarioType       string
	ScenarioName       string
	UserPrompt         string
	ExpectedOutcome    string
	ResponseTranscript string
}

// Scores holds the validated judge output. The four dimension scores are
// 0-100 percentages mapped from the judge's raw 1-10 integers.
type Scores struct {
	Accuracy      float64 `json:"accuracy"`
	Helpfulness   float64 `json:"helpfulness"`
	Naturalness   float64 `json:"naturalness"`
	Efficiency    float64 `json:"efficiency"`
	TaskCompleted bool    `json:"task_completed"`
	Reasoning     string  `json:"reasoning"`
}

// LLMClient is the judge transport: given system and user prompts it returns
// the model's raw completion text. Implementations must configure the model
// for JSON-only output and surface failures as *JudgeError.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Scorer grades responses with an LLM judge, retrying transient failures.
type Scorer struct {
	client LLMClient
	retry  retrypolicy.Policy
}

// NewScorer builds a scorer with the default retry policy (3 attempts).
func NewScorer(client LLMClient) *Scorer {
	return &Scorer{
		client: client,
		retry: retrypolicy.Policy{
			MaxAttempts: 3,
			Classify:    ClassifyJudgeError,
		},
	}
}

// NewScorerWithRetry builds a scorer with a caller-supplied retry policy,
// used by tests to inject a fake sleep.
func NewScorerWithRetry(client LLMClient, retry retrypolicy.Policy) *Scorer {
	if retry.Classify == nil {
		retry.Classify = ClassifyJudgeError
	}
	return &Scorer{client: client, retry: retry}
}

// ClassifyJudgeError maps judge errors onto retry classes: rate limits get
// exponential backoff, timeouts and API/network failures linear backoff,
// malformed JSON one short retry, and invalid input no retry at all.
func ClassifyJudgeError(err error) retrypolicy.Class {
	var je *JudgeError
	if !errors.As(err, &je) {
		return retrypolicy.ClassNone
	}
	switch je.Code {
	case CodeRateLimited:
		return retrypolicy.ClassRateLimited
	case CodeTimeout, CodeAPIError:
		return retrypolicy.ClassTransient
	case CodeParseError:
		return retrypolicy.ClassParse
	default:
		return retrypolicy.ClassNone
	}
}

// Score grades one response. The returned error, when non-nil, is always a
// *JudgeError.
func (s *Scorer) Score(ctx context.Context, input ScoreInput) (*Scores, error) {
	if strings.TrimSpace(input.UserPrompt) == "" {
		return nil, NewJudgeError(CodeInvalidInput, "user prompt is empty")
	}
	if strings.TrimSpace(input.ResponseTranscript) == "" {
		return nil, NewJudgeError(CodeInvalidInput, "response transcript is empty")
	}

	systemPrompt := BuildSystemPrompt(input.ScenarioType)
	userPrompt := BuildUserPrompt(input.ScenarioName, input.UserPrompt, input.ExpectedOutcome, input.ResponseTranscript)

	var scores *Scores
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		raw, err := s.client.Complete(ctx, systemPrompt, userPrompt)
		if err != nil {
			var je *JudgeError
			if errors.As(err, &je) {
				return je
			}
			return NewJudgeError(CodeAPIError, err.Error())
		}

		parsed, perr := parseJudgeOutput(raw)
		if perr != nil {
			log.Printf("judgescorer: unparseable judge output for scenario '%s': %v", input.ScenarioName, perr)
			return perr
		}
		scores = parsed
		return nil
	})
	if err != nil {
		var je *JudgeError
		if errors.As(err, &je) {
			return nil, je
		}
		return nil, NewJudgeError(CodeAPIError, err.Error())
	}
	return scores, nil
}

// rawJudgeOutput mirrors the JSON shape the rubric demands. Scores come in as
// json.Number so a float like 7.0 or an out-of-range 13 can still be read and
// repaired instead of failing the parse.
type rawJudgeOutput struct {
	Accuracy      *json.Number `json:"accuracy"`
	Helpfulness   *json.Number `json:"helpfulness"`
	Naturalness   *json.Number `json:"naturalness"`
	Efficiency    *json.Number `json:"efficiency"`
	TaskCompleted *bool        `json:"task_completed"`
	Reasoning     string       `json:"reasoning"`
}

func parseJudgeOutput(raw string) (*Scores, *JudgeError) {
	cleaned := StripCodeFences(raw)

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()
	var out rawJudgeOutput
	if err := dec.Decode(&out); err != nil {
		return nil, NewJudgeError(CodeParseError, "judge output is not valid JSON: "+err.Error())
	}

	if out.Accuracy == nil || out.Helpfulness == nil || out.Naturalness == nil || out.Efficiency == nil {
		return nil, NewJudgeError(CodeInvalidResponse, "judge output is missing one or more score fields")
	}
	if out.TaskCompleted == nil {
		return nil, NewJudgeError(CodeInvalidResponse, "judge output is missing task_completed")
	}

	accuracy, err := clampRawScore(*out.Accuracy)
	if err != nil {
		return nil, err
	}
	helpfulness, err := clampRawScore(*out.Helpfulness)
	if err != nil {
		return nil, err
	}
	naturalness, err := clampRawScore(*out.Naturalness)
	if err != nil {
		return nil, err
	}
	efficiency, err := clampRawScore(*out.Efficiency)
	if err != nil {
		return nil, err
	}

	return &Scores{
		Accuracy:      ScaleScore(accuracy),
		Helpfulness:   ScaleScore(helpfulness),
		Naturalness:   ScaleScore(naturalness),
		Efficiency:    ScaleScore(efficiency),
		TaskCompleted: *out.TaskCompleted,
		Reasoning:     strings.TrimSpace(out.Reasoning),
	}, nil
}

// clampRawScore rounds a raw judge score to an integer and clamps it into
// [1,10].
func clampRawScore(n json.Number) (int, *JudgeError) {
	f, err := n.Float64()
	if err != nil {
		return 0, NewJudgeError(CodeInvalidResponse, "score is not numeric: "+n.String())
	}
	score := int(math.Round(f))
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score, nil
}

// ScaleScore maps a clamped 1-10 judge score to a 0-100 percentage:
// round(((score-1)/9)*100). 1 maps to 0, 10 maps to 100.
func ScaleScore(score int) float64 {
	return math.Round((float64(score-1) / 9) * 100)
}

// StripCodeFences removes a surrounding markdown code fence, which judge
// models emit even when told not to.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop a language tag like "json" on the opening fence line.
	if idx := strings.Index(s, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
