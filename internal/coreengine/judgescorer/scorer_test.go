package judgescorer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voice-agent-eval-platform/backend/internal/retrypolicy"
)

// fakeLLMClient replays scripted completions, one per call.
type fakeLLMClient struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeLLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", NewJudgeError(CodeAPIError, "no scripted response")
}

func noSleep(retry retrypolicy.Policy) retrypolicy.Policy {
	retry.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return retry
}

func testInput() ScoreInput {
	return ScoreInput{
		ScenarioType:       "task-completion",
		ScenarioName:       "book a table",
		UserPrompt:         "Book a table for two at 7pm",
		ExpectedOutcome:    "A table for two is booked at 7pm",
		ResponseTranscript: "Done, your table for two is booked for 7pm tonight.",
	}
}

const goodJudgeJSON = `{"accuracy": 9, "helpfulness": 8, "naturalness": 7, "efficiency": 10, "task_completed": true, "reasoning": "Booked as asked."}`

func TestScore_HappyPath(t *testing.T) {
	client := &fakeLLMClient{responses: []string{goodJudgeJSON}}
	scorer := NewScorer(client)

	scores, err := scorer.Score(context.Background(), testInput())
	require.NoError(t, err)

	require.Equal(t, 89.0, scores.Accuracy)
	require.Equal(t, 78.0, scores.Helpfulness)
	require.Equal(t, 67.0, scores.Naturalness)
	require.Equal(t, 100.0, scores.Efficiency)
	require.True(t, scores.TaskCompleted)
	require.Equal(t, "Booked as asked.", scores.Reasoning)
}

func TestScore_StripsMarkdownFences(t *testing.T) {
	client := &fakeLLMClient{responses: []string{"```json\n" + goodJudgeJSON + "\n```"}}
	scorer := NewScorer(client)

	scores, err := scorer.Score(context.Background(), testInput())
	require.NoError(t, err)
	require.Equal(t, 89.0, scores.Accuracy)
}

func TestScore_ClampsOutOfRangeScores(t *testing.T) {
	raw := `{"accuracy": 0, "helpfulness": 13, "naturalness": 7.4, "efficiency": 1, "task_completed": false, "reasoning": "odd"}`
	client := &fakeLLMClient{responses: []string{raw}}
	scorer := NewScorer(client)

	scores, err := scorer.Score(context.Background(), testInput())
	require.NoError(t, err)

	require.Equal(t, 0.0, scores.Accuracy)    // 0 clamps to 1 -> 0%
	require.Equal(t, 100.0, scores.Helpfulness) // 13 clamps to 10 -> 100%
	require.Equal(t, 67.0, scores.Naturalness)  // 7.4 rounds to 7
	require.Equal(t, 0.0, scores.Efficiency)
	require.False(t, scores.TaskCompleted)
}

func TestScore_EmptyPromptNeverCallsJudge(t *testing.T) {
	client := &fakeLLMClient{}
	scorer := NewScorer(client)

	in := testInput()
	in.UserPrompt = "   "
	_, err := scorer.Score(context.Background(), in)

	var je *JudgeError
	require.ErrorAs(t, err, &je)
	require.Equal(t, CodeInvalidInput, je.Code)
	require.Equal(t, 0, client.calls)
}

func TestScore_EmptyTranscriptNeverCallsJudge(t *testing.T) {
	client := &fakeLLMClient{}
	scorer := NewScorer(client)

	in := testInput()
	in.ResponseTranscript = ""
	_, err := scorer.Score(context.Background(), in)

	var je *JudgeError
	require.ErrorAs(t, err, &je)
	require.Equal(t, CodeInvalidInput, je.Code)
	require.Equal(t, 0, client.calls)
}

func TestScore_RetriesParseErrorThenSucceeds(t *testing.T) {
	client := &fakeLLMClient{responses: []string{"this is not json", goodJudgeJSON}}
	scorer := NewScorerWithRetry(client, noSleep(retrypolicy.Policy{MaxAttempts: 3}))

	scores, err := scorer.Score(context.Background(), testInput())
	require.NoError(t, err)
	require.Equal(t, 2, client.calls)
	require.Equal(t, 89.0, scores.Accuracy)
}

func TestScore_RetriesRateLimitThenSucceeds(t *testing.T) {
	client := &fakeLLMClient{
		errs:      []error{NewJudgeError(CodeRateLimited, "429")},
		responses: []string{"", goodJudgeJSON},
	}
	scorer := NewScorerWithRetry(client, noSleep(retrypolicy.Policy{MaxAttempts: 3}))

	_, err := scorer.Score(context.Background(), testInput())
	require.NoError(t, err)
	require.Equal(t, 2, client.calls)
}

func TestScore_MissingFieldsNotRetried(t *testing.T) {
	raw := `{"accuracy": 5, "task_completed": true, "reasoning": "partial"}`
	client := &fakeLLMClient{responses: []string{raw, goodJudgeJSON}}
	scorer := NewScorerWithRetry(client, noSleep(retrypolicy.Policy{MaxAttempts: 3}))

	_, err := scorer.Score(context.Background(), testInput())

	var je *JudgeError
	require.ErrorAs(t, err, &je)
	require.Equal(t, CodeInvalidResponse, je.Code)
	require.Equal(t, 1, client.calls)
}

func TestScore_ExhaustedRetriesReturnLastError(t *testing.T) {
	client := &fakeLLMClient{
		errs: []error{
			NewJudgeError(CodeAPIError, "boom"),
			NewJudgeError(CodeAPIError, "boom"),
			NewJudgeError(CodeAPIError, "boom"),
		},
	}
	scorer := NewScorerWithRetry(client, noSleep(retrypolicy.Policy{MaxAttempts: 3}))

	_, err := scorer.Score(context.Background(), testInput())

	var je *JudgeError
	require.ErrorAs(t, err, &je)
	require.Equal(t, CodeAPIError, je.Code)
	require.Equal(t, 3, client.calls)
}

func TestScaleScore_Bounds(t *testing.T) {
	require.Equal(t, 0.0, ScaleScore(1))
	require.Equal(t, 100.0, ScaleScore(10))
	require.Equal(t, 44.0, ScaleScore(5))
	require.Equal(t, 89.0, ScaleScore(9))
}

func TestClassifyJudgeError(t *testing.T) {
	require.Equal(t, retrypolicy.ClassRateLimited, ClassifyJudgeError(NewJudgeError(CodeRateLimited, "")))
	require.Equal(t, retrypolicy.ClassTransient, ClassifyJudgeError(NewJudgeError(CodeTimeout, "")))
	require.Equal(t, retrypolicy.ClassTransient, ClassifyJudgeError(NewJudgeError(CodeAPIError, "")))
	require.Equal(t, retrypolicy.ClassParse, ClassifyJudgeError(NewJudgeError(CodeParseError, "")))
	require.Equal(t, retrypolicy.ClassNone, ClassifyJudgeError(NewJudgeError(CodeInvalidInput, "")))
	require.Equal(t, retrypolicy.ClassNone, ClassifyJudgeError(NewJudgeError(CodeInvalidResponse, "")))
	require.Equal(t, retrypolicy.ClassNone, ClassifyJudgeError(context.Canceled))
}

func TestStripCodeFences(t *testing.T) {
	require.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
	require.Equal(t, "plain text", StripCodeFences("plain text"))
}
