package judgescorer

import "fmt"

// systemRubric is the fixed grading instruction shared by all scenario types.
// The judge must answer with a single JSON object and nothing else.
const systemRubric = `You are an impartial evaluator of voice AI assistant responses.
Score the assistant's response to the user's request on four dimensions, each
an integer from 1 (worst) to 10 (best):

- "accuracy": factual correctness of the response against the expected outcome.
- "helpfulness": how completely the response addresses the user's request.
- "naturalness": how natural and conversational the response sounds when spoken.
- "efficiency": how concise the response is while still being complete.

Also decide "task_completed": true only if the response actually accomplishes
what the user asked for.

Respond with ONLY a JSON object, no markdown, in exactly this shape:
{"accuracy": <1-10>, "helpfulness": <1-10>, "naturalness": <1-10>, "efficiency": <1-10>, "task_completed": <true|false>, "reasoning": "<2-3 sentence explanation>"}`

// Scenario-type specific grading guidance appended to the system rubric.
const (
	taskCompletionRubric = `
This is a TASK COMPLETION scenario. Weight heavily whether the concrete task
the user asked for was actually carried out or clearly committed to, with all
required details (times, names, quantities) confirmed back to the user.`

	informationRetrievalRubric = `
This is an INFORMATION RETRIEVAL scenario. Weight heavily whether the specific
facts the user asked for are present and correct. Penalize hedging, made-up
details, and answers that bury the requested information.`

	conversationFlowRubric = `
This is a CONVERSATION FLOW scenario. Weight heavily whether the response
keeps the dialogue coherent: acknowledging what the user said, staying on
topic, and moving the conversation forward naturally.`
)

// scenarioRubric returns the type-specific fragment; unknown types fall back
// to the task-completion guidance.
func scenarioRubric(scenarioType string) string {
	switch scenarioType {
	case "information-retrieval":
		return informationRetrievalRubric
	case "conversation-flow":
		return conversationFlowRubric
	default:
		return taskCompletionRubric
	}
}

// BuildSystemPrompt assembles the full judge system prompt for one scenario.
func BuildSystemPrompt(scenarioType string) string {
	return systemRubric + "\n" + scenarioRubric(scenarioType)
}

// BuildUserPrompt formats the material the judge grades.
func BuildUserPrompt(scenarioName, userPrompt, expectedOutcome, responseTranscript string) string {
	return fmt.Sprintf(`Scenario: %s

User request:
%s

Expected outcome:
%s

Assistant response (transcribed):
%s`, scenarioName, userPrompt, expectedOutcome, responseTranscript)
}
