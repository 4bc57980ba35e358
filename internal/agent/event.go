package agent

// EventType distinguishes pipeline progress events from answer content.
type EventType string

const (
	// EventStep carries a reasoning trace entry from a completed node.
	EventStep EventType = "step"

	// EventAnswerChunk carries a fragment of the generated answer.
	EventAnswerChunk EventType = "answer_chunk"
)

// Step identifies the pipeline stage an event belongs to. The direct
// answer node reports under StepGenerate, matching the answer stage the
// client renders.
type Step string

const (
	StepRoute    Step = "route"
	StepRewrite  Step = "rewrite"
	StepRetrieve Step = "retrieve"
	StepGrade    Step = "grade"
	StepGenerate Step = "generate"
)

// Event is one streamed workflow event.
type Event struct {
	Type    EventType `json:"type"`
	Step    Step      `json:"step,omitempty"`
	Content string    `json:"content"`
}
