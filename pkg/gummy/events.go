package gummy

import "encoding/json"

// Inbound event names from the inference service.
const (
	eventTaskStarted     = "task-started"
	eventResultGenerated = "result-generated"
	eventTaskFinished    = "task-finished"
	eventTaskFailed      = "task-failed"
)

// eventEnvelope is the JSON structure of every inbound text frame.
type eventEnvelope struct {
	Header struct {
		Event        string `json:"event"`
		TaskID       string `json:"task_id"`
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"header"`
	Payload struct {
		Output struct {
			Transcription *sentenceResult  `json:"transcription"`
			Translations  []sentenceResult `json:"translations"`
		} `json:"output"`
	} `json:"payload"`
}

// sentenceResult is a single recognition or translation segment as carried on
// the wire. Times are milliseconds from session start.
type sentenceResult struct {
	Text        string `json:"text"`
	SentenceEnd bool   `json:"sentence_end"`
	BeginTime   int64  `json:"begin_time"`
	EndTime     int64  `json:"end_time"`
	Lang        string `json:"lang"`
}

// parseEvent decodes a raw inbound message into an event envelope.
// Returns (zero, false) if the message is malformed or carries no event name;
// such messages are skipped by the receive loop.
func parseEvent(data []byte) (eventEnvelope, bool) {
	var ev eventEnvelope
	if err := json.Unmarshal(data, &ev); err != nil {
		return eventEnvelope{}, false
	}
	if ev.Header.Event == "" {
		return eventEnvelope{}, false
	}
	return ev, true
}
