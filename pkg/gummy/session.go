package gummy

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Control actions multiplexed as text frames on the same connection as the
// binary audio stream.
const (
	actionRunTask    = "run-task"
	actionFinishTask = "finish-task"

	// streamingDuplex marks the session as bidirectional streaming.
	streamingDuplex = "duplex"
)

// controlHeader is the envelope header shared by all outbound control messages.
type controlHeader struct {
	TaskID    string `json:"task_id"`
	Action    string `json:"action"`
	Streaming string `json:"streaming"`
}

// runTaskEnvelope is the start control message declaring the recognition task.
type runTaskEnvelope struct {
	Header  controlHeader  `json:"header"`
	Payload runTaskPayload `json:"payload"`
}

type runTaskPayload struct {
	TaskGroup  string            `json:"task_group"`
	Task       string            `json:"task"`
	Function   string            `json:"function"`
	Model      string            `json:"model"`
	Input      runTaskInput      `json:"input"`
	Parameters runTaskParameters `json:"parameters"`
}

type runTaskInput struct {
	Format      string           `json:"format"`
	SampleRate  int              `json:"sample_rate"`
	AudioType   string           `json:"audio_type"`
	Translation translationInput `json:"translation"`
}

type translationInput struct {
	TargetLang string `json:"target_lang"`
	SourceLang string `json:"source_lang"`
}

type runTaskParameters struct {
	MaxEndSilence int  `json:"max_end_silence"`
	EnableITN     bool `json:"enable_inverse_text_normalization"`
}

// finishTaskEnvelope is the end-of-audio control message.
type finishTaskEnvelope struct {
	Header  controlHeader `json:"header"`
	Payload struct {
		Input struct{} `json:"input"`
	} `json:"payload"`
}

// taskSession owns the identity of one connection: a unique task id, stable
// for the connection's lifetime. Task ids are never reused across sessions.
type taskSession struct {
	id    string
	model string
}

func newTaskSession(model string) *taskSession {
	return &taskSession{id: uuid.NewString(), model: model}
}

// begin builds the run-task control message for the given configuration.
// It must be sent exactly once, before any audio frame.
func (s *taskSession) begin(cfg StreamConfig) ([]byte, error) {
	msg := runTaskEnvelope{
		Header: controlHeader{
			TaskID:    s.id,
			Action:    actionRunTask,
			Streaming: streamingDuplex,
		},
		Payload: runTaskPayload{
			TaskGroup: "audio",
			Task:      "asr",
			Function:  "recognition",
			Model:     s.model,
			Input: runTaskInput{
				Format:     string(cfg.Format),
				SampleRate: cfg.SampleRate,
				AudioType:  "sentence",
				Translation: translationInput{
					TargetLang: cfg.TargetLang,
					SourceLang: cfg.SourceLang,
				},
			},
			Parameters: runTaskParameters{
				MaxEndSilence: int(cfg.MaxEndSilence.Milliseconds()),
				EnableITN:     !cfg.DisableInverseTextNormalization,
			},
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("gummy: marshal run-task: %w", err)
	}
	return data, nil
}

// finish builds the finish-task control message. It must be sent exactly
// once, after the last audio frame.
func (s *taskSession) finish() ([]byte, error) {
	msg := finishTaskEnvelope{
		Header: controlHeader{
			TaskID:    s.id,
			Action:    actionFinishTask,
			Streaming: streamingDuplex,
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("gummy: marshal finish-task: %w", err)
	}
	return data, nil
}
