package gummy_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/speechwire/pkg/audio"
	"github.com/MrWong99/speechwire/pkg/gummy"
	"github.com/coder/websocket"
)

// ── Helpers ───────────────────────────────────────────────────────────────────

// testContext returns a context canceled when the test ends, standing in for
// testing.T.Context which requires Go 1.24.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// wsURL converts an httptest server HTTP URL to a WebSocket URL.
func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// startServer launches a scripted WebSocket server. The handler receives the
// accepted conn. The server is automatically closed when the test finishes.
func startServer(t *testing.T, handler func(ctx context.Context, conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		handler(r.Context(), conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeEvent marshals an event envelope and sends it as a text frame.
func writeEvent(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// event builders for server scripts.

func taskStarted(taskID string) map[string]any {
	return map[string]any{"header": map[string]any{"event": "task-started", "task_id": taskID}}
}

func taskFinished(taskID string) map[string]any {
	return map[string]any{"header": map[string]any{"event": "task-finished", "task_id": taskID}}
}

func taskFailed(taskID, code, message string) map[string]any {
	return map[string]any{"header": map[string]any{
		"event": "task-failed", "task_id": taskID,
		"error_code": code, "error_message": message,
	}}
}

func resultGenerated(text string, final bool, translations ...map[string]any) map[string]any {
	return map[string]any{
		"header": map[string]any{"event": "result-generated"},
		"payload": map[string]any{"output": map[string]any{
			"transcription": map[string]any{
				"text": text, "sentence_end": final,
				"begin_time": 0, "end_time": 1000,
			},
			"translations": translations,
		}},
	}
}

// controlAction extracts header.action from an outbound control frame.
func controlAction(data []byte) string {
	var env struct {
		Header struct {
			Action string `json:"action"`
			TaskID string `json:"task_id"`
		} `json:"header"`
	}
	_ = json.Unmarshal(data, &env)
	return env.Header.Action
}

// recordedFrame is one message observed by the scripted server.
type recordedFrame struct {
	kind websocket.MessageType
	data []byte
}

// collectSink accumulates results in memory.
type collectSink struct {
	mu           sync.Mutex
	recognitions []gummy.Result
	translations []gummy.Result
}

func (s *collectSink) Recognition(r gummy.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recognitions = append(s.recognitions, r)
}

func (s *collectSink) Translation(r gummy.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translations = append(s.translations, r)
}

// newTestClient builds a client pointed at srv with pacing disabled.
func newTestClient(t *testing.T, srv *httptest.Server, opts ...gummy.Option) *gummy.Client {
	t.Helper()
	opts = append([]gummy.Option{
		gummy.WithBaseURL(wsURL(srv)),
		gummy.WithoutPacing(),
		gummy.WithChunkSize(1024),
	}, opts...)
	c, err := gummy.New("test-key", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func pcmSource(t *testing.T, n int) (*audio.Source, []byte) {
	t.Helper()
	pcm := make([]byte, n)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}
	src, err := audio.FromBytes(pcm, audio.Format{SampleRate: 16000, Channels: 1, SampleWidth: 2})
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return src, pcm
}

func validConfig() gummy.StreamConfig {
	return gummy.StreamConfig{TargetLang: "en", SampleRate: 16000}
}

// ── Happy path ────────────────────────────────────────────────────────────────

func TestRecognize_FullSession(t *testing.T) {
	var (
		mu     sync.Mutex
		frames []recordedFrame
	)

	srv := startServer(t, func(ctx context.Context, conn *websocket.Conn, _ *http.Request) {
		for {
			kind, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			mu.Lock()
			frames = append(frames, recordedFrame{kind: kind, data: data})
			mu.Unlock()

			if kind != websocket.MessageText {
				continue
			}
			switch controlAction(data) {
			case "run-task":
				var env struct {
					Header struct {
						TaskID string `json:"task_id"`
					} `json:"header"`
				}
				_ = json.Unmarshal(data, &env)
				_ = writeEvent(ctx, conn, taskStarted(env.Header.TaskID))
			case "finish-task":
				_ = writeEvent(ctx, conn, resultGenerated("par", false))
				_ = writeEvent(ctx, conn, resultGenerated("partial tw", false))
				_ = writeEvent(ctx, conn, resultGenerated("partial two final", true,
					map[string]any{"lang": "en", "text": "fertig", "sentence_end": true, "begin_time": 0, "end_time": 1000},
				))
				_ = writeEvent(ctx, conn, taskFinished(""))
				return
			}
		}
	})

	// 2.5 chunks of 1024 bytes.
	src, pcm := pcmSource(t, 2560)
	sink := &collectSink{}

	client := newTestClient(t, srv)
	stats, err := client.Recognize(testContext(t), validConfig(), src, sink)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if stats.BytesSent != int64(len(pcm)) {
		t.Errorf("BytesSent = %d, want %d", stats.BytesSent, len(pcm))
	}
	if stats.FramesSent != 3 {
		t.Errorf("FramesSent = %d, want 3 (ceil(2560/1024))", stats.FramesSent)
	}

	// Wire order: run-task, then only binary frames, then finish-task.
	mu.Lock()
	defer mu.Unlock()
	if len(frames) != 5 {
		t.Fatalf("recorded %d frames, want 5", len(frames))
	}
	if frames[0].kind != websocket.MessageText || controlAction(frames[0].data) != "run-task" {
		t.Error("first frame must be the run-task control message")
	}
	last := frames[len(frames)-1]
	if last.kind != websocket.MessageText || controlAction(last.data) != "finish-task" {
		t.Error("last frame must be the finish-task control message")
	}
	var audioBytes []byte
	for _, f := range frames[1 : len(frames)-1] {
		if f.kind != websocket.MessageBinary {
			t.Fatalf("expected only binary frames between control messages, got %v", f.kind)
		}
		audioBytes = append(audioBytes, f.data...)
	}
	if !bytes.Equal(audioBytes, pcm) {
		t.Error("concatenated audio frames do not reconstruct the source bytes")
	}

	// Results surfaced in arrival order.
	if len(sink.recognitions) != 3 {
		t.Fatalf("got %d recognition results, want 3", len(sink.recognitions))
	}
	wantTexts := []string{"par", "partial tw", "partial two final"}
	for i, want := range wantTexts {
		if sink.recognitions[i].Text != want {
			t.Errorf("recognition[%d].Text = %q, want %q", i, sink.recognitions[i].Text, want)
		}
	}
	if !sink.recognitions[2].IsFinal {
		t.Error("third recognition result should be final")
	}
	if len(sink.translations) != 1 || sink.translations[0].Text != "fertig" || sink.translations[0].Lang != "en" {
		t.Errorf("unexpected translations: %+v", sink.translations)
	}
}

// ── Failure paths ─────────────────────────────────────────────────────────────

func TestRecognize_TaskFailed(t *testing.T) {
	srv := startServer(t, func(ctx context.Context, conn *websocket.Conn, _ *http.Request) {
		for {
			kind, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if kind == websocket.MessageText && controlAction(data) == "run-task" {
				_ = writeEvent(ctx, conn, taskFailed("", "TOO_LONG_SPEECH", "audio exceeds 60 seconds"))
			}
		}
	})

	src, _ := pcmSource(t, 4096)
	client := newTestClient(t, srv)

	_, err := client.Recognize(testContext(t), validConfig(), src, &collectSink{})

	var taskErr *gummy.TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected *TaskError, got %v", err)
	}
	if taskErr.Code != "TOO_LONG_SPEECH" {
		t.Errorf("Code = %q, want TOO_LONG_SPEECH (verbatim)", taskErr.Code)
	}
	if !errors.Is(err, gummy.ErrSpeechTooLong) {
		t.Error("TOO_LONG_SPEECH failure should match ErrSpeechTooLong")
	}
}

func TestRecognize_PrematureClose(t *testing.T) {
	srv := startServer(t, func(ctx context.Context, conn *websocket.Conn, _ *http.Request) {
		// Read the run-task message, then drop the connection without ever
		// sending a terminal event.
		_, _, _ = conn.Read(ctx)
	})

	src, _ := pcmSource(t, 4096)
	client := newTestClient(t, srv)

	ctx, cancel := context.WithTimeout(testContext(t), 5*time.Second)
	defer cancel()
	_, err := client.Recognize(ctx, validConfig(), src, &collectSink{})
	if !errors.Is(err, gummy.ErrClosedPrematurely) {
		t.Fatalf("expected ErrClosedPrematurely, got %v", err)
	}
}

func TestRecognize_ContextDeadline(t *testing.T) {
	srv := startServer(t, func(ctx context.Context, conn *websocket.Conn, _ *http.Request) {
		// Swallow everything and never answer.
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	})

	src, _ := pcmSource(t, 2048)
	client := newTestClient(t, srv)

	ctx, cancel := context.WithTimeout(testContext(t), 200*time.Millisecond)
	defer cancel()
	_, err := client.Recognize(ctx, validConfig(), src, &collectSink{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestRecognize_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	src, _ := pcmSource(t, 1024)
	client := newTestClient(t, srv)

	_, err := client.Recognize(testContext(t), validConfig(), src, &collectSink{})
	if err == nil {
		t.Fatal("expected a dial error")
	}
}

// ── Preconditions ─────────────────────────────────────────────────────────────

func TestRecognize_DurationCeiling(t *testing.T) {
	// 61 seconds at 16kHz/16-bit/mono. The endpoint is unreachable on
	// purpose: the config error must surface before any network I/O.
	pcm := bytes.Repeat([]byte{0}, 61*16000*2)
	src, err := audio.FromBytes(pcm, audio.Format{SampleRate: 16000, Channels: 1, SampleWidth: 2})
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	client, err := gummy.New("test-key", gummy.WithBaseURL("ws://127.0.0.1:1"), gummy.WithoutPacing())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, rerr := client.Recognize(testContext(t), validConfig(), src, &collectSink{})

	var cfgErr *gummy.ConfigError
	if !errors.As(rerr, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", rerr)
	}
	if !errors.Is(rerr, gummy.ErrSpeechTooLong) {
		t.Error("duration precondition failure should match ErrSpeechTooLong")
	}
}

func TestRecognize_InvalidConfig(t *testing.T) {
	src, _ := pcmSource(t, 1024)

	client, err := gummy.New("test-key", gummy.WithBaseURL("ws://127.0.0.1:1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, rerr := client.Recognize(testContext(t), gummy.StreamConfig{TargetLang: "en", SampleRate: 44100}, src, &collectSink{})

	var cfgErr *gummy.ConfigError
	if !errors.As(rerr, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", rerr)
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := gummy.New(""); err == nil {
		t.Fatal("expected an error for empty api key")
	}
}

// ── Handshake headers ─────────────────────────────────────────────────────────

func TestRecognize_HandshakeHeaders(t *testing.T) {
	var (
		mu            sync.Mutex
		gotAuth       string
		gotInspection string
	)

	srv := startServer(t, func(ctx context.Context, conn *websocket.Conn, r *http.Request) {
		mu.Lock()
		gotAuth = r.Header.Get("Authorization")
		gotInspection = r.Header.Get("X-DashScope-DataInspection")
		mu.Unlock()
		kindLoop(ctx, conn)
	})

	src, _ := pcmSource(t, 1024)
	client := newTestClient(t, srv)
	if _, err := client.Recognize(testContext(t), validConfig(), src, &collectSink{}); err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotAuth != "bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "bearer test-key")
	}
	if gotInspection != "enable" {
		t.Errorf("X-DashScope-DataInspection = %q, want enable", gotInspection)
	}
}

// kindLoop acknowledges run-task and finishes the session on finish-task.
func kindLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		kind, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if kind != websocket.MessageText {
			continue
		}
		switch controlAction(data) {
		case "run-task":
			_ = writeEvent(ctx, conn, taskStarted(""))
		case "finish-task":
			_ = writeEvent(ctx, conn, taskFinished(""))
			return
		}
	}
}

// ── Resilience ────────────────────────────────────────────────────────────────

func TestRecognize_SkipsMalformedEvents(t *testing.T) {
	srv := startServer(t, func(ctx context.Context, conn *websocket.Conn, _ *http.Request) {
		for {
			kind, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if kind != websocket.MessageText {
				continue
			}
			switch controlAction(data) {
			case "run-task":
				// Garbage and unknown events must not kill the session.
				_ = conn.Write(ctx, websocket.MessageText, []byte(`{not json`))
				_ = conn.Write(ctx, websocket.MessageText, []byte(`{"header":{}}`))
				_ = writeEvent(ctx, conn, map[string]any{"header": map[string]any{"event": "mystery-event"}})
			case "finish-task":
				_ = writeEvent(ctx, conn, resultGenerated("still alive", true))
				_ = writeEvent(ctx, conn, taskFinished(""))
				return
			}
		}
	})

	src, _ := pcmSource(t, 2048)
	sink := &collectSink{}
	client := newTestClient(t, srv)

	if _, err := client.Recognize(testContext(t), validConfig(), src, sink); err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(sink.recognitions) != 1 || sink.recognitions[0].Text != "still alive" {
		t.Errorf("unexpected results after malformed events: %+v", sink.recognitions)
	}
}

// ── Sink behaviour ────────────────────────────────────────────────────────────

func TestChannelSink_CloseIsIdempotent(t *testing.T) {
	sink := gummy.NewChannelSink(4)
	sink.Recognition(gummy.Result{Text: "a"})
	sink.Close()
	sink.Close() // must not panic

	r, ok := <-sink.Recognitions()
	if !ok || r.Text != "a" {
		t.Errorf("buffered result lost: %+v ok=%v", r, ok)
	}
	if _, ok := <-sink.Recognitions(); ok {
		t.Error("recognitions channel should be closed")
	}
	if _, ok := <-sink.Translations(); ok {
		t.Error("translations channel should be closed")
	}
}
