package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/repwatch/internal/hook"
	"github.com/ayusman/repwatch/internal/metrics"
	"github.com/ayusman/repwatch/internal/pose"
	"github.com/ayusman/repwatch/internal/repetition"
	"github.com/ayusman/repwatch/internal/server"
	"github.com/ayusman/repwatch/internal/session"
	"github.com/ayusman/repwatch/internal/sink"
	"github.com/ayusman/repwatch/internal/store"
	"github.com/ayusman/repwatch/testdata"
)

// hookScript logs the event name of every request it receives.
const hookScript = `#!/bin/sh
INPUT=$(cat)
case "$INPUT" in
  *'"event":"episode"'*) echo episode >> calls.log ;;
  *'"event":"summary"'*) echo summary >> calls.log ;;
esac
echo '{"success":true}'
`

func installHook(t *testing.T, dir string) string {
	t.Helper()

	hookDir := filepath.Join(dir, "notify")
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}
	manifest := `{"name":"notify","version":"1.0.0","executable":"run.sh","events":["episode","summary"]}`
	if err := os.WriteFile(filepath.Join(hookDir, hook.ManifestFile), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, "run.sh"), []byte(hookScript), 0755); err != nil {
		t.Fatalf("failed to write hook: %v", err)
	}
	return hookDir
}

func TestE2E_CompleteSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("hooks are shell scripts")
	}

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	broadcaster := server.NewBroadcaster(nil)

	srv := server.New(server.Config{Store: s, Broadcaster: broadcaster, Gatherer: reg})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// live client
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	for deadline := time.Now().Add(2 * time.Second); broadcaster.ClientCount() == 0; {
		if time.Now().After(deadline) {
			t.Fatal("websocket client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hooksDir := filepath.Join(tmpDir, "hooks")
	hookDir := installHook(t, hooksDir)
	hooks := hook.NewManager(hooksDir)
	if err := hooks.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	hookSink := hook.NewSink(hooks, hook.NewExecutor(5000), nil)
	defer hookSink.Close()

	rec := sink.NewRecorder()
	src, err := testdata.OpenStream("gaps.jsonl")
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}

	runner, err := session.New(session.Config{
		Detector:      repetition.DefaultConfig(),
		SourceName:    "file:gaps.jsonl",
		MinVisibility: 0.5,
		Store:         s,
		Sink: sink.Multi(
			rec,
			broadcaster,
			hookSink,
		),
		Metrics: m,
	}, src)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}

	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	t.Run("Summary", func(t *testing.T) {
		if sum.Samples != 66 || sum.MissingPoses != 8 {
			t.Errorf("samples = %d, missing = %d, want 66 and 8", sum.Samples, sum.MissingPoses)
		}
		if sum.Events != 34 || sum.Episodes != 1 {
			t.Errorf("events = %d, episodes = %d, want 34 and 1", sum.Events, sum.Episodes)
		}
		if got := len(rec.Triggered()); got != sum.Events {
			t.Errorf("triggered events seen by sink = %d, want %d", got, sum.Events)
		}
	})

	t.Run("SessionAPI", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions/" + runner.ID())
		if err != nil {
			t.Fatalf("GET session error = %v", err)
		}
		defer resp.Body.Close()

		var got struct {
			Events   int  `json:"events"`
			Episodes int  `json:"episodes"`
			Samples  int  `json:"samples"`
			Running  bool `json:"running"`
		}
		json.NewDecoder(resp.Body).Decode(&got)
		if got.Events != 34 || got.Episodes != 1 || got.Samples != 66 || got.Running {
			t.Errorf("stored session = %+v", got)
		}
	})

	t.Run("DetectionsAPI", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions/" + runner.ID() + "/detections")
		if err != nil {
			t.Fatalf("GET detections error = %v", err)
		}
		defer resp.Body.Close()

		var got struct {
			Detections []struct {
				Seq          int  `json:"seq"`
				EpisodeStart bool `json:"episode_start"`
			} `json:"detections"`
		}
		json.NewDecoder(resp.Body).Decode(&got)
		if len(got.Detections) != 34 {
			t.Fatalf("detections = %d, want 34", len(got.Detections))
		}
		if !got.Detections[0].EpisodeStart || got.Detections[1].EpisodeStart {
			t.Error("only the first detection should start the episode")
		}
	})

	t.Run("LiveEvents", func(t *testing.T) {
		events, triggered := 0, 0
		for {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var msg server.Message
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("ReadJSON() error = %v after %d events", err, events)
			}
			if msg.Type == "summary" {
				break
			}
			events++
			var ev sink.Event
			json.Unmarshal(msg.Payload, &ev)
			if ev.Result.Triggered {
				triggered++
			}
		}
		if events != 66 || triggered != 34 {
			t.Errorf("live events = %d (%d triggered), want 66 (34)", events, triggered)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics error = %v", err)
		}
		defer resp.Body.Close()

		var body bytes.Buffer
		body.ReadFrom(resp.Body)
		for _, want := range []string{
			"repwatch_samples_total 66",
			"repwatch_events_total 34",
			"repwatch_episodes_total 1",
			"repwatch_missing_poses_total 8",
		} {
			if !strings.Contains(body.String(), want) {
				t.Errorf("metrics missing %q", want)
			}
		}
	})

	t.Run("Hooks", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(hookDir, "calls.log"))
		if err != nil {
			t.Fatalf("hook did not run: %v", err)
		}
		if got := strings.Fields(string(data)); strings.Join(got, ",") != "episode,summary" {
			t.Errorf("hook calls = %v, want [episode summary]", got)
		}
	})
}

// streamOverWebSocket serves every line of an embedded stream as one text
// message and then closes normally.
func streamOverWebSocket(t *testing.T, name string) *httptest.Server {
	t.Helper()

	data, err := testdata.LoadStream(name)
	if err != nil {
		t.Fatalf("LoadStream() error = %v", err)
	}

	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			if err := conn.WriteMessage(websocket.TextMessage, scanner.Bytes()); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		// wait for the client to acknowledge
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		conn.ReadMessage()
	}))
}

func TestE2E_WebSocketSource(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	feed := streamOverWebSocket(t, "waving.jsonl")
	defer feed.Close()

	ctx := context.Background()
	src, err := pose.Open(ctx, "ws"+strings.TrimPrefix(feed.URL, "http"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	runner, err := session.New(session.Config{Detector: repetition.DefaultConfig()}, src)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}

	sum, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Samples != 80 || sum.Events != 38 || sum.Episodes != 1 {
		t.Errorf("summary = %+v, want 80 samples, 38 events, 1 episode", sum)
	}
}

func TestE2E_RestingProducesNoEvents(t *testing.T) {
	src, err := testdata.OpenStream("resting.jsonl")
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}

	runner, err := session.New(session.Config{Detector: repetition.DefaultConfig()}, src)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}

	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Samples != 30 || sum.Events != 0 {
		t.Errorf("summary = %+v, want 30 samples and no events", sum)
	}
}
