package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/velvethub/backend/internal/stream"
)

type sessionCreatorStub struct {
	du   stream.DirectUpload
	err  error
	size int64
	name string
}

func (s *sessionCreatorStub) CreateDirectUpload(ctx context.Context, size int64, filename string) (stream.DirectUpload, error) {
	s.size = size
	s.name = filename
	return s.du, s.err
}

type statusStub struct {
	mu       sync.Mutex
	statuses []stream.VideoStatus
	errs     []error
	calls    int
}

func (s *statusStub) GetVideo(ctx context.Context, uid string) (stream.VideoStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.statuses[i], err
}

func (s *statusStub) PlaybackURL(uid string) string {
	return "https://customer-demo.cloudflarestream.com/" + uid + "/manifest/video.m3u8"
}

func (s *statusStub) ThumbnailURL(uid string) string {
	return "https://customer-demo.cloudflarestream.com/" + uid + "/thumbnails/thumbnail.jpg"
}

type catalogStub struct {
	meta VideoMeta
	err  error
}

func (c *catalogStub) SubmitVideo(ctx context.Context, meta VideoMeta) error {
	c.meta = meta
	return c.err
}

func validInput(uploadTarget string) Input {
	_ = uploadTarget
	return Input{
		Video:       bytes.NewReader(bytes.Repeat([]byte("v"), 64)),
		VideoSize:   64,
		Filename:    "movie.mp4",
		Title:       "Sunset Sessions",
		Thumbnail:   FilePart{Name: "thumb.jpg", Content: strings.NewReader("thumb")},
		Slider:      FilePart{Name: "slider.jpg", Content: strings.NewReader("slider")},
		CategoryIDs: []string{"cat-1"},
	}
}

func uploadTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	var received int64
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
			return
		}
		chunk, _ := io.ReadAll(r.Body)
		received += int64(len(chunk))
		w.Header().Set("Upload-Offset", strconv.FormatInt(received, 10))
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestOrchestratorValidationFailsFast(t *testing.T) {
	sessions := &sessionCreatorStub{}
	o := &Orchestrator{Sessions: sessions, Status: &statusStub{statuses: []stream.VideoStatus{{}}}, Catalog: &catalogStub{}}

	cases := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"missing video", func(in *Input) { in.Video = nil }, "video file"},
		{"zero size", func(in *Input) { in.VideoSize = 0 }, "video file"},
		{"missing title", func(in *Input) { in.Title = "  " }, "title"},
		{"missing thumbnail", func(in *Input) { in.Thumbnail.Content = nil }, "thumbnail image"},
		{"missing slider", func(in *Input) { in.Slider.Content = nil }, "slider image"},
		{"no categories", func(in *Input) { in.CategoryIDs = nil }, "categories"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput("")
			tc.mutate(&in)

			_, err := o.Run(context.Background(), in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field: got %q want %q", ve.Field, tc.field)
			}
			if sessions.size != 0 {
				t.Error("validation failure must not create an upload session")
			}
		})
	}
}

func TestOrchestratorFullFlow(t *testing.T) {
	srv := uploadTestServer(t)
	defer srv.Close()

	sessions := &sessionCreatorStub{du: stream.DirectUpload{UploadURL: srv.URL, UID: "uid-123"}}
	status := &statusStub{statuses: []stream.VideoStatus{{State: "ready", Ready: true, DurationSeconds: 734}}}
	catalog := &catalogStub{}

	o := &Orchestrator{
		Sessions:        sessions,
		Status:          status,
		Catalog:         catalog,
		Transferrer:     Transferrer{ChunkSize: 32, RetryDelays: fastDelays()},
		Policy:          WaitForReady,
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 3,
	}

	result, err := o.Run(context.Background(), validInput(srv.URL))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.UID != "uid-123" || result.DurationSeconds != 734 || result.StillProcessing {
		t.Fatalf("unexpected result: %+v", result)
	}
	if sessions.size != 64 || sessions.name != "movie.mp4" {
		t.Errorf("session init mismatch: size=%d name=%q", sessions.size, sessions.name)
	}
	if catalog.meta.StreamUID != "uid-123" || catalog.meta.DurationSeconds != 734 {
		t.Errorf("catalog submission mismatch: %+v", catalog.meta)
	}
	if !strings.Contains(catalog.meta.PlaybackURL, "uid-123") {
		t.Errorf("playback url missing uid: %q", catalog.meta.PlaybackURL)
	}
}

func TestOrchestratorSessionFailureIsTerminal(t *testing.T) {
	sessions := &sessionCreatorStub{err: errors.New("invalid credentials")}
	catalog := &catalogStub{}
	o := &Orchestrator{Sessions: sessions, Status: &statusStub{statuses: []stream.VideoStatus{{}}}, Catalog: catalog}

	_, err := o.Run(context.Background(), validInput(""))
	if err == nil {
		t.Fatal("session failure must abort the flow")
	}
	if catalog.meta.StreamUID != "" {
		t.Fatal("nothing should be persisted after a session failure")
	}
}

func TestOrchestratorPollExhaustionIsSoftFailure(t *testing.T) {
	srv := uploadTestServer(t)
	defer srv.Close()

	sessions := &sessionCreatorStub{du: stream.DirectUpload{UploadURL: srv.URL, UID: "uid-slow"}}
	status := &statusStub{statuses: []stream.VideoStatus{{State: "inprogress", Ready: false}}}
	catalog := &catalogStub{}

	o := &Orchestrator{
		Sessions:        sessions,
		Status:          status,
		Catalog:         catalog,
		Transferrer:     Transferrer{ChunkSize: 32, RetryDelays: fastDelays()},
		Policy:          WaitForReady,
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 2,
	}

	result, err := o.Run(context.Background(), validInput(srv.URL))
	if err != nil {
		t.Fatalf("poll exhaustion must not fail the flow: %v", err)
	}

	if !result.StillProcessing {
		t.Error("result should flag the asset as still processing")
	}
	if result.DurationSeconds != 0 || catalog.meta.DurationSeconds != 0 {
		t.Error("unready asset must persist with duration zero")
	}
	if catalog.meta.StreamUID != "uid-slow" {
		t.Errorf("metadata should still be submitted: %+v", catalog.meta)
	}
}

func TestOrchestratorSkipPolling(t *testing.T) {
	srv := uploadTestServer(t)
	defer srv.Close()

	sessions := &sessionCreatorStub{du: stream.DirectUpload{UploadURL: srv.URL, UID: "uid-skip"}}
	status := &statusStub{statuses: []stream.VideoStatus{{State: "ready", Ready: true, DurationSeconds: 100}}}
	catalog := &catalogStub{}

	o := &Orchestrator{
		Sessions:    sessions,
		Status:      status,
		Catalog:     catalog,
		Transferrer: Transferrer{ChunkSize: 32, RetryDelays: fastDelays()},
		Policy:      SkipPolling,
	}

	result, err := o.Run(context.Background(), validInput(srv.URL))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if status.calls != 0 {
		t.Errorf("skip-polling must not query status, got %d calls", status.calls)
	}
	if result.DurationSeconds != 0 {
		t.Errorf("skip-polling persists duration zero, got %d", result.DurationSeconds)
	}
}

func TestOrchestratorCatalogFailure(t *testing.T) {
	srv := uploadTestServer(t)
	defer srv.Close()

	sessions := &sessionCreatorStub{du: stream.DirectUpload{UploadURL: srv.URL, UID: "uid-meta"}}
	status := &statusStub{statuses: []stream.VideoStatus{{State: "ready", Ready: true, DurationSeconds: 5}}}
	catalog := &catalogStub{err: errors.New("catalog down")}

	o := &Orchestrator{
		Sessions:        sessions,
		Status:          status,
		Catalog:         catalog,
		Transferrer:     Transferrer{ChunkSize: 32, RetryDelays: fastDelays()},
		Policy:          WaitForReady,
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 2,
	}

	_, err := o.Run(context.Background(), validInput(srv.URL))
	if err == nil {
		t.Fatal("catalog failure must surface")
	}
	if !strings.Contains(err.Error(), "uid-meta") {
		t.Errorf("error should name the stranded asset: %v", err)
	}
}
