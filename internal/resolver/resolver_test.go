package resolver_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/internal/metacache"
	"scribe/internal/resolver"
	"scribe/internal/services/ytdlp"
)

type fakeProber struct {
	mu      sync.Mutex
	probes  map[string]int
	entries []string
	fail    map[string]bool
}

func newFakeProber(entries ...string) *fakeProber {
	return &fakeProber{
		probes:  make(map[string]int),
		entries: entries,
		fail:    make(map[string]bool),
	}
}

func (f *fakeProber) Probe(ctx context.Context, url string) (*ytdlp.Metadata, error) {
	f.mu.Lock()
	f.probes[url]++
	shouldFail := f.fail[url]
	f.mu.Unlock()
	if shouldFail {
		return nil, errors.New("probe failed")
	}
	return &ytdlp.Metadata{Title: "title for " + url, Uploader: "Channel", Timestamp: 1700000000}, nil
}

func (f *fakeProber) PlaylistEntries(ctx context.Context, url string) ([]string, error) {
	return f.entries, nil
}

func (f *fakeProber) probeCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes[url]
}

func collect(ch <-chan resolver.Task) []resolver.Task {
	var tasks []resolver.Task
	for task := range ch {
		tasks = append(tasks, task)
	}
	return tasks
}

func TestResolveSingleURL(t *testing.T) {
	prober := newFakeProber()
	r := resolver.New(prober)

	tasks := collect(r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ"))
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Source != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("source = %s", task.Source)
	}
	if task.ItemID != "dQw4w9WgXcQ" {
		t.Errorf("item id = %s", task.ItemID)
	}
	if task.Title != "title for "+task.Source {
		t.Errorf("title = %s", task.Title)
	}
	if task.Local {
		t.Error("remote task flagged local")
	}
}

func TestResolveSingleURLProbeFallback(t *testing.T) {
	prober := newFakeProber()
	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	prober.fail[url] = true
	r := resolver.New(prober)

	tasks := collect(r.Resolve(context.Background(), url))
	if len(tasks) != 1 {
		t.Fatalf("expected fallback task, got %d", len(tasks))
	}
	if tasks[0].Title != "dQw4w9WgXcQ" {
		t.Errorf("fallback title = %s", tasks[0].Title)
	}
}

func TestResolveLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lecture.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := resolver.New(newFakeProber())
	tasks := collect(r.Resolve(context.Background(), path))
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Title != "lecture" {
		t.Errorf("title = %s", tasks[0].Title)
	}
	if !tasks[0].Local {
		t.Error("local file should be flagged local")
	}
}

func TestResolveDirectorySortedWalk(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.wav", "a.mp3", "notes.txt", "sub/c.flac"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r := resolver.New(newFakeProber())
	tasks := collect(r.Resolve(context.Background(), dir))
	if len(tasks) != 3 {
		t.Fatalf("expected 3 audio tasks, got %d: %+v", len(tasks), tasks)
	}
	if tasks[0].Title != "a" || tasks[1].Title != "b" || tasks[2].Title != "c" {
		t.Errorf("walk order not sorted: %v %v %v", tasks[0].Title, tasks[1].Title, tasks[2].Title)
	}
}

func TestResolveChannelFanOut(t *testing.T) {
	var entries []string
	for i := 0; i < 12; i++ {
		entries = append(entries, fmt.Sprintf("https://www.youtube.com/watch?v=vid%08d", i))
	}
	prober := newFakeProber(entries...)
	prober.fail["https://www.youtube.com/watch?v=vid00000003"] = true

	r := resolver.New(prober)
	tasks := collect(r.Resolve(context.Background(), "https://www.youtube.com/@example"))

	if len(tasks) != 11 {
		t.Fatalf("expected 11 tasks (one probe failed), got %d", len(tasks))
	}
	seen := make(map[string]bool)
	for _, task := range tasks {
		if task.Title == "" {
			t.Errorf("channel task missing title: %+v", task)
		}
		seen[task.Source] = true
	}
	if len(seen) != 11 {
		t.Errorf("expected 11 distinct sources, got %d", len(seen))
	}
}

type gatedProber struct {
	*fakeProber
	mu       sync.Mutex
	inFlight int
	maxSeen  int
	release  chan struct{}
}

func (g *gatedProber) Probe(ctx context.Context, url string) (*ytdlp.Metadata, error) {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.maxSeen {
		g.maxSeen = g.inFlight
	}
	g.mu.Unlock()

	<-g.release

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	return g.fakeProber.Probe(ctx, url)
}

func TestResolveChannelHonorsWorkerCount(t *testing.T) {
	var entries []string
	for i := 0; i < 8; i++ {
		entries = append(entries, fmt.Sprintf("https://www.youtube.com/watch?v=pool%07d", i))
	}
	prober := &gatedProber{
		fakeProber: newFakeProber(entries...),
		release:    make(chan struct{}),
	}

	r := resolver.New(prober, resolver.WithWorkers(2))
	ch := r.Resolve(context.Background(), "https://www.youtube.com/@example")

	done := make(chan []resolver.Task)
	go func() { done <- collect(ch) }()

	// Let both workers park inside Probe before releasing them.
	for {
		prober.mu.Lock()
		parked := prober.inFlight
		prober.mu.Unlock()
		if parked >= 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	// A larger pool would keep parking workers here.
	time.Sleep(20 * time.Millisecond)
	close(prober.release)

	tasks := <-done
	if len(tasks) != 8 {
		t.Fatalf("expected 8 tasks, got %d", len(tasks))
	}
	prober.mu.Lock()
	maxSeen := prober.maxSeen
	prober.mu.Unlock()
	if maxSeen != 2 {
		t.Errorf("concurrent probes = %d, want 2", maxSeen)
	}
}

func TestProbeMemoization(t *testing.T) {
	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	prober := newFakeProber()
	r := resolver.New(prober)

	collect(r.Resolve(context.Background(), url))
	collect(r.Resolve(context.Background(), url))

	if count := prober.probeCount(url); count != 1 {
		t.Errorf("expected 1 probe for repeated resolution, got %d", count)
	}
}

func TestProbeCacheWriteFailureIsLogged(t *testing.T) {
	cache, err := metacache.Open(filepath.Join(t.TempDir(), "probe.db"), time.Hour)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	cache.Close()

	var logged bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logged, nil))
	prober := newFakeProber()
	r := resolver.New(prober, resolver.WithMetaCache(cache), resolver.WithLogger(log))

	tasks := collect(r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ"))
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task despite cache failure, got %d", len(tasks))
	}
	if !strings.Contains(logged.String(), "probe cache write failed") {
		t.Errorf("expected cache write warning, got: %s", logged.String())
	}
}

func TestConsumerMayStopPulling(t *testing.T) {
	var entries []string
	for i := 0; i < 50; i++ {
		entries = append(entries, fmt.Sprintf("https://www.youtube.com/watch?v=gen%08d", i))
	}
	prober := newFakeProber(entries...)
	r := resolver.New(prober)

	ctx, cancel := context.WithCancel(context.Background())
	ch := r.Resolve(ctx, "https://www.youtube.com/@example")
	<-ch
	cancel()

	// Channel must close once workers observe cancellation.
	for range ch {
	}
}
