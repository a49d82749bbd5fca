// Package resolver turns user sources into a lazy stream of per-item tasks.
// Channels and playlists fan out through a bounded worker pool of metadata
// probes; local directories walk in sorted order.
package resolver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"scribe/internal/ident"
	"scribe/internal/logging"
	"scribe/internal/metacache"
	"scribe/internal/services/ytdlp"
)

// defaultProbeWorkers bounds parallel metadata probes during channel fan-out.
const defaultProbeWorkers = 5

// audioExtensions are the local file types that produce tasks during a
// directory walk.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".mkv":  true,
}

// Task is one unit of work emitted by resolution.
type Task struct {
	Source    string
	ItemID    string
	Title     string
	Uploader  string
	Timestamp int64
	Kind      ident.Kind
	Local     bool
}

// Prober is the metadata surface the resolver needs from the downloader.
type Prober interface {
	Probe(ctx context.Context, url string) (*ytdlp.Metadata, error)
	PlaylistEntries(ctx context.Context, url string) ([]string, error)
}

type probeResult struct {
	title     string
	uploader  string
	timestamp int64
}

// Resolver expands sources into tasks.
type Resolver struct {
	prober  Prober
	cache   *metacache.Store
	limiter *rate.Limiter
	workers int
	log     *slog.Logger

	mu   sync.Mutex
	memo map[string]probeResult
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithMetaCache attaches a persistent probe cache.
func WithMetaCache(cache *metacache.Store) Option {
	return func(r *Resolver) { r.cache = cache }
}

// WithProbeRate caps metadata probes per second during fan-out.
func WithProbeRate(perSecond float64) Option {
	return func(r *Resolver) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithWorkers sets the channel fan-out probe worker count.
func WithWorkers(workers int) Option {
	return func(r *Resolver) {
		if workers > 0 {
			r.workers = workers
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// New returns a Resolver backed by the given prober.
func New(prober Prober, opts ...Option) *Resolver {
	r := &Resolver{
		prober:  prober,
		limiter: rate.NewLimiter(rate.Inf, 1),
		workers: defaultProbeWorkers,
		log:     logging.NewNop(),
		memo:    make(map[string]probeResult),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve lazily expands one source. The returned channel closes when the
// source is exhausted or ctx is canceled; the consumer may simply stop
// pulling.
func (r *Resolver) Resolve(ctx context.Context, source string) <-chan Task {
	out := make(chan Task)
	go func() {
		defer close(out)
		r.resolveInto(ctx, source, out)
	}()
	return out
}

func (r *Resolver) resolveInto(ctx context.Context, source string, out chan<- Task) {
	if info, err := os.Stat(source); err == nil {
		if info.IsDir() {
			r.emitDirectory(ctx, source, out)
		} else {
			emit(ctx, out, localTask(source))
		}
		return
	}

	if ident.IsChannelOrPlaylist(source) || ident.IsTwitchChannelVideos(source) {
		r.emitChannel(ctx, source, out)
		return
	}

	r.emitSingle(ctx, source, out)
}

func localTask(path string) Task {
	ref := ident.Normalize(path)
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Task{
		Source: path,
		ItemID: ref.ItemID,
		Title:  title,
		Kind:   ident.KindLocal,
		Local:  true,
	}
}

// emitDirectory walks the tree in lexicographic order and emits one task per
// recognized audio file.
func (r *Resolver) emitDirectory(ctx context.Context, root string, out chan<- Task) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if audioExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		r.log.Warn("directory walk failed", logging.String("path", root), logging.Error(err))
		return
	}
	sort.Strings(files)
	for _, file := range files {
		if !emit(ctx, out, localTask(file)) {
			return
		}
	}
}

// emitSingle resolves one remote URL into one task.
func (r *Resolver) emitSingle(ctx context.Context, source string, out chan<- Task) {
	ref := ident.Normalize(source)
	task := Task{Source: ref.Canonical, ItemID: ref.ItemID, Kind: ref.Kind}

	if result, err := r.probe(ctx, ref.Canonical); err == nil {
		task.Title = result.title
		task.Uploader = result.uploader
		task.Timestamp = result.timestamp
	} else {
		r.log.Warn("metadata probe failed, using item id as title",
			logging.String("url", ref.Canonical), logging.Error(err))
		task.Title = ref.ItemID
	}
	emit(ctx, out, task)
}

// emitChannel enumerates a channel or playlist and probes entries with
// bounded parallelism, emitting tasks in completion order.
func (r *Resolver) emitChannel(ctx context.Context, source string, out chan<- Task) {
	entries, err := r.prober.PlaylistEntries(ctx, source)
	if err != nil {
		r.log.Warn("playlist enumeration failed", logging.String("url", source), logging.Error(err))
		return
	}

	urls := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range urls {
				ref := ident.Normalize(url)
				task := Task{Source: ref.Canonical, ItemID: ref.ItemID, Kind: ref.Kind}
				if result, probeErr := r.probe(ctx, ref.Canonical); probeErr == nil {
					task.Title = result.title
					task.Uploader = result.uploader
					task.Timestamp = result.timestamp
				} else {
					r.log.Warn("entry probe failed, skipping",
						logging.String("url", ref.Canonical), logging.Error(probeErr))
					continue
				}
				if !emit(ctx, out, task) {
					return
				}
			}
		}()
	}

feed:
	for _, entry := range entries {
		select {
		case urls <- entry:
		case <-ctx.Done():
			break feed
		}
	}
	close(urls)
	wg.Wait()
}

// probe fetches metadata with run-scoped memoization and the optional
// persistent cache in front of the network call.
func (r *Resolver) probe(ctx context.Context, url string) (probeResult, error) {
	r.mu.Lock()
	if cached, ok := r.memo[url]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	if r.cache != nil {
		if entry, err := r.cache.Get(ctx, url); err == nil && entry != nil {
			result := probeResult{title: entry.Title, uploader: entry.Uploader, timestamp: entry.UploadedAt}
			r.remember(url, result)
			return result, nil
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return probeResult{}, err
	}
	meta, err := r.prober.Probe(ctx, url)
	if err != nil {
		return probeResult{}, err
	}
	result := probeResult{title: meta.Title, uploader: meta.Uploader, timestamp: meta.Timestamp}
	r.remember(url, result)

	if r.cache != nil {
		err := r.cache.Put(ctx, metacache.Entry{
			URL:        url,
			Title:      meta.Title,
			Uploader:   meta.Uploader,
			UploadedAt: meta.Timestamp,
		})
		if err != nil {
			r.log.Warn("probe cache write failed", logging.String("url", url), logging.Error(err))
		}
	}
	return result, nil
}

func (r *Resolver) remember(url string, result probeResult) {
	r.mu.Lock()
	r.memo[url] = result
	r.mu.Unlock()
}

func emit(ctx context.Context, out chan<- Task, task Task) bool {
	select {
	case out <- task:
		return true
	case <-ctx.Done():
		return false
	}
}
