// Package pipeline is the end-to-end driver: it walks a job's sources
// through lazy resolution and runs each emitted task through the history
// predicate, the subtitle short-circuit, audio acquisition, transcription,
// and artifact emission.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"scribe/internal/acquire"
	"scribe/internal/artifacts"
	"scribe/internal/config"
	"scribe/internal/fileutil"
	"scribe/internal/history"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/resolver"
	"scribe/internal/services"
	"scribe/internal/services/ytdlp"
	"scribe/internal/textutil"
	"scribe/internal/transcribe"
)

// Remote is the downloader surface the pipeline needs beyond resolution.
type Remote interface {
	Probe(ctx context.Context, url string) (*ytdlp.Metadata, error)
	DownloadSubtitles(ctx context.Context, url, languageCode, targetDir string) (string, error)
}

// Acquirer fetches task audio.
type Acquirer interface {
	Acquire(ctx context.Context, req acquire.Request) (string, error)
}

// Transcriber runs one transcription.
type Transcriber interface {
	Run(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// LiveTranscriber runs the live-stream pipeline for one task.
type LiveTranscriber interface {
	Run(ctx context.Context, url string, req transcribe.Request, workDir, finalSRTPath string) error
}

// TaskResolver expands a source into tasks.
type TaskResolver interface {
	Resolve(ctx context.Context, source string) <-chan resolver.Task
}

// Options carry the per-run flags.
type Options struct {
	Model    string
	Language string
	Device   string
	Compute  string

	Force        bool
	ForceRetry   bool
	IgnoreSubs   bool
	CrossTier    bool
	Live         bool
	ForceDevice  bool
	LaunchPlayer bool
}

// Deps are the pipeline's collaborators.
type Deps struct {
	Store    *jobs.Store
	History  *history.Store
	Resolver TaskResolver
	Remote   Remote
	Acquirer Acquirer
	Driver   Transcriber
	Live     LiveTranscriber
	Log      *slog.Logger
}

// Pipeline processes jobs task by task.
type Pipeline struct {
	cfg  *config.Config
	deps Deps
	opts Options
	log  *slog.Logger

	launch func(shPath string)
}

// New assembles a Pipeline.
func New(cfg *config.Config, deps Deps, opts Options) *Pipeline {
	log := deps.Log
	if log == nil {
		log = logging.NewNop()
	}
	return &Pipeline{cfg: cfg, deps: deps, opts: opts, log: log, launch: launchPlayer}
}

// WithLauncher sets a custom player launcher (for testing).
func (p *Pipeline) WithLauncher(launch func(shPath string)) {
	p.launch = launch
}

// ProcessJob runs every task the job's sources resolve to, sequentially, and
// finalizes the job status. Tasks already terminal from a prior run are
// skipped without re-resolution work beyond the stream itself.
func (p *Pipeline) ProcessJob(ctx context.Context, jobID int64) (jobs.Counts, error) {
	job, err := p.deps.Store.GetJob(jobID)
	if err != nil {
		return jobs.Counts{}, err
	}
	known := job.TerminalSources()

	for _, source := range job.Sources {
		for task := range p.deps.Resolver.Resolve(ctx, source) {
			if ctx.Err() != nil {
				return p.finalize(ctx, jobID)
			}
			if _, done := known[task.Source]; done {
				p.log.Info("task already finished in a prior run",
					logging.String("source", task.Source))
				continue
			}
			if err := p.deps.Store.AppendTask(jobID, jobs.Task{
				Source: task.Source,
				ItemID: task.ItemID,
				Title:  task.Title,
			}); err != nil {
				return jobs.Counts{}, err
			}

			taskCtx := services.WithRequestID(
				services.WithItemID(services.WithJobID(ctx, jobID), task.ItemID),
				uuid.NewString())
			if err := p.processTask(taskCtx, jobID, task); err != nil {
				p.log.Error("task failed",
					logging.String("source", task.Source),
					logging.Error(err))
				if storeErr := p.deps.Store.SetTaskError(jobID, task.Source, err.Error()); storeErr != nil {
					return jobs.Counts{}, storeErr
				}
			}
		}
		if ctx.Err() != nil {
			break
		}
	}
	return p.finalize(ctx, jobID)
}

func (p *Pipeline) finalize(ctx context.Context, jobID int64) (jobs.Counts, error) {
	job, err := p.deps.Store.GetJob(jobID)
	if err != nil {
		return jobs.Counts{}, err
	}
	counts := job.TaskCounts()
	if ctx.Err() != nil {
		// Interrupted runs stay non-terminal so --continue picks them up.
		return counts, ctx.Err()
	}
	status := jobs.JobCompleted
	if counts.Total > 0 && counts.Failed == counts.Total {
		status = jobs.JobFailed
	}
	if err := p.deps.Store.UpdateJobStatus(jobID, status); err != nil {
		return counts, err
	}
	return counts, nil
}

func (p *Pipeline) processTask(ctx context.Context, jobID int64, task resolver.Task) error {
	model := p.opts.Model
	requestID, _ := services.RequestIDFromContext(ctx)
	log := p.log.With(
		logging.String(logging.FieldItemID, task.ItemID),
		logging.String(logging.FieldCorrelationID, requestID))

	if !p.opts.ForceRetry && p.deps.History.Covered(task.ItemID, model, p.opts.CrossTier) {
		log.Info("history already covers this item", logging.String("model", model))
		return p.deps.Store.UpdateTaskStatus(jobID, task.Source, jobs.TaskSkipped, task.Title)
	}

	if err := p.deps.Store.UpdateTaskStatus(jobID, task.Source, jobs.TaskProcessing, task.Title); err != nil {
		return err
	}

	outDir := filepath.Join(p.cfg.OutputDir, textutil.ChannelDirName(task.Uploader))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ensure channel directory: %w", err)
	}
	base := fmt.Sprintf("%s_%s.%s", datePrefix(task.Timestamp), textutil.SanitizeFileName(task.Title), model)
	targetSRT := filepath.Join(outDir, base+".srt")

	if p.opts.Live && !task.Local {
		return p.processLive(ctx, jobID, task, model, targetSRT)
	}

	if !task.Local && !p.opts.IgnoreSubs && p.cfg.Subtitles.UseExisting {
		if done, err := p.shortCircuit(ctx, jobID, task, model, targetSRT, log); done || err != nil {
			return err
		}
	}

	req := acquire.Request{
		OutputTemplate: filepath.Join(outDir, base),
		Force:          p.opts.Force,
	}
	if task.Local {
		req.LocalPath = task.Source
	} else {
		req.URL = task.Source
	}
	audio, err := p.deps.Acquirer.Acquire(ctx, req)
	if err != nil {
		return err
	}

	if err := p.deps.Store.UpdateTaskStatus(jobID, task.Source, jobs.TaskTranscribing, ""); err != nil {
		return err
	}
	result, err := p.deps.Driver.Run(ctx, transcribe.Request{
		AudioPath:     audio,
		Model:         model,
		TargetSRTPath: targetSRT,
		Language:      p.opts.Language,
		Device:        p.opts.Device,
		Compute:       p.opts.Compute,
		ResumeAllowed: true,
		ForceDevice:   p.opts.ForceDevice,
	})
	if err != nil {
		return err
	}
	log.Info("transcription complete",
		logging.String("model", result.Model),
		logging.Int("segments", result.Segments),
		logging.Bool("resumed", result.Resumed))

	if err := artifacts.WriteCompanions(targetSRT, task.Source); err != nil {
		return err
	}
	if err := p.deps.History.Append(task.ItemID, result.Model); err != nil {
		return err
	}
	if err := p.deps.Store.UpdateTaskStatus(jobID, task.Source, jobs.TaskCompleted, ""); err != nil {
		return err
	}
	p.maybeLaunch(targetSRT)
	return nil
}

// shortCircuit downloads an existing human-authored subtitle track instead
// of transcribing. Returns done=true when the task finished here.
func (p *Pipeline) shortCircuit(ctx context.Context, jobID int64, task resolver.Task, model, targetSRT string, log *slog.Logger) (bool, error) {
	meta, err := p.deps.Remote.Probe(ctx, task.Source)
	if err != nil {
		log.Warn("subtitle probe failed, transcribing instead", logging.Error(err))
		return false, nil
	}
	preferred := []string{meta.Language, p.opts.Language, p.cfg.Subtitles.PreferredLanguage}
	track, ok := meta.HumanSubtitle(preferred)
	if !ok {
		return false, nil
	}

	downloaded, err := p.deps.Remote.DownloadSubtitles(ctx, task.Source, track.Language, p.cfg.WorkDir)
	if err != nil {
		log.Warn("subtitle download failed, transcribing instead", logging.Error(err))
		return false, nil
	}
	if err := fileutil.MoveFile(downloaded, targetSRT); err != nil {
		return false, err
	}
	log.Info("using existing subtitles", logging.String("language", track.Language))

	if err := artifacts.WriteCompanions(targetSRT, task.Source); err != nil {
		return true, err
	}
	if err := p.deps.History.Append(task.ItemID, model); err != nil {
		return true, err
	}
	if err := p.deps.Store.UpdateTaskStatus(jobID, task.Source, jobs.TaskSkipped, ""); err != nil {
		return true, err
	}
	p.maybeLaunch(targetSRT)
	return true, nil
}

func (p *Pipeline) processLive(ctx context.Context, jobID int64, task resolver.Task, model, targetSRT string) error {
	if err := p.deps.Store.UpdateTaskStatus(jobID, task.Source, jobs.TaskTranscribing, ""); err != nil {
		return err
	}
	workDir := filepath.Join(p.cfg.WorkDir, "live", task.ItemID)
	err := p.deps.Live.Run(ctx, task.Source, transcribe.Request{
		Model:       model,
		Language:    p.opts.Language,
		Device:      p.opts.Device,
		Compute:     p.opts.Compute,
		ForceDevice: p.opts.ForceDevice,
	}, workDir, targetSRT)
	if err != nil {
		return err
	}
	if err := artifacts.WriteCompanions(targetSRT, task.Source); err != nil {
		return err
	}
	if err := p.deps.History.Append(task.ItemID, model); err != nil {
		return err
	}
	return p.deps.Store.UpdateTaskStatus(jobID, task.Source, jobs.TaskCompleted, "")
}

func (p *Pipeline) maybeLaunch(targetSRT string) {
	if !p.opts.LaunchPlayer {
		return
	}
	shPath := trimSRT(targetSRT) + ".sh"
	p.launch(shPath)
}

func trimSRT(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}

func launchPlayer(shPath string) {
	cmd := exec.Command("sh", shPath)
	_ = cmd.Start()
}

// datePrefix renders the item's upload date for filenames, falling back to
// today for items without a timestamp.
func datePrefix(unixTimestamp int64) string {
	if unixTimestamp <= 0 {
		return time.Now().UTC().Format("20060102")
	}
	return time.Unix(unixTimestamp, 0).UTC().Format("20060102")
}
