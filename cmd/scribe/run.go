package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"scribe/internal/acquire"
	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/history"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/metacache"
	"scribe/internal/models"
	"scribe/internal/pipeline"
	"scribe/internal/resolver"
	"scribe/internal/services/ffmpeg"
	"scribe/internal/services/whisper"
	"scribe/internal/services/ytdlp"
	"scribe/internal/transcribe"
)

func run(ctx context.Context, flags *runFlags, args []string) error {
	cfg, _, _, err := config.Load(flags.configPath)
	if err != nil {
		return &exitError{code: 1, message: err.Error()}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return &exitError{code: 1, message: err.Error()}
	}

	log, err := logging.NewFromConfig(cfg)
	if err != nil {
		return &exitError{code: 1, message: err.Error()}
	}

	store, err := jobs.Open(cfg.JobStorePath())
	if err != nil {
		return &exitError{code: 1, message: err.Error()}
	}
	defer store.Close()

	if flags.list {
		all := store.ListJobs()
		if isatty.IsTerminal(os.Stdout.Fd()) {
			fmt.Println(renderJobsTable(all))
		} else {
			fmt.Println(renderJobsPlain(all))
		}
		return nil
	}

	if results := deps.RunAll(cfg); !deps.AllPassed(results) {
		for _, result := range results {
			if !result.Passed {
				fmt.Fprintf(os.Stderr, "preflight: %s: %s\n", result.Name, result.Detail)
			}
		}
		return &exitError{code: 1, message: "preflight checks failed"}
	}

	batches, opts, err := planRun(cfg, store, flags, args)
	if err != nil {
		return err
	}

	hist, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return &exitError{code: 1, message: err.Error()}
	}

	var cache *metacache.Store
	if cfg.MetaCache.Enabled {
		cache, err = metacache.Open(cfg.MetaCachePath(), time.Duration(cfg.MetaCache.MaxAge)*24*time.Hour)
		if err != nil {
			log.Warn("probe cache unavailable", logging.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	var totals jobs.Counts
	for _, batch := range batches {
		batchOpts := opts
		batchOpts.Model = batch.model
		pipe := buildPipeline(cfg, store, hist, cache, batchOpts, log)

		log.Info("processing job",
			logging.Int64("job_id", batch.jobID),
			logging.String("model", batch.model))
		counts, err := pipe.ProcessJob(ctx, batch.jobID)
		totals.Total += counts.Total
		totals.Completed += counts.Completed
		totals.Skipped += counts.Skipped
		totals.Failed += counts.Failed
		if err != nil {
			return err
		}
	}

	log.Info("run finished",
		logging.Int("tasks", totals.Total),
		logging.Int("completed", totals.Completed),
		logging.Int("skipped", totals.Skipped),
		logging.Int("failed", totals.Failed))
	if totals.Failed > 0 {
		return &exitError{code: 2, message: fmt.Sprintf("%d task(s) failed", totals.Failed)}
	}
	return nil
}

// batch is one job to process in this run.
type batch struct {
	jobID int64
	model string
}

// planRun translates flags and arguments into jobs plus pipeline options.
func planRun(cfg *config.Config, store *jobs.Store, flags *runFlags, args []string) ([]batch, pipeline.Options, error) {
	opts := pipeline.Options{
		Language:     firstNonEmpty(flags.language, cfg.Subtitles.PreferredLanguage),
		Force:        flags.force,
		ForceRetry:   flags.forceRetry,
		IgnoreSubs:   flags.ignoreSubs,
		CrossTier:    flags.crossTier || cfg.History.CrossTier,
		Live:         flags.live,
		LaunchPlayer: flags.launch,
	}

	device := cfg.Engine.Device
	forceDevice := false
	if flags.gpu {
		device = "cuda"
		forceDevice = true
	}
	if flags.device != "" {
		device = flags.device
		forceDevice = true
	}
	compute := cfg.Engine.ComputeType
	if flags.compute != "" {
		compute = flags.compute
	}
	if !validDevice(device) {
		return nil, opts, &exitError{code: 1, message: fmt.Sprintf("unknown device %q", device)}
	}
	if !validCompute(compute) {
		return nil, opts, &exitError{code: 1, message: fmt.Sprintf("unknown compute type %q", compute)}
	}
	opts.Device = device
	opts.Compute = compute
	opts.ForceDevice = forceDevice

	if flags.continueRun {
		job := store.LastUnfinished()
		if job == nil {
			return nil, opts, &exitError{code: 1, message: "no unfinished job to continue"}
		}
		opts.Model = job.Model
		return []batch{{jobID: job.ID, model: job.Model}}, opts, nil
	}

	if len(args) == 0 {
		return nil, opts, &exitError{code: 1, message: "MODEL argument required (or use --list / --continue)"}
	}
	model, chosenCompute, err := resolveModel(args[0], opts.Language)
	if err != nil {
		return nil, opts, err
	}
	if chosenCompute != "" && flags.compute == "" {
		opts.Compute = chosenCompute
	}
	opts.Model = model

	specs, err := collectSources(flags, args, model)
	if err != nil {
		return nil, opts, err
	}
	if len(specs) == 0 {
		return nil, opts, &exitError{code: 1, message: "no source given: pass SOURCE, --file, or --process-file"}
	}

	// One job per distinct model, in first-seen order.
	var order []string
	grouped := make(map[string][]string)
	for _, spec := range specs {
		if _, seen := grouped[spec.model]; !seen {
			order = append(order, spec.model)
		}
		grouped[spec.model] = append(grouped[spec.model], spec.source)
	}

	var batches []batch
	for _, m := range order {
		job, err := store.CreateJob(grouped[m], m)
		if err != nil {
			return nil, opts, err
		}
		batches = append(batches, batch{jobID: job.ID, model: m})
	}
	return batches, opts, nil
}

// resolveModel validates the model argument; "auto" picks the best model the
// device memory can hold, falling back to base on CPU.
func resolveModel(arg, language string) (model, compute string, err error) {
	if arg == "auto" {
		englishOnly := language == "en"
		if choice, ok := models.ChooseBest(englishOnly, 100); ok {
			return choice.Model, string(choice.Compute), nil
		}
		return "base", string(models.ComputeInt8), nil
	}
	if !models.IsKnown(arg) {
		return "", "", &exitError{code: 1, message: fmt.Sprintf("unknown model %q", arg)}
	}
	return arg, "", nil
}

func collectSources(flags *runFlags, args []string, defaultModel string) ([]sourceSpec, error) {
	var specs []sourceSpec
	if len(args) > 1 {
		specs = append(specs, sourceSpec{source: args[1], model: defaultModel})
	}
	if flags.localPath != "" {
		if _, err := os.Stat(flags.localPath); err != nil {
			return nil, &exitError{code: 1, message: fmt.Sprintf("local path %s: %v", flags.localPath, err)}
		}
		specs = append(specs, sourceSpec{source: flags.localPath, model: defaultModel})
	}
	if flags.processFile != "" {
		fromFile, err := parseProcessFile(flags.processFile, defaultModel)
		if err != nil {
			return nil, &exitError{code: 1, message: err.Error()}
		}
		specs = append(specs, fromFile...)
	}
	return specs, nil
}

func buildPipeline(cfg *config.Config, store *jobs.Store, hist *history.Store, cache *metacache.Store, opts pipeline.Options, log *slog.Logger) *pipeline.Pipeline {
	client := ytdlp.NewClient(cfg.Downloader.Binary,
		ytdlp.WithCookiesBrowser(cfg.Downloader.CookiesBrowser),
		ytdlp.WithProbeTimeout(time.Duration(cfg.Downloader.ProbeTimeout)*time.Second),
		ytdlp.WithSocketTimeout(time.Duration(cfg.Downloader.SocketTimeout)*time.Second),
	)

	resolverOpts := []resolver.Option{
		resolver.WithLogger(logging.NewComponentLogger(log, "resolver")),
		resolver.WithProbeRate(cfg.Downloader.ProbesPerSec),
		resolver.WithWorkers(cfg.Downloader.ProbeWorkers),
	}
	if cache != nil {
		resolverOpts = append(resolverOpts, resolver.WithMetaCache(cache))
	}

	engine := whisper.NewEngine(cfg.Engine.Binary)
	trimmer := ffmpeg.NewTrimmer(cfg.Transcoder.Binary)
	driver := transcribe.NewDriver(engine, trimmer,
		filepath.Join(cfg.WorkDir, "audio"),
		cfg.Engine.AutoDowngrade,
		logging.NewComponentLogger(log, "transcribe"))
	live := transcribe.NewLive(client, driver, transcribe.LiveOptions{},
		logging.NewComponentLogger(log, "live"))

	return pipeline.New(cfg, pipeline.Deps{
		Store:    store,
		History:  hist,
		Resolver: resolver.New(client, resolverOpts...),
		Remote:   client,
		Acquirer: acquire.New(client, logging.NewComponentLogger(log, "acquire")),
		Driver:   driver,
		Live:     live,
		Log:      logging.NewComponentLogger(log, "pipeline"),
	}, opts)
}

func validDevice(device string) bool {
	switch device {
	case "cpu", "cuda", "mps":
		return true
	}
	return false
}

func validCompute(compute string) bool {
	switch compute {
	case "int8", "float16", "float32", "int8_float32":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
