package whisper_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"scribe/internal/services"
	"scribe/internal/services/whisper"
)

func fakeStarter(stdout string, waitErr error) whisper.ProcessStarter {
	return func(ctx context.Context, name string, args []string) (io.ReadCloser, func() error, error) {
		return io.NopCloser(strings.NewReader(stdout)), func() error { return waitErr }, nil
	}
}

func TestTranscribeStreamsSegments(t *testing.T) {
	output := strings.Join([]string{
		`{"start": 0.0, "end": 2.5, "text": " hello there", "no_speech_prob": 0.01, "avg_logprob": -0.2}`,
		`not json noise`,
		`{"start": 3.0, "end": 5.0, "text": "second line"}`,
	}, "\n")

	engine := whisper.NewEngine("")
	engine.WithProcessStarter(fakeStarter(output, nil))

	stream, err := engine.Transcribe(context.Background(), whisper.Request{
		AudioPath: "/tmp/audio.m4a", Model: "base", Device: "cpu", Compute: "int8",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	var got []string
	for seg := range stream.Segments {
		got = append(got, strings.TrimSpace(seg.Text))
	}
	if len(got) != 2 || got[0] != "hello there" || got[1] != "second line" {
		t.Errorf("segments = %v", got)
	}
	if err := stream.Wait(); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestTranscribeCarriesScores(t *testing.T) {
	output := `{"start": 0, "end": 2, "text": "scored", "no_speech_prob": 0.7, "avg_logprob": -1.5}` + "\n" +
		`{"start": 2, "end": 4, "text": "unscored"}` + "\n"

	engine := whisper.NewEngine("whisper-stream")
	engine.WithProcessStarter(fakeStarter(output, nil))

	stream, err := engine.Transcribe(context.Background(), whisper.Request{Model: "base", Device: "cpu", Compute: "int8"})
	if err != nil {
		t.Fatal(err)
	}

	first := <-stream.Segments
	if !first.HasScores || first.NoSpeechProb != 0.7 || first.AvgLogProb != -1.5 {
		t.Errorf("scores not carried: %+v", first)
	}
	second := <-stream.Segments
	if second.HasScores {
		t.Errorf("segment without scores should report HasScores=false: %+v", second)
	}
	_ = stream.Wait()
}

func TestWaitSurfacesGPUFailure(t *testing.T) {
	engine := whisper.NewEngine("whisper-stream")
	engine.WithProcessStarter(fakeStarter("", errors.New("whisper-stream: exit status 1: CUDA error: out of memory")))

	stream, err := engine.Transcribe(context.Background(), whisper.Request{Model: "large-v3", Device: "cuda", Compute: "float16"})
	if err != nil {
		t.Fatal(err)
	}
	for range stream.Segments {
	}

	waitErr := stream.Wait()
	if waitErr == nil {
		t.Fatal("expected engine failure")
	}
	if !services.IsGPUFailure(waitErr) {
		t.Errorf("expected GPU classification for %v", waitErr)
	}
}

func TestBuildArgs(t *testing.T) {
	args := whisper.BuildArgs(whisper.Request{
		AudioPath: "/tmp/a.m4a", Model: "medium", Language: "en", Device: "cuda", Compute: "float16",
	})
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"--model medium",
		"--device cuda",
		"--compute-type float16",
		"--language en",
		"--min-silence-duration-ms 800",
		"--speech-pad-ms 400",
		"--repetition-penalty 1.2",
		"--no-repeat-ngram-size 3",
		"--temperature 0",
		"--no-speech-threshold 0.6",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if args[len(args)-1] != "/tmp/a.m4a" {
		t.Errorf("audio path must be last arg: %v", args)
	}

	noLang := whisper.BuildArgs(whisper.Request{AudioPath: "/tmp/a.m4a", Model: "base", Device: "cpu", Compute: "int8"})
	if strings.Contains(strings.Join(noLang, " "), "--language") {
		t.Error("language flag should be omitted when unset")
	}
}
