package main

import (
	"github.com/spf13/cobra"
)

// runFlags mirrors the command-line surface.
type runFlags struct {
	configPath  string
	list        bool
	continueRun bool
	processFile string
	localPath   string
	gpu         bool
	device      string
	compute     string
	force       bool
	forceRetry  bool
	ignoreSubs  bool
	language    string
	crossTier   bool
	live        bool
	launch      bool
}

func newRootCommand() *cobra.Command {
	flags := &runFlags{}

	rootCmd := &cobra.Command{
		Use:   "scribe [flags] MODEL [SOURCE]",
		Short: "Batch transcription of remote videos and local audio into SRT subtitles",
		Long: `scribe resolves video URLs, channels, playlists, and local files into
transcription tasks, drives an external speech-to-text engine over each one,
and writes SRT subtitles with player helper files alongside.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags, args)
		},
	}

	rootCmd.Flags().StringVar(&flags.configPath, "config", "", "configuration file path")
	rootCmd.Flags().BoolVarP(&flags.list, "list", "l", false, "print all jobs and exit")
	rootCmd.Flags().BoolVarP(&flags.continueRun, "continue", "c", false, "resume the most recent unfinished job")
	rootCmd.Flags().StringVarP(&flags.processFile, "process-file", "p", "", "file with one source per line, optionally followed by a model override")
	rootCmd.Flags().StringVarP(&flags.localPath, "file", "d", "", "a local audio file or directory")
	rootCmd.Flags().BoolVarP(&flags.gpu, "gpu", "g", false, "run the engine on cuda")
	rootCmd.Flags().StringVar(&flags.device, "device", "", "engine device (cpu, cuda, mps)")
	rootCmd.Flags().StringVar(&flags.compute, "compute", "", "engine compute type (int8, float16, float32, int8_float32)")
	rootCmd.Flags().BoolVarP(&flags.force, "force", "f", false, "redownload audio even when a previous download exists")
	rootCmd.Flags().BoolVarP(&flags.forceRetry, "force-retry", "r", false, "transcribe even when history already covers the item")
	rootCmd.Flags().BoolVarP(&flags.ignoreSubs, "ignore-subs", "i", false, "never use existing remote subtitles")
	rootCmd.Flags().StringVar(&flags.language, "language", "", "preferred subtitle language code")
	rootCmd.Flags().BoolVar(&flags.crossTier, "cross-tier", false, "let english-only and multilingual history records cover each other")
	rootCmd.Flags().BoolVar(&flags.live, "live", false, "treat the source as a live stream")
	rootCmd.Flags().BoolVarP(&flags.launch, "run", "m", false, "launch the player helper after each finished task")

	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
