package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-diarist/internal/classify"
	"github.com/alnah/go-diarist/internal/config"
	"github.com/alnah/go-diarist/internal/format"
	"github.com/alnah/go-diarist/internal/segment"
	"github.com/alnah/go-diarist/internal/timeline"
	"github.com/alnah/go-diarist/internal/transcribe"
	"github.com/alnah/go-diarist/internal/vad"
	"github.com/alnah/go-diarist/internal/voiceprint"
)

// Output artifact names inside the output directory.
const (
	targetAudioName = "target_speaker.wav"
	timelineName    = "diarization.json"
)

// extractOptions holds the extract command's flag values.
type extractOptions struct {
	mixture         string
	target          string
	outputDir       string
	embeddingURL    string
	simThreshold    float64
	mergeThreshold  float64
	minDuration     float64
	frameMs         int
	aggressiveness  int
	energyVAD       bool
	energyThreshold float64
	allowRandom     bool
	asrModel        string
	parallel        int
	targetOnly      bool
	noASR           bool
}

// clampParallel constrains parallel worker count to a valid range.
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > transcribe.MaxRecommendedParallel {
		return transcribe.MaxRecommendedParallel
	}
	return n
}

// ExtractCmd creates the extract command.
// The env parameter provides injectable dependencies for testing.
func ExtractCmd(env *Env) *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract and transcribe the target speaker from a mixture recording",
		Long: `Extract the speech of one reference speaker from a multi-speaker
recording and transcribe it.

The mixture is segmented with voice activity detection, each speech segment
is scored against the target reference sample's voiceprint, and segments at
or above the similarity threshold are labeled Target. Target speech is
concatenated into a single audio file and transcribed; the full labeled
timeline is written as JSON.

The voiceprint is computed by the embedding service configured via
--embedding-url, "diarist config set embedding-url", or DIARIST_EMBEDDING_URL.`,
		Example: `  diarist extract --mixture meeting.wav --target me.wav
  diarist extract --mixture call.mp3 --target ref.wav -o results --similarity-threshold 0.6
  diarist extract --mixture noisy.wav --target ref.wav --energy-vad --no-asr`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mixture, "mixture", "", "Path to mixture audio file (required)")
	cmd.Flags().StringVar(&opts.target, "target", "", "Path to target speaker reference sample (required)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Output directory (default: output)")
	cmd.Flags().StringVar(&opts.embeddingURL, "embedding-url", "", "Speaker embedding service URL")
	cmd.Flags().Float64Var(&opts.simThreshold, "similarity-threshold", classify.DefaultSimilarityThreshold,
		"Similarity at or above which a segment is labeled Target")
	cmd.Flags().Float64Var(&opts.mergeThreshold, "merge-threshold", 0.2,
		"Merge speech segments separated by less than this many seconds")
	cmd.Flags().Float64Var(&opts.minDuration, "min-duration", 0.2,
		"Drop speech segments shorter than this many seconds")
	cmd.Flags().IntVar(&opts.frameMs, "frame-duration", 30, "VAD frame duration in ms (10, 20, or 30)")
	cmd.Flags().IntVar(&opts.aggressiveness, "aggressiveness", vad.DefaultAggressiveness,
		"VAD aggressiveness (0-3)")
	cmd.Flags().BoolVar(&opts.energyVAD, "energy-vad", false, "Use energy-based VAD instead of WebRTC")
	cmd.Flags().Float64Var(&opts.energyThreshold, "energy-threshold", vad.DefaultEnergyThreshold,
		"RMS threshold for energy-based VAD")
	cmd.Flags().BoolVar(&opts.allowRandom, "allow-random-voiceprint", false,
		"Substitute random voiceprints when no embedding service is configured (demo only)")
	cmd.Flags().StringVar(&opts.asrModel, "asr-model", transcribe.ModelWhisper, "Transcription model")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", classify.DefaultParallel,
		"Max concurrent segment workers (1-8)")
	cmd.Flags().BoolVar(&opts.targetOnly, "target-only", false,
		"Omit Other-speaker entries from the persisted timeline")
	cmd.Flags().BoolVar(&opts.noASR, "no-asr", false, "Skip transcription (timeline text stays empty)")

	_ = cmd.MarkFlagRequired("mixture")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

// runExtract executes the extraction pipeline.
// Validation order: files exist -> thresholds -> model -> collaborators.
func runExtract(ctx context.Context, env *Env, opts extractOptions) error {
	log := env.Logger

	// === VALIDATION (fail-fast) ===

	for _, p := range []string{opts.mixture, opts.target} {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrFileNotFound, p)
			}
			return fmt.Errorf("cannot access input file: %w", err)
		}
	}

	if opts.simThreshold < -1 || opts.simThreshold > 1 {
		return fmt.Errorf("%w: similarity-threshold %v outside [-1, 1]", ErrInvalidThreshold, opts.simThreshold)
	}
	if opts.mergeThreshold < 0 {
		return fmt.Errorf("%w: merge-threshold cannot be negative", ErrInvalidThreshold)
	}
	if opts.minDuration <= 0 {
		return fmt.Errorf("%w: min-duration must be positive", ErrInvalidThreshold)
	}
	if !opts.noASR && !transcribe.SupportedModel(opts.asrModel) {
		return fmt.Errorf("%w: %q", ErrUnsupportedModel, opts.asrModel)
	}
	opts.parallel = clampParallel(opts.parallel)

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	outputDir := opts.outputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if outputDir == "" {
		outputDir = "output"
	}
	outputDir = config.ExpandPath(outputDir)
	if err := os.MkdirAll(outputDir, 0750); err != nil { // #nosec G301 -- user output dir
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	// API key is needed before any work starts; transcription runs last.
	var apiKey string
	if !opts.noASR {
		apiKey = env.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return ErrAPIKeyMissing
		}
	}

	// === COLLABORATORS ===

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}
	env.FFmpegResolver.CheckVersion(ctx, ffmpegPath)

	media, err := env.MediaFactory.NewMedia(ffmpegPath)
	if err != nil {
		return err
	}

	extractor, err := buildExtractor(env, cfg, opts)
	if err != nil {
		return err
	}

	// === PIPELINE ===

	log.WithField("step", "1/6").Info("computing target voiceprint")
	targetVP, err := extractor.Embed(ctx, opts.target)
	if err != nil {
		return fmt.Errorf("embed target reference: %w", err)
	}
	log.Debugf("target voiceprint dimension: %d", len(targetVP))

	log.WithField("step", "2/6").Info("detecting speech segments")
	intervals, total, err := detectSpeech(ctx, env, media, opts)
	if err != nil {
		return err
	}
	merged := segment.Merge(intervals, secondsToDuration(opts.mergeThreshold))
	log.Infof("detected %d speech segments (%d after merging) in %s of audio",
		len(intervals), len(merged), format.Duration(total))
	for i, iv := range merged {
		if i >= 5 {
			log.Debugf("... and %d more", len(merged)-5)
			break
		}
		log.Debugf("segment %d: %s", i, iv)
	}

	log.WithField("step", "3/6").Info("matching segments to target speaker")
	clf, err := classify.NewClassifier(media, extractor,
		classify.WithThreshold(opts.simThreshold),
		classify.WithParallel(opts.parallel),
		classify.WithLogger(log),
	)
	if err != nil {
		return err
	}
	res, err := clf.Classify(ctx, opts.mixture, targetVP, merged)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}
	if res.Dropped > 0 {
		log.Warnf("dropped %d of %d segments due to extraction or embedding failures",
			res.Dropped, len(merged))
	}

	targets := res.TargetSegments()
	log.Infof("classified %d target segments, %d other", len(targets), len(res.Segments)-len(targets))
	if len(targets) == 0 {
		return fmt.Errorf("classification stage: lower --similarity-threshold (current %.2f) "+
			"or verify the target reference sample: %w", opts.simThreshold, classify.ErrNoTargetSegments)
	}

	log.WithField("step", "4/6").Info("extracting and concatenating target segments")
	clipDir, err := os.MkdirTemp("", "go-diarist-*")
	if err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(clipDir) }()

	// clips[i] is the extracted sub-clip for targets[i]; "" marks a segment
	// whose extraction failed (it keeps its timeline entry, without audio).
	clips := make([]string, len(targets))
	var clipPaths []string
	for i, seg := range targets {
		p := filepath.Join(clipDir, fmt.Sprintf("target_%03d.wav", i))
		if err := media.Extract(ctx, opts.mixture, p, seg.Interval.Start, seg.Interval.End); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Warnf("cannot extract target segment %s for output audio", seg.Interval)
			continue
		}
		clips[i] = p
		clipPaths = append(clipPaths, p)
	}

	targetAudio := filepath.Join(outputDir, targetAudioName)
	if err := media.Concat(ctx, clipPaths, targetAudio); err != nil {
		return fmt.Errorf("concatenation stage: %w", err)
	}

	log.WithField("step", "5/6").Info("transcribing target segments")
	texts := make([]string, len(targets))
	if !opts.noASR {
		t := env.TranscriberFactory.NewTranscriber(apiKey, opts.asrModel)
		got, err := transcribe.TranscribeClips(ctx, clipPaths, t, opts.parallel, log)
		if err != nil {
			return err
		}
		// Scatter results back to target order; segments without a clip
		// keep empty text.
		gi := 0
		for i := range targets {
			if clips[i] != "" {
				texts[i] = got[gi]
				gi++
			}
		}
	}

	log.WithField("step", "6/6").Info("saving results")
	entries := timeline.Assemble(res.Segments, texts)
	if opts.targetOnly {
		entries = timeline.FilterTarget(entries)
	}
	timelinePath := filepath.Join(outputDir, timelineName)
	if err := timeline.WriteJSON(timelinePath, entries); err != nil {
		return err
	}

	printSummary(env, targetAudio, timelinePath, targets, res.Dropped)
	return nil
}

// buildExtractor resolves the voiceprint extractor from flags and config.
// The random substitute is only ever constructed on explicit opt-in; it
// produces meaningless similarity scores.
func buildExtractor(env *Env, cfg config.Config, opts extractOptions) (voiceprint.Extractor, error) {
	url := opts.embeddingURL
	if url == "" {
		url = cfg.EmbeddingURL
	}
	if url != "" {
		return env.ExtractorFactory.NewHTTPExtractor(url), nil
	}

	if opts.allowRandom {
		env.Logger.Warn("using random voiceprints: similarity scores are meaningless (demo mode)")
		return env.ExtractorFactory.NewRandomExtractor(), nil
	}

	return nil, fmt.Errorf("%w: set --embedding-url, run \"diarist config set embedding-url <url>\", "+
		"or export %s", ErrEmbeddingURLMissing, config.EnvEmbeddingURL)
}

// detectSpeech decodes the mixture and runs the configured VAD strategy.
// Returns the raw (pre-merge) intervals and the decoded audio duration.
func detectSpeech(ctx context.Context, env *Env, media decoder, opts extractOptions) ([]segment.Interval, time.Duration, error) {
	samples, rate, err := media.Decode(ctx, opts.mixture)
	if err != nil {
		return nil, 0, fmt.Errorf("segmentation stage: %w", err)
	}
	total := time.Duration(float64(len(samples)) / float64(rate) * float64(time.Second))

	classifier, err := buildFrameClassifier(env, opts)
	if err != nil {
		return nil, 0, err
	}

	seg, err := vad.NewSegmenter(classifier, vad.Config{
		FrameDuration: time.Duration(opts.frameMs) * time.Millisecond,
		MinDuration:   secondsToDuration(opts.minDuration),
	})
	if err != nil {
		return nil, 0, err
	}

	intervals, err := seg.Detect(samples, rate)
	if err != nil {
		return nil, 0, fmt.Errorf("segmentation stage: %w", err)
	}
	return intervals, total, nil
}

// decoder is the slice of ffmpeg.Media that detectSpeech needs.
type decoder interface {
	Decode(ctx context.Context, path string) ([]float64, int, error)
}

// buildFrameClassifier selects the VAD strategy once, at configuration time.
// The energy fallback engages on explicit request or when the WebRTC
// detector cannot be constructed.
func buildFrameClassifier(env *Env, opts extractOptions) (vad.FrameClassifier, error) {
	if opts.energyVAD {
		return vad.NewEnergyClassifier(opts.energyThreshold), nil
	}

	wc, err := vad.NewWebRTCClassifier(opts.aggressiveness)
	if err != nil {
		if errors.Is(err, vad.ErrInvalidAggressiveness) {
			return nil, err
		}
		env.Logger.WithError(err).Warn("webrtc vad unavailable, falling back to energy-based detection")
		return vad.NewEnergyClassifier(opts.energyThreshold), nil
	}
	return wc, nil
}

// printSummary writes the end-of-run report to stderr.
func printSummary(env *Env, targetAudio, timelinePath string, targets []classify.Segment, dropped int) {
	fmt.Fprintf(env.Stderr, "\nPipeline complete\n")
	fmt.Fprintf(env.Stderr, "  Target audio: %s", targetAudio)
	if info, err := os.Stat(targetAudio); err == nil {
		fmt.Fprintf(env.Stderr, " (%s)", format.Size(info.Size()))
	}
	fmt.Fprintf(env.Stderr, "\n  Timeline:     %s\n", timelinePath)
	fmt.Fprintf(env.Stderr, "  Target segments: %d", len(targets))
	if dropped > 0 {
		fmt.Fprintf(env.Stderr, " (%d dropped)", dropped)
	}
	fmt.Fprintln(env.Stderr)

	for i, seg := range targets {
		if i >= 3 {
			fmt.Fprintf(env.Stderr, "  ...\n")
			break
		}
		fmt.Fprintf(env.Stderr, "  [%d] %s (similarity %.2f)\n", i, seg.Interval, seg.Similarity)
	}
}

// secondsToDuration converts a float seconds flag to a time.Duration.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
