package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lromero/hanvid/pkg/analyzer"
	"github.com/lromero/hanvid/pkg/db"
	"github.com/lromero/hanvid/pkg/media"
	"github.com/lromero/hanvid/pkg/transcribe"
)

// Acquirer delivers a video's metadata and normalized audio artifact.
type Acquirer interface {
	FromURL(ctx context.Context, url string) (*media.Source, error)
	FromFile(ctx context.Context, path string) (*media.Source, error)
}

// Transcriber converts an audio file into ordered timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]transcribe.Segment, error)
}

// Generator is the optional AI collaborator.
type Generator interface {
	ExampleSentences(ctx context.Context, word string, count int) ([]string, error)
	Synonyms(ctx context.Context, word string, vocabulary []string, topK int) ([]string, error)
}

// ProgressFunc receives a human-readable stage label at the five fixed
// checkpoints (10/40/70/90/100 percent). There is no finer-grained
// progress inside a stage.
type ProgressFunc func(stage string, percent int)

// Result is the outcome of one ingestion.
type Result struct {
	Success bool
	VideoID int64
	Title   string
	Stats   *db.VideoStats
	Error   string
}

// Options tunes the controller.
type Options struct {
	// MinWordLength excludes words shorter than this many runes from
	// persistence. Not an error, just a skip.
	MinWordLength int
	// ExampleCount is how many AI example sentences a word detail asks for.
	ExampleCount int
	// OccurrenceCap limits the occurrence list inside a word detail.
	OccurrenceCap int
	// SynonymTopK limits synonym lookups.
	SynonymTopK int
	// TranscriptDir, when set, receives the raw transcription JSON of
	// every ingestion. Saving is best-effort.
	TranscriptDir string
}

func (o *Options) fillDefaults() {
	if o.MinWordLength <= 0 {
		o.MinWordLength = 1
	}
	if o.ExampleCount <= 0 {
		o.ExampleCount = 3
	}
	if o.OccurrenceCap <= 0 {
		o.OccurrenceCap = 10
	}
	if o.SynonymTopK <= 0 {
		o.SynonymTopK = 5
	}
}

// Controller drives the ingest pipeline end to end and answers the
// consumer-facing queries. An ingestion is synchronous and sequential;
// the host decides where to run it so interactive queries stay
// responsive.
type Controller struct {
	store       *db.Store
	analyzer    *analyzer.Analyzer
	acquirer    Acquirer
	transcriber Transcriber
	gen         Generator // nil when AI is disabled
	opts        Options
	log         *zap.Logger
}

// New wires the controller. gen may be nil; log may be nil.
func New(store *db.Store, anlz *analyzer.Analyzer, acquirer Acquirer, transcriber Transcriber, gen Generator, opts Options, log *zap.Logger) *Controller {
	opts.fillDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		store:       store,
		analyzer:    anlz,
		acquirer:    acquirer,
		transcriber: transcriber,
		gen:         gen,
		opts:        opts,
		log:         log,
	}
}

// IngestURL runs the full pipeline for a remote video.
func (c *Controller) IngestURL(ctx context.Context, url string, progress ProgressFunc) Result {
	return c.ingest(ctx, progress, "Downloading audio", func(ctx context.Context) (*media.Source, error) {
		return c.acquirer.FromURL(ctx, url)
	})
}

// IngestFile runs the full pipeline for a local video file.
func (c *Controller) IngestFile(ctx context.Context, path string, progress ProgressFunc) Result {
	return c.ingest(ctx, progress, "Extracting audio", func(ctx context.Context) (*media.Source, error) {
		return c.acquirer.FromFile(ctx, path)
	})
}

// ingest is the linear state machine: acquire → transcribe → analyze →
// persist → stats. Errors from delegated stages surface only here,
// converted into a failure Result; side effects already committed by
// earlier stages are not rolled back.
func (c *Controller) ingest(ctx context.Context, progress ProgressFunc, acquireStage string, acquire func(ctx context.Context) (*media.Source, error)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = c.fail("pipeline", fmt.Errorf("panic: %v", r))
		}
	}()
	report := func(stage string, percent int) {
		if progress != nil {
			progress(stage, percent)
		}
	}

	report(acquireStage, 10)
	src, err := acquire(ctx)
	if err != nil {
		return c.fail("acquire", err)
	}

	report("Transcribing audio", 40)
	segments, err := c.transcriber.Transcribe(ctx, src.AudioPath)
	if err != nil {
		return c.fail("transcribe", err)
	}
	if c.opts.TranscriptDir != "" {
		if path, err := transcribe.SaveTranscript(c.opts.TranscriptDir, uuid.NewString(), segments); err != nil {
			c.log.Warn("transcript save failed", zap.Error(err))
		} else {
			c.log.Info("transcript saved", zap.String("path", path))
		}
	}

	report("Analyzing text", 70)
	in := make([]analyzer.Segment, len(segments))
	for i, s := range segments {
		in[i] = analyzer.Segment{Text: s.Text, Start: s.Start, End: s.End}
	}
	analysis := c.analyzer.Analyze(in)

	report("Saving results", 90)
	videoID, err := c.persist(src, analysis)
	if err != nil {
		return c.fail("persist", err)
	}

	stats := c.computeStats(videoID, analysis)
	if err := c.store.SaveVideoStats(videoID, stats); err != nil {
		return c.fail("stats", err)
	}

	report("Done", 100)
	c.log.Info("video ingested",
		zap.Int64("video_id", videoID),
		zap.String("title", src.Title),
		zap.Int("unique_words", stats.UniqueWords))
	return Result{Success: true, VideoID: videoID, Title: src.Title, Stats: stats}
}

func (c *Controller) fail(stage string, err error) Result {
	c.log.Error("ingest failed", zap.String("stage", stage), zap.Error(err))
	return Result{Error: err.Error()}
}

// persist writes the video row, then every word and its occurrences.
// Words below the minimum length are skipped. Each store call commits
// on its own, so a crash mid-loop leaves a prefix committed; word-level
// re-ingestion is idempotent, so re-running heals the gap.
func (c *Controller) persist(src *media.Source, analysis []analyzer.WordAnalysis) (int64, error) {
	videoID, err := c.store.AddVideo(&db.Video{
		Title:     src.Title,
		SourceURL: src.SourceURL,
		FilePath:  src.FilePath,
		Duration:  src.Duration,
	})
	if err != nil {
		return 0, err
	}

	for _, wa := range analysis {
		if utf8.RuneCountInString(wa.Word) < c.opts.MinWordLength {
			continue
		}
		wordID, err := c.store.AddWord(wa.Word, wa.Pinyin, shortGloss(wa.Definitions), wa.Level)
		if err != nil {
			return 0, err
		}
		for _, occ := range wa.Contexts {
			err := c.store.AddOccurrence(&db.Occurrence{
				WordID:   wordID,
				VideoID:  videoID,
				Sentence: occ.Sentence,
				Position: occ.Position,
				Start:    occ.Start,
				End:      occ.End,
			})
			if err != nil {
				return 0, err
			}
		}
	}
	return videoID, nil
}

// computeStats aggregates the counts over the same word set persist
// keeps, so the stats row matches the video's stored occurrence set.
func (c *Controller) computeStats(videoID int64, analysis []analyzer.WordAnalysis) *db.VideoStats {
	stats := &db.VideoStats{VideoID: videoID}
	for _, wa := range analysis {
		if utf8.RuneCountInString(wa.Word) < c.opts.MinWordLength {
			continue
		}
		stats.TotalWords += wa.Frequency
		stats.UniqueWords++
		stats.BumpLevel(wa.Level)
	}
	return stats
}

// shortGloss keeps the first three definitions as the stored translation.
func shortGloss(defs []string) string {
	if len(defs) > 3 {
		defs = defs[:3]
	}
	return strings.Join(defs, "; ")
}
