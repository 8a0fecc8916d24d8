package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/lromero/hanvid/pkg/ai"
	"github.com/lromero/hanvid/pkg/analyzer"
	"github.com/lromero/hanvid/pkg/app"
	"github.com/lromero/hanvid/pkg/config"
	"github.com/lromero/hanvid/pkg/db"
	"github.com/lromero/hanvid/pkg/media"
	"github.com/lromero/hanvid/pkg/transcribe"
)

func main() {
	urlFlag := flag.String("url", "", "video URL to ingest")
	fileFlag := flag.String("file", "", "local video file to ingest")
	videosFlag := flag.Bool("videos", false, "list ingested videos")
	wordsFlag := flag.Int64("words", 0, "list words of the given video ID")
	sortFlag := flag.String("sort", "frequency", "word list order: frequency, level or text")
	wordFlag := flag.Int64("word", 0, "word ID for detail, status or review operations")
	videoFlag := flag.Int64("video", 0, "video ID scoping a word detail or synonym lookup")
	statusFlag := flag.String("set-status", "", "set the word's status: unknown, practice or known")
	reviewFlag := flag.Bool("review", false, "record one review of the word")
	synonymsFlag := flag.Bool("synonyms", false, "list in-video synonyms of the word")
	statsFlag := flag.Int64("stats", 0, "print the stats row of the given video ID")
	flag.Parse()

	cfg := config.Load()

	logger, err := newLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := db.Open(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	userID, err := store.DefaultUserID()
	if err != nil {
		log.Fatalf("Failed to resolve default user: %v", err)
	}

	controller := func(needAnalyzer bool) *app.Controller {
		return buildController(cfg, store, logger, needAnalyzer)
	}

	switch {
	case *urlFlag != "" || *fileFlag != "":
		c := controller(true)
		startTempJanitor(cfg.TempDir, logger)

		var res app.Result
		if *urlFlag != "" {
			res = c.IngestURL(ctx, *urlFlag, printProgress)
		} else {
			res = c.IngestFile(ctx, *fileFlag, printProgress)
		}
		if !res.Success {
			log.Fatalf("Ingestion failed: %s", res.Error)
		}
		fmt.Printf("Ingested %q as video %d\n", res.Title, res.VideoID)
		printStats(res.Stats)

	case *videosFlag:
		videos, err := controller(false).Videos()
		if err != nil {
			log.Fatalf("Failed to list videos: %v", err)
		}
		if len(videos) == 0 {
			fmt.Println("No videos ingested yet.")
			return
		}
		for _, v := range videos {
			fmt.Printf("%4d  %s  (%.0fs)\n", v.ID, v.Title, v.Duration)
		}

	case *wordsFlag != 0:
		c := controller(false)
		words, err := c.VideoWords(*wordsFlag, userID, app.SortOrder(*sortFlag))
		if err != nil {
			log.Fatalf("Failed to list words: %v", err)
		}
		for _, w := range words {
			level := "-"
			if w.Level != analyzer.LevelNone {
				level = fmt.Sprintf("HSK%d", w.Level)
			}
			fmt.Printf("%6d  %-12s %-6s x%-4d %-9s %s\n",
				w.ID, w.Chinese, level, w.Frequency, w.Status, w.Translation)
		}

	case *statusFlag != "":
		requireWord(*wordFlag)
		status, err := db.ParseStatus(*statusFlag)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err := controller(false).SetWordStatus(userID, *wordFlag, status); err != nil {
			log.Fatalf("Failed to set status: %v", err)
		}
		fmt.Printf("Word %d marked %s\n", *wordFlag, status)

	case *reviewFlag:
		requireWord(*wordFlag)
		if err := controller(false).ReviewWord(userID, *wordFlag); err != nil {
			log.Fatalf("Failed to record review: %v", err)
		}
		fmt.Printf("Review recorded for word %d\n", *wordFlag)

	case *synonymsFlag:
		requireWord(*wordFlag)
		requireVideo(*videoFlag)
		syns, err := controller(false).Synonyms(ctx, *wordFlag, *videoFlag, userID)
		if err != nil {
			log.Fatalf("Synonym lookup failed: %v", err)
		}
		if len(syns) == 0 {
			fmt.Println("No synonyms available (is HANVID_ENABLE_AI set?).")
			return
		}
		fmt.Println(strings.Join(syns, ", "))

	case *wordFlag != 0:
		requireVideo(*videoFlag)
		detail, err := controller(false).WordDetail(ctx, *wordFlag, *videoFlag, userID)
		if err != nil {
			log.Fatalf("Failed to load word detail: %v", err)
		}
		printDetail(detail)

	case *statsFlag != 0:
		stats, err := controller(false).VideoStats(*statsFlag)
		if err != nil {
			log.Fatalf("Failed to load stats: %v", err)
		}
		printStats(stats)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func newLogger(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "dev", "development":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}
	return cfg.Build()
}

// buildController wires the pipeline. The analyzer (and with it the
// dictionary files) is only loaded when an ingestion needs it; queries
// run against the stored rows alone.
func buildController(cfg *config.Config, store *db.Store, logger *zap.Logger, needAnalyzer bool) *app.Controller {
	var anlz *analyzer.Analyzer
	if needAnalyzer {
		var err error
		anlz, err = analyzer.New(cfg.HSKPath, cfg.CEDICTPath)
		if err != nil {
			log.Fatalf("Failed to load language data: %v", err)
		}
	}

	processor, err := media.NewProcessor(cfg.TempDir, logger)
	if err != nil {
		log.Fatalf("Failed to prepare temp directory: %v", err)
	}

	whisper := transcribe.NewClient(cfg.WhisperURL, cfg.WhisperModel, cfg.WhisperAPIKey)

	var gen app.Generator
	if cfg.EnableAI && cfg.OpenAIAPIKey != "" {
		gen = ai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	}

	opts := app.Options{
		MinWordLength: cfg.MinWordLength,
		TranscriptDir: filepath.Join(cfg.DataDir, "transcripts"),
	}
	return app.New(store, anlz, processor, whisper, gen, opts, logger)
}

// startTempJanitor sweeps stale audio artifacts hourly for as long as
// the process lives.
func startTempJanitor(tempDir string, logger *zap.Logger) {
	processor, err := media.NewProcessor(tempDir, logger)
	if err != nil {
		logger.Warn("temp janitor disabled", zap.Error(err))
		return
	}
	s := gocron.NewScheduler(time.UTC)
	s.Every(1).Hour().Do(func() {
		removed, err := processor.CleanTemp(24 * time.Hour)
		if err != nil {
			logger.Warn("temp cleanup failed", zap.Error(err))
			return
		}
		if removed > 0 {
			logger.Info("temp cleanup", zap.Int("removed", removed))
		}
	})
	s.StartAsync()
}

func printProgress(stage string, percent int) {
	fmt.Printf("[%3d%%] %s\n", percent, stage)
}

func printStats(stats *db.VideoStats) {
	fmt.Printf("Total words: %d, unique: %d\n", stats.TotalWords, stats.UniqueWords)
	fmt.Printf("HSK1 %d | HSK2 %d | HSK3 %d | HSK4 %d | HSK5 %d | HSK6 %d | outside %d\n",
		stats.HSK1, stats.HSK2, stats.HSK3, stats.HSK4, stats.HSK5, stats.HSK6, stats.NonHSK)
}

func printDetail(d *app.WordDetail) {
	fmt.Printf("%s  [%s]  %s\n", d.Word.Chinese, d.Word.Pinyin, d.Word.Translation)
	if d.Word.Level != analyzer.LevelNone {
		fmt.Printf("HSK level: %d\n", d.Word.Level)
	} else {
		fmt.Println("HSK level: outside the graded lists")
	}
	fmt.Printf("Frequency in video: %d, difficulty: %d/5\n", d.Frequency, d.Difficulty)
	fmt.Printf("Status: %s, reviews: %d\n", d.Status, d.ReviewCount)
	for _, occ := range d.Occurrences {
		fmt.Printf("  [%.1fs] %s\n", occ.Start, occ.Sentence)
	}
	for _, ex := range d.Examples {
		fmt.Printf("  e.g. %s\n", ex)
	}
}

func requireWord(id int64) {
	if id == 0 {
		log.Fatal("Please provide -word")
	}
}

func requireVideo(id int64) {
	if id == 0 {
		log.Fatal("Please provide -video")
	}
}
