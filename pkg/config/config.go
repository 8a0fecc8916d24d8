package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries every runtime setting. Values come from the
// environment, optionally seeded by a .env file in the working
// directory; every field has a usable default except the data file
// paths, which callers must validate before use.
type Config struct {
	// DataDir holds the SQLite database and saved transcripts.
	DataDir string
	// TempDir holds downloaded and extracted audio before cleanup.
	TempDir string
	// HSKPath is the graded word list, JSON or .xlsx.
	HSKPath string
	// CEDICTPath is the CC-CEDICT dictionary file.
	CEDICTPath string

	// WhisperURL is the transcription backend endpoint.
	WhisperURL string
	// WhisperModel selects the backend model.
	WhisperModel string
	// WhisperAPIKey is optional; empty means unauthenticated.
	WhisperAPIKey string

	// OpenAIBaseURL and OpenAIAPIKey configure the optional generation
	// backend. EnableAI gates it entirely.
	OpenAIBaseURL string
	OpenAIAPIKey  string
	EnableAI      bool

	// MinWordLength excludes words shorter than this many runes.
	MinWordLength int

	// LogMode is "development" or "production".
	LogMode string
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	// A missing .env is normal; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	return &Config{
		DataDir:       getEnv("HANVID_DATA_DIR", "data"),
		TempDir:       getEnv("HANVID_TEMP_DIR", "temp"),
		HSKPath:       getEnv("HANVID_HSK_PATH", "data/hsk.json"),
		CEDICTPath:    getEnv("HANVID_CEDICT_PATH", "data/cedict_ts.u8"),
		WhisperURL:    getEnv("HANVID_WHISPER_URL", "http://localhost:9000"),
		WhisperModel:  getEnv("HANVID_WHISPER_MODEL", "base"),
		WhisperAPIKey: os.Getenv("HANVID_WHISPER_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		EnableAI:      os.Getenv("HANVID_ENABLE_AI") == "true",
		MinWordLength: getEnvInt("HANVID_MIN_WORD_LENGTH", 1),
		LogMode:       getEnv("HANVID_LOG_MODE", "production"),
	}
}

// DBPath is the SQLite file inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "hanvid.db")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
