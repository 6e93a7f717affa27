package main

import (
	"fmt"
	"time"
	"unicode/utf8"
)

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	StorageBackend     string `env:"STORAGE_BACKEND,default=badger"`
	BadgerFilepath     string `env:"BADGER_FILEPATH,default=./data/badger"`
	MessageLogFilepath string `env:"MESSAGE_LOG_FILEPATH,default=./data/messages.jsonl"`
	TranscriptDir      string `env:"TRANSCRIPT_DIR,default=./data/transcripts"`
	BlugeFilepath      string `env:"BLUGE_FILEPATH"`

	Groups           string `env:"GROUPS,required=true"`
	DownloadPassword string `env:"DOWNLOAD_PASSWORD,required=true"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	ListCacheTTL    time.Duration `env:"LIST_CACHE_TTL,default=60s"`
	MessageCacheTTL time.Duration `env:"MESSAGE_CACHE_TTL,default=300s"`

	BroadcastMode        string        `env:"BROADCAST_MODE,default=local"`
	BufferSize           int           `env:"BUFFER_SIZE,default=64"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=8"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=60s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=5s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	CensoredWordsFile string `env:"CENSORED_WORDS_FILE"`
	CharReplacement   string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
}

// characterRune validates that the configured replacement is a single rune.
func characterRune(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("replacement must be exactly one character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
