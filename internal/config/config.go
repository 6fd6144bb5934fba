// Package config loads the daemon's environment-variable surface into a
// typed Config struct. It follows the teacher's viper-singleton pattern
// (SetDefault per knob, AutomaticEnv, explicit env-var names) but returns a
// struct instead of a stringly-keyed accessor, since this service has a
// small, fixed set of knobs rather than a large CLI flag surface.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved set of knobs listed in spec.md §6.
type Config struct {
	NodeRPCBase string
	GatewayBase string
	DBPath      string
	Port        int

	PinRefresh  time.Duration
	TypeRefresh time.Duration
	DirRefresh  time.Duration

	SampleBytes   int64
	MaxTotalBytes int64

	CrawlConcurrency     int
	DirExpandConcurrency int

	DirExpandMaxChildren   int
	DirExpandMaxDepth      int
	DirExpandTTL           time.Duration
	DirExpandMaxBatch      int
	DirExpandPruneChildren bool
	DirExpandTrackParent   bool

	PathIndexMaxFilesPerRoot int
	PathIndexMaxDepth        int
	PathIndexMaxDirsPerRoot  int

	SearchTokenIndexMaxTokens int

	ExternalClassifierURL string
	RequestTimeout        time.Duration

	TextTaggerEnable    bool
	ImageTaggerEnable   bool
	MLWorkerEnable      bool
	MLWorkerTaskTimeout time.Duration

	BusyTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// Load builds a viper instance bound to the environment and resolves it into
// a Config. Every knob in spec.md §6 has a default, so Load never fails on a
// missing variable.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("NODE_RPC_BASE", "")
	v.SetDefault("GATEWAY_BASE", "")
	v.SetDefault("DB_PATH", "gateway-agent.db")
	v.SetDefault("PORT", 8790)

	v.SetDefault("PIN_REFRESH_S", 1800)
	v.SetDefault("TYPE_REFRESH_S", 300)
	v.SetDefault("DIR_REFRESH_S", 600)

	v.SetDefault("SAMPLE_BYTES", 256*1024)
	v.SetDefault("MAX_TOTAL_BYTES", 768*1024)

	v.SetDefault("CRAWL_CONCURRENCY", 3)
	v.SetDefault("DIR_EXPAND_CONCURRENCY", 1)

	v.SetDefault("DIR_EXPAND_MAX_CHILDREN", 1000)
	v.SetDefault("DIR_EXPAND_MAX_DEPTH", 16)
	v.SetDefault("DIR_EXPAND_TTL_S", 86400)
	v.SetDefault("DIR_EXPAND_MAX_BATCH", 50)
	v.SetDefault("DIR_EXPAND_PRUNE_CHILDREN", true)
	v.SetDefault("DIR_EXPAND_TRACK_PARENT", true)

	v.SetDefault("PATH_INDEX_MAX_FILES_PER_ROOT", 1000)
	v.SetDefault("PATH_INDEX_MAX_DEPTH", 10)
	v.SetDefault("PATH_INDEX_MAX_DIRS_PER_ROOT", 200)

	v.SetDefault("SEARCH_TOKEN_INDEX_MAX_TOKENS", 128)

	v.SetDefault("EXTERNAL_CLASSIFIER_URL", "")
	v.SetDefault("REQUEST_TIMEOUT_MS", 15000)

	v.SetDefault("TEXT_TAGGER_ENABLE", true)
	v.SetDefault("IMAGE_TAGGER_ENABLE", true)
	v.SetDefault("ML_WORKER_ENABLE", false)
	v.SetDefault("ML_WORKER_TASK_TIMEOUT_MS", 120000)

	v.SetDefault("BUSY_TIMEOUT_S", 5)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	busy := clampSeconds(v.GetInt("BUSY_TIMEOUT_S"), 0, 60)

	cfg := &Config{
		NodeRPCBase: v.GetString("NODE_RPC_BASE"),
		GatewayBase: v.GetString("GATEWAY_BASE"),
		DBPath:      v.GetString("DB_PATH"),
		Port:        v.GetInt("PORT"),

		PinRefresh:  time.Duration(v.GetInt("PIN_REFRESH_S")) * time.Second,
		TypeRefresh: time.Duration(v.GetInt("TYPE_REFRESH_S")) * time.Second,
		DirRefresh:  time.Duration(v.GetInt("DIR_REFRESH_S")) * time.Second,

		SampleBytes:   v.GetInt64("SAMPLE_BYTES"),
		MaxTotalBytes: v.GetInt64("MAX_TOTAL_BYTES"),

		CrawlConcurrency:     v.GetInt("CRAWL_CONCURRENCY"),
		DirExpandConcurrency: v.GetInt("DIR_EXPAND_CONCURRENCY"),

		DirExpandMaxChildren:   v.GetInt("DIR_EXPAND_MAX_CHILDREN"),
		DirExpandMaxDepth:      v.GetInt("DIR_EXPAND_MAX_DEPTH"),
		DirExpandTTL:           time.Duration(v.GetInt("DIR_EXPAND_TTL_S")) * time.Second,
		DirExpandMaxBatch:      v.GetInt("DIR_EXPAND_MAX_BATCH"),
		DirExpandPruneChildren: v.GetBool("DIR_EXPAND_PRUNE_CHILDREN"),
		DirExpandTrackParent:   v.GetBool("DIR_EXPAND_TRACK_PARENT"),

		PathIndexMaxFilesPerRoot: v.GetInt("PATH_INDEX_MAX_FILES_PER_ROOT"),
		PathIndexMaxDepth:        v.GetInt("PATH_INDEX_MAX_DEPTH"),
		PathIndexMaxDirsPerRoot:  v.GetInt("PATH_INDEX_MAX_DIRS_PER_ROOT"),

		SearchTokenIndexMaxTokens: v.GetInt("SEARCH_TOKEN_INDEX_MAX_TOKENS"),

		ExternalClassifierURL: v.GetString("EXTERNAL_CLASSIFIER_URL"),
		RequestTimeout:        time.Duration(v.GetInt("REQUEST_TIMEOUT_MS")) * time.Millisecond,

		TextTaggerEnable:    v.GetBool("TEXT_TAGGER_ENABLE"),
		ImageTaggerEnable:   v.GetBool("IMAGE_TAGGER_ENABLE"),
		MLWorkerEnable:      v.GetBool("ML_WORKER_ENABLE"),
		MLWorkerTaskTimeout: time.Duration(v.GetInt("ML_WORKER_TASK_TIMEOUT_MS")) * time.Millisecond,

		BusyTimeout: time.Duration(busy) * time.Second,

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("config: DB_PATH must not be empty")
	}

	return cfg, nil
}

func clampSeconds(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
