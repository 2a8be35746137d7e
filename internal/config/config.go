package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database   DatabaseConfig
	PhotoPrism PhotoPrismConfig
	Worker     WorkerConfig
	Matching   MatchingConfig
	Clustering ClusteringConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type PhotoPrismConfig struct {
	DatabaseURL string // MariaDB DSN for importing markers (e.g., photoprism:photoprism@tcp(mariadb:3306)/photoprism)
}

type WorkerConfig struct {
	Interpreter    string // defaults to python3
	Script         string // path to the embedding worker script
	TimeoutSeconds int    // worker deadline, defaults to 120
}

type MatchingConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	VoteThreshold       float64 `yaml:"vote_threshold"`
	K                   int     `yaml:"k"`
	Strategy            string  `yaml:"strategy"`
}

type ClusteringConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxClusters         int     `yaml:"max_clusters"`
	MinClusterSize      int     `yaml:"min_cluster_size"`
}

// defaultsFile mirrors the embedded defaults.yaml layout.
type defaultsFile struct {
	Matching   MatchingConfig   `yaml:"matching"`
	Clustering ClusteringConfig `yaml:"clustering"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float in (0, 1].
// Thresholds outside that range fall back to the default.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var defaults defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// Embedded file, cannot fail at runtime unless the build is broken.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		PhotoPrism: PhotoPrismConfig{
			DatabaseURL: os.Getenv("PHOTOPRISM_DATABASE_URL"),
		},
		Worker: WorkerConfig{
			Interpreter:    envString("EMBED_WORKER_INTERPRETER", "python3"),
			Script:         envString("EMBED_WORKER_SCRIPT", "scripts/embed_worker.py"),
			TimeoutSeconds: envInt("EMBED_WORKER_TIMEOUT", 120),
		},
		Matching: MatchingConfig{
			SimilarityThreshold: envFloat("MATCH_SIMILARITY_THRESHOLD", defaults.Matching.SimilarityThreshold),
			VoteThreshold:       envFloat("MATCH_VOTE_THRESHOLD", defaults.Matching.VoteThreshold),
			K:                   envInt("MATCH_K", defaults.Matching.K),
			Strategy:            envString("MATCH_STRATEGY", defaults.Matching.Strategy),
		},
		Clustering: ClusteringConfig{
			SimilarityThreshold: envFloat("CLUSTER_SIMILARITY_THRESHOLD", defaults.Clustering.SimilarityThreshold),
			MaxClusters:         envInt("CLUSTER_MAX_CLUSTERS", defaults.Clustering.MaxClusters),
			MinClusterSize:      envInt("CLUSTER_MIN_SIZE", defaults.Clustering.MinClusterSize),
		},
	}
}
