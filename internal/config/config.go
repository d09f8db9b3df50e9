package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Dataset        DatasetConfig        `mapstructure:"dataset"`
	Forecast       ForecastConfig       `mapstructure:"forecast"`
	Classification ClassificationConfig `mapstructure:"classification"`
	Clustering     ClusteringConfig     `mapstructure:"clustering"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Queue          QueueConfig          `mapstructure:"queue"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`             // Bind address (e.g., 0.0.0.0)
	HTTPPort        int           `mapstructure:"http_port"`        // HTTP server port
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`     // Fiber read timeout
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`    // Fiber write timeout, training can take a while
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // Graceful shutdown timeout
}

// Dataset cache policies
const (
	CachePolicyReload = "reload" // load the CSV on every request
	CachePolicyCached = "cached" // load once, reload after TTL or invalidation
)

// DatasetConfig describes the historical observation source
type DatasetConfig struct {
	Path        string        `mapstructure:"path"`         // CSV file with Country,Date,AQI,Temperature,RelativeHumidity,WindSpeed
	CachePolicy string        `mapstructure:"cache_policy"` // reload, cached
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`    // staleness bound for the cached policy, 0 = never stale
}

// Training policies
const (
	TrainingPolicyOnDemand  = "on_demand"  // fit a fresh model per request
	TrainingPolicyTrainOnce = "train_once" // fit once per country and dataset version
)

// ForecastConfig holds forecasting settings
type ForecastConfig struct {
	Horizon        int         `mapstructure:"horizon"`         // days simulated forward
	HistorySize    int         `mapstructure:"history_size"`    // sliding window length
	TestFraction   float64     `mapstructure:"test_fraction"`   // chronological hold-out share for batch evaluation
	TrainingPolicy string      `mapstructure:"training_policy"` // on_demand, train_once
	Workers        int         `mapstructure:"workers"`         // parallel countries in batch runs
	Model          ModelConfig `mapstructure:"model"`
}

// ModelConfig holds gradient boosting hyperparameters
type ModelConfig struct {
	NumTrees        int     `mapstructure:"n_estimators"`
	MaxDepth        int     `mapstructure:"max_depth"`
	LearningRate    float64 `mapstructure:"learning_rate"`
	Subsample       float64 `mapstructure:"subsample"`
	ColsampleByTree float64 `mapstructure:"colsample_bytree"`
	Lambda          float64 `mapstructure:"lambda"`
	MinChildWeight  float64 `mapstructure:"min_child_weight"`
	Seed            int64   `mapstructure:"seed"`
}

// ClassificationConfig holds AQI category classifier settings
type ClassificationConfig struct {
	TestFraction     float64 `mapstructure:"test_fraction"`
	Seed             int64   `mapstructure:"seed"`
	KNNNeighbors     int     `mapstructure:"knn_neighbors"`
	ForestTrees      int     `mapstructure:"forest_trees"`
	ForestMaxDepth   int     `mapstructure:"forest_max_depth"`
	LogisticMaxIter  int     `mapstructure:"logistic_max_iter"`
	LogisticStepSize float64 `mapstructure:"logistic_step_size"`
}

// ClusteringConfig holds DBSCAN settings
type ClusteringConfig struct {
	Neighbors  int `mapstructure:"neighbors"`   // k used for the k-distance curve
	MinSamples int `mapstructure:"min_samples"` // DBSCAN core point threshold
}

// StorageConfig represents result persistence configuration
type StorageConfig struct {
	ResultsDir string `mapstructure:"results_dir"` // forecast tables and metrics summary
}

// QueueConfig represents message queue configuration for forecast events
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // none (default), nats, redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL
	Password string `mapstructure:"password"` // Optional authentication
	Subject  string `mapstructure:"subject"`  // Subject/topic prefix (default: aqi.forecast)
	Compress bool   `mapstructure:"compress"` // snappy-compress payloads

	RedisDB      int      `mapstructure:"redis_db"`
	RedisStream  string   `mapstructure:"redis_stream"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Dataset.Validate(); err != nil {
		return fmt.Errorf("dataset config: %w", err)
	}

	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("forecast config: %w", err)
	}

	if err := c.Classification.Validate(); err != nil {
		return fmt.Errorf("classification config: %w", err)
	}

	if err := c.Clustering.Validate(); err != nil {
		return fmt.Errorf("clustering config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	return nil
}

// Validate validates dataset configuration
func (c *DatasetConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}

	if c.CachePolicy != CachePolicyReload && c.CachePolicy != CachePolicyCached {
		return fmt.Errorf("dataset.cache_policy must be '%s' or '%s'", CachePolicyReload, CachePolicyCached)
	}

	if c.CacheTTL < 0 {
		return fmt.Errorf("dataset.cache_ttl cannot be negative")
	}

	return nil
}

// Validate validates forecast configuration
func (c *ForecastConfig) Validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be at least 1")
	}

	// lag_30 indexes 30 entries back
	if c.HistorySize < 30 {
		return fmt.Errorf("forecast.history_size must be at least 30")
	}

	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("forecast.test_fraction must be in (0, 1)")
	}

	if c.TrainingPolicy != TrainingPolicyOnDemand && c.TrainingPolicy != TrainingPolicyTrainOnce {
		return fmt.Errorf("forecast.training_policy must be '%s' or '%s'", TrainingPolicyOnDemand, TrainingPolicyTrainOnce)
	}

	if c.Workers < 1 {
		return fmt.Errorf("forecast.workers must be at least 1")
	}

	return c.Model.Validate()
}

// Validate validates model hyperparameters
func (c *ModelConfig) Validate() error {
	if c.NumTrees < 1 {
		return fmt.Errorf("model.n_estimators must be at least 1")
	}

	if c.MaxDepth < 1 {
		return fmt.Errorf("model.max_depth must be at least 1")
	}

	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("model.learning_rate must be in (0, 1]")
	}

	if c.Subsample <= 0 || c.Subsample > 1 {
		return fmt.Errorf("model.subsample must be in (0, 1]")
	}

	if c.ColsampleByTree <= 0 || c.ColsampleByTree > 1 {
		return fmt.Errorf("model.colsample_bytree must be in (0, 1]")
	}

	if c.Lambda < 0 || c.MinChildWeight < 0 {
		return fmt.Errorf("model.lambda and model.min_child_weight cannot be negative")
	}

	return nil
}

// Validate validates classification configuration
func (c *ClassificationConfig) Validate() error {
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("classification.test_fraction must be in (0, 1)")
	}

	if c.KNNNeighbors < 1 || c.ForestTrees < 1 || c.ForestMaxDepth < 1 || c.LogisticMaxIter < 1 {
		return fmt.Errorf("classification model sizes must be positive")
	}

	if c.LogisticStepSize <= 0 {
		return fmt.Errorf("classification.logistic_step_size must be positive")
	}

	return nil
}

// Validate validates clustering configuration
func (c *ClusteringConfig) Validate() error {
	if c.Neighbors < 2 {
		return fmt.Errorf("clustering.neighbors must be at least 2")
	}

	if c.MinSamples < 1 {
		return fmt.Errorf("clustering.min_samples must be at least 1")
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "none", "memory":
		return nil
	case "nats", "redis":
		if c.URL == "" {
			return fmt.Errorf("queue.url is required for %s", c.Type)
		}
		return nil
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("queue.kafka_brokers is required for kafka")
		}
		return nil
	default:
		return fmt.Errorf("unsupported queue.type: %s", c.Type)
	}
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
