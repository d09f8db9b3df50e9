package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/aqi-analytics")
	}

	setDefaults(v)

	// AQI_DATASET_PATH overrides dataset.path, etc.
	v.SetEnvPrefix("AQI")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout.String())
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout.String())
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout.String())

	v.SetDefault("dataset.path", d.Dataset.Path)
	v.SetDefault("dataset.cache_policy", d.Dataset.CachePolicy)
	v.SetDefault("dataset.cache_ttl", d.Dataset.CacheTTL.String())

	v.SetDefault("forecast.horizon", d.Forecast.Horizon)
	v.SetDefault("forecast.history_size", d.Forecast.HistorySize)
	v.SetDefault("forecast.test_fraction", d.Forecast.TestFraction)
	v.SetDefault("forecast.training_policy", d.Forecast.TrainingPolicy)
	v.SetDefault("forecast.workers", d.Forecast.Workers)
	v.SetDefault("forecast.model.n_estimators", d.Forecast.Model.NumTrees)
	v.SetDefault("forecast.model.max_depth", d.Forecast.Model.MaxDepth)
	v.SetDefault("forecast.model.learning_rate", d.Forecast.Model.LearningRate)
	v.SetDefault("forecast.model.subsample", d.Forecast.Model.Subsample)
	v.SetDefault("forecast.model.colsample_bytree", d.Forecast.Model.ColsampleByTree)
	v.SetDefault("forecast.model.lambda", d.Forecast.Model.Lambda)
	v.SetDefault("forecast.model.min_child_weight", d.Forecast.Model.MinChildWeight)
	v.SetDefault("forecast.model.seed", d.Forecast.Model.Seed)

	v.SetDefault("classification.test_fraction", d.Classification.TestFraction)
	v.SetDefault("classification.seed", d.Classification.Seed)
	v.SetDefault("classification.knn_neighbors", d.Classification.KNNNeighbors)
	v.SetDefault("classification.forest_trees", d.Classification.ForestTrees)
	v.SetDefault("classification.forest_max_depth", d.Classification.ForestMaxDepth)
	v.SetDefault("classification.logistic_max_iter", d.Classification.LogisticMaxIter)
	v.SetDefault("classification.logistic_step_size", d.Classification.LogisticStepSize)

	v.SetDefault("clustering.neighbors", d.Clustering.Neighbors)
	v.SetDefault("clustering.min_samples", d.Clustering.MinSamples)

	v.SetDefault("storage.results_dir", d.Storage.ResultsDir)

	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.subject", d.Queue.Subject)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			HTTPPort:        8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Dataset: DatasetConfig{
			Path:        "./data/Final.csv",
			CachePolicy: CachePolicyReload,
			CacheTTL:    0,
		},
		Forecast: ForecastConfig{
			Horizon:        180,
			HistorySize:    30,
			TestFraction:   0.2,
			TrainingPolicy: TrainingPolicyOnDemand,
			Workers:        4,
			Model: ModelConfig{
				NumTrees:        600,
				MaxDepth:        10,
				LearningRate:    0.05,
				Subsample:       0.8,
				ColsampleByTree: 0.8,
				Lambda:          1,
				MinChildWeight:  1,
				Seed:            42,
			},
		},
		Classification: ClassificationConfig{
			TestFraction:     0.2,
			Seed:             42,
			KNNNeighbors:     5,
			ForestTrees:      100,
			ForestMaxDepth:   15,
			LogisticMaxIter:  1000,
			LogisticStepSize: 0.5,
		},
		Clustering: ClusteringConfig{
			Neighbors:  10,
			MinSamples: 4,
		},
		Storage: StorageConfig{
			ResultsDir: "./results/regression",
		},
		Queue: QueueConfig{
			Type:        "none",
			Subject:     "aqi.forecast",
			RedisStream: "aqi",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
