package services

import (
	"context"
	"errors"

	"github.com/airaware/aqi-analytics/internal/analytics/cluster"
	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/utils"
)

// ClusterService runs DBSCAN per country
type ClusterService struct {
	logger *logging.Logger
	cache  *dataset.Cache
	params cluster.Params
}

// NewClusterService creates a ClusterService
func NewClusterService(logger *logging.Logger, cache *dataset.Cache, cfg config.ClusteringConfig) *ClusterService {
	return &ClusterService{
		logger: logger,
		cache:  cache,
		params: cluster.Params{Neighbors: cfg.Neighbors, MinSamples: cfg.MinSamples},
	}
}

// Run clusters one country, or every country when country is empty.
// In the all-countries mode countries without a complete row are skipped.
func (s *ClusterService) Run(ctx context.Context, country string) ([]*cluster.Result, error) {
	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, datasetUnavailable(err)
	}

	countries := ds.Countries()
	if country != "" {
		countries = []string{country}
	}

	results := make([]*cluster.Result, 0, len(countries))
	for _, c := range countries {
		details := map[string]interface{}{"country": c}

		series, err := ds.Series(c)
		if err != nil {
			return nil, toServiceError(err, details)
		}

		result, err := cluster.Run(ctx, c, series, s.params)
		if err != nil {
			if country == "" && errors.Is(err, cluster.ErrNoCompleteRows) {
				s.logger.Debug("Country skipped for clustering", "country", c)
				continue
			}
			return nil, toServiceError(err, details)
		}
		results = append(results, cleanClusterResult(result))
	}

	s.logger.WithContext(ctx).Info("Clustering completed", "countries", len(results))
	return results, nil
}

func cleanClusterResult(r *cluster.Result) *cluster.Result {
	r.Eps = utils.JSONSafe(r.Eps)
	r.SilhouetteScore = utils.JSONSafe(r.SilhouetteScore)
	for i := range r.Summaries {
		utils.JSONSafeMap(r.Summaries[i].Means)
	}
	return r
}
