package handlers

import (
	"github.com/airaware/aqi-analytics/internal/models"
	"github.com/gofiber/fiber/v2"
)

// Classifier compares the AQI category classifiers
// POST /classifier
func (h *Handler) Classifier(c *fiber.Ctx) error {
	report, err := h.classificationService.Run(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"classifier":   report.Models,
		"train_rows":   report.TrainRows,
		"test_rows":    report.TestRows,
		"dropped_rows": report.DroppedRows,
	})
}

// Cluster runs DBSCAN for one country or all of them
// POST /cluster
func (h *Handler) Cluster(c *fiber.Ctx) error {
	var body models.ClusterRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return invalidBody(err)
		}
	}

	results, err := h.clusterService.Run(c.UserContext(), body.Country)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"clusters": results})
}
