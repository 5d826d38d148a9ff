package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/models"
)

// ServiceLister lists the active catalog
type ServiceLister interface {
	ListActive(ctx context.Context) ([]models.Service, error)
}

// CatalogHandler serves the service catalog
type CatalogHandler struct {
	catalog ServiceLister
	logger  *logrus.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog ServiceLister, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// ListServices handles GET /api/services
func (h *CatalogHandler) ListServices(c *gin.Context) {
	list, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if list == nil {
		list = []models.Service{}
	}
	c.JSON(http.StatusOK, list)
}
