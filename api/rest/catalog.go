package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/dungeonfighter/resource"
)

// CatalogHandler exposes the fighter catalog.
type CatalogHandler struct {
	cat *resource.Catalog
}

func NewCatalogHandler(cat *resource.Catalog) *CatalogHandler {
	return &CatalogHandler{cat: cat}
}

// List handles GET /api/catalog.
func (h *CatalogHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.cat.Names())
}

// Hero handles GET /api/catalog/heroes/:name.
func (h *CatalogHandler) Hero(c *gin.Context) {
	if def, ok := h.cat.Hero(c.Param("name")); ok {
		c.JSON(http.StatusOK, def)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "hero not found"})
}

// Enemy handles GET /api/catalog/enemies/:name.
func (h *CatalogHandler) Enemy(c *gin.Context) {
	if def, ok := h.cat.Enemy(c.Param("name")); ok {
		c.JSON(http.StatusOK, def)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "enemy not found"})
}

// Environment handles GET /api/catalog/environments/:name.
func (h *CatalogHandler) Environment(c *gin.Context) {
	if def, ok := h.cat.Environment(c.Param("name")); ok {
		c.JSON(http.StatusOK, def)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "environment not found"})
}
