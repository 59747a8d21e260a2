package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/service"
)

// RefDataHandler serves tags and ingredients. Neither listing is paginated.
type RefDataHandler struct {
	refData *service.RefDataService
}

func NewRefDataHandler(refData *service.RefDataService) *RefDataHandler {
	return &RefDataHandler{refData: refData}
}

func (h *RefDataHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/tags", h.ListTags)
	router.GET("/tags/:id", h.GetTag)
	router.GET("/ingredients", h.ListIngredients)
	router.GET("/ingredients/:id", h.GetIngredient)
}

func (h *RefDataHandler) ListTags(c *gin.Context) {
	tags, err := h.refData.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *RefDataHandler) GetTag(c *gin.Context) {
	id, ok := parseUintID(c)
	if !ok {
		return
	}
	tag, err := h.refData.GetTag(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (h *RefDataHandler) ListIngredients(c *gin.Context) {
	ingredients, err := h.refData.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

func (h *RefDataHandler) GetIngredient(c *gin.Context) {
	id, ok := parseUintID(c)
	if !ok {
		return
	}
	ingredient, err := h.refData.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

func parseUintID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
