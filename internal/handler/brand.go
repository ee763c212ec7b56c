package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/domain/brands"
)

type brandRequest struct {
	Name string `json:"name"`
}

func (h *Handlers) GetBrand(c *gin.Context) {
	id, ok := optionalID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if id > 0 {
		b, err := h.Brands.GetByID(ctx, id)
		if err != nil {
			h.fail(c, "get brand", id, err)
			return
		}
		if b == nil {
			notFound(c, "brand not found")
			return
		}
		c.JSON(http.StatusOK, b)
		return
	}

	list, err := h.Brands.List(ctx)
	if err != nil {
		h.fail(c, "list brands", nil, err)
		return
	}
	if list == nil {
		list = []brands.Brand{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) CreateBrand(c *gin.Context) {
	var in brandRequest
	if !bind(c, &in) {
		return
	}
	name := strings.TrimSpace(in.Name)
	if missing(c, emptyField("name", name)) {
		return
	}
	out, err := h.Brands.Create(c.Request.Context(), name)
	if err != nil {
		h.fail(c, "create brand", nil, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handlers) UpdateBrand(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	var in brandRequest
	if !bind(c, &in) {
		return
	}
	name := strings.TrimSpace(in.Name)
	if missing(c, emptyField("name", name)) {
		return
	}
	out, err := h.Brands.Rename(c.Request.Context(), id, name)
	if err != nil {
		h.fail(c, "rename brand", id, err)
		return
	}
	if out == nil {
		notFound(c, "brand not found")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteBrand(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	gone, err := h.Brands.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete brand", id, err)
		return
	}
	deleted(c, gone, "brand", id)
}

func emptyField(name, v string) []string {
	if v == "" {
		return []string{name}
	}
	return nil
}
