package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/domain/collections"
)

func checkCollection(c *gin.Context, in *collections.Collection) bool {
	if missing(c, in.Missing()) {
		return false
	}
	if in.Status == "" {
		in.Status = collections.StatusToBeBooked
	}
	if !in.Status.Valid() {
		badRequest(c, fmt.Sprintf("unknown status %q", in.Status))
		return false
	}
	if in.Charged.IsNegative() {
		badRequest(c, "collection_charged must not be negative")
		return false
	}
	return true
}

func (h *Handlers) GetCollection(c *gin.Context) {
	id, ok := optionalID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if id > 0 {
		col, err := h.Collections.GetByID(ctx, id)
		if err != nil {
			h.fail(c, "get collection", id, err)
			return
		}
		if col == nil {
			notFound(c, "collection not found")
			return
		}
		c.JSON(http.StatusOK, col)
		return
	}

	status := collections.Status(strings.TrimSpace(c.Query("status")))
	if status != "" && !status.Valid() {
		badRequest(c, fmt.Sprintf("unknown status %q", status))
		return
	}
	list, err := h.Collections.List(ctx, status)
	if err != nil {
		h.fail(c, "list collections", nil, err)
		return
	}
	if list == nil {
		list = []collections.Collection{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) CreateCollection(c *gin.Context) {
	var in collections.Collection
	if !bind(c, &in) || !checkCollection(c, &in) {
		return
	}
	out, err := h.Collections.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create collection", nil, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handlers) UpdateCollection(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	var in collections.Collection
	if !bind(c, &in) || !checkCollection(c, &in) {
		return
	}
	in.ID = id
	out, err := h.Collections.Update(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "update collection", id, err)
		return
	}
	if out == nil {
		notFound(c, "collection not found")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteCollection(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	gone, err := h.Collections.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete collection", id, err)
		return
	}
	deleted(c, gone, "collection", id)
}
