package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/domain/removalists"
)

func (h *Handlers) GetRemovalist(c *gin.Context) {
	id, ok := optionalID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if id > 0 {
		m, err := h.Removalists.GetByID(ctx, id)
		if err != nil {
			h.fail(c, "get removalist", id, err)
			return
		}
		if m == nil {
			notFound(c, "removalist not found")
			return
		}
		c.JSON(http.StatusOK, m)
		return
	}

	list, err := h.Removalists.List(ctx)
	if err != nil {
		h.fail(c, "list removalists", nil, err)
		return
	}
	if list == nil {
		list = []removalists.Removalist{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) CreateRemovalist(c *gin.Context) {
	var in removalists.Removalist
	if !bind(c, &in) || missing(c, in.Missing()) {
		return
	}
	out, err := h.Removalists.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create removalist", nil, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handlers) UpdateRemovalist(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	var in removalists.Removalist
	if !bind(c, &in) || missing(c, in.Missing()) {
		return
	}
	in.ID = id
	out, err := h.Removalists.Update(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "update removalist", id, err)
		return
	}
	if out == nil {
		notFound(c, "removalist not found")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteRemovalist(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	gone, err := h.Removalists.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete removalist", id, err)
		return
	}
	deleted(c, gone, "removalist", id)
}
