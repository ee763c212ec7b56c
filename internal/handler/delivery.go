package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/domain/deliveries"
	"github.com/Spok95/ops-portal/internal/middleware"
)

type deliveryRequest struct {
	deliveries.Delivery
	UserID string `json:"user_id"`
}

func (h *Handlers) GetDelivery(c *gin.Context) {
	id, ok := optionalID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if id > 0 {
		d, err := h.Deliveries.Get(ctx, id)
		if err != nil {
			h.fail(c, "get delivery", id, err)
			return
		}
		if d == nil {
			notFound(c, "delivery not found")
			return
		}
		c.JSON(http.StatusOK, d)
		return
	}

	status := deliveries.Status(strings.TrimSpace(c.Query("status")))
	if status != "" && !status.Valid() {
		badRequest(c, fmt.Sprintf("unknown status %q", status))
		return
	}
	list, err := h.Deliveries.List(ctx, status)
	if err != nil {
		h.fail(c, "list deliveries", nil, err)
		return
	}
	if list == nil {
		list = []deliveries.Delivery{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) CreateDelivery(c *gin.Context) {
	var in deliveryRequest
	if !bind(c, &in) {
		return
	}
	out, err := h.Deliveries.Create(c.Request.Context(), middleware.Actor(c, in.UserID), in.Delivery)
	if err != nil {
		h.fail(c, "create delivery", nil, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handlers) UpdateDelivery(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	var in deliveryRequest
	if !bind(c, &in) {
		return
	}
	in.ID = id
	out, err := h.Deliveries.Update(c.Request.Context(), middleware.Actor(c, in.UserID), in.Delivery)
	if err != nil {
		h.fail(c, "update delivery", id, err)
		return
	}
	if out == nil {
		notFound(c, "delivery not found")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteDelivery(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	gone, err := h.Deliveries.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete delivery", id, err)
		return
	}
	deleted(c, gone, "delivery", id)
}
