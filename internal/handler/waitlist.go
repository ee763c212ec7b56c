package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/domain/waitlist"
)

func checkWaitlist(c *gin.Context, e *waitlist.Entry) bool {
	if missing(c, e.Missing()) {
		return false
	}
	if e.Status == "" {
		e.Status = waitlist.StatusWaiting
	}
	if !e.Status.Valid() {
		badRequest(c, fmt.Sprintf("unknown status %q", e.Status))
		return false
	}
	return true
}

func (h *Handlers) GetWaitlist(c *gin.Context) {
	id, ok := optionalID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if id > 0 {
		e, err := h.Waitlist.GetByID(ctx, id)
		if err != nil {
			h.fail(c, "get waitlist entry", id, err)
			return
		}
		if e == nil {
			notFound(c, "waitlist entry not found")
			return
		}
		c.JSON(http.StatusOK, e)
		return
	}

	status := waitlist.Status(strings.TrimSpace(c.Query("status")))
	if status != "" && !status.Valid() {
		badRequest(c, fmt.Sprintf("unknown status %q", status))
		return
	}
	list, err := h.Waitlist.List(ctx, status)
	if err != nil {
		h.fail(c, "list waitlist", nil, err)
		return
	}
	if list == nil {
		list = []waitlist.Entry{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) CreateWaitlist(c *gin.Context) {
	var in waitlist.Entry
	if !bind(c, &in) || !checkWaitlist(c, &in) {
		return
	}
	out, err := h.Waitlist.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create waitlist entry", nil, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handlers) UpdateWaitlist(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	var in waitlist.Entry
	if !bind(c, &in) || !checkWaitlist(c, &in) {
		return
	}
	in.ID = id
	out, err := h.Waitlist.Update(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "update waitlist entry", id, err)
		return
	}
	if out == nil {
		notFound(c, "waitlist entry not found")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteWaitlist(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	gone, err := h.Waitlist.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete waitlist entry", id, err)
		return
	}
	deleted(c, gone, "waitlist entry", id)
}
