package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Spok95/ops-portal/internal/domain/workorders"
	"github.com/Spok95/ops-portal/internal/infra/excel"
	"github.com/Spok95/ops-portal/internal/middleware"
)

type createWorkorderRequest struct {
	workorders.CreateInput
	UserID string `json:"user_id"`
}

type updateWorkorderRequest struct {
	workorders.Patch
	WorkorderID int64  `json:"workorder_id"`
	UserID      string `json:"user_id"`
}

func filterFrom(c *gin.Context) workorders.Filter {
	return workorders.Filter{
		Status:      strings.TrimSpace(c.Query("status")),
		State:       strings.TrimSpace(c.Query("state")),
		Salesperson: strings.TrimSpace(c.Query("salesperson")),
		Payment:     workorders.Payment(strings.ToLower(strings.TrimSpace(c.Query("payment")))),
		Technician:  strings.TrimSpace(c.Query("technician")),
	}
}

// GetWorkorder serves three reads: the technician dropdown (technicians=1), a single
// work order view (id=N) and the filtered list.
func (h *Handlers) GetWorkorder(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Query("technicians") == "1" {
		if h.Users == nil {
			c.JSON(http.StatusOK, []any{})
			return
		}
		techs, err := h.Users.ListTechnicians(ctx)
		if err != nil {
			h.fail(c, "list technicians", nil, err)
			return
		}
		c.JSON(http.StatusOK, techs)
		return
	}

	id, ok := optionalID(c, "id")
	if !ok {
		return
	}
	if id > 0 {
		v, err := h.Workorders.Get(ctx, id)
		if err != nil {
			h.fail(c, "get workorder", id, err)
			return
		}
		if !middleware.IsAdmin(c) {
			hidePrices(&v)
		}
		c.JSON(http.StatusOK, v)
		return
	}

	list, err := h.Workorders.List(ctx, filterFrom(c))
	if err != nil {
		h.fail(c, "list workorders", nil, err)
		return
	}
	if list == nil {
		list = []workorders.Summary{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) CreateWorkorder(c *gin.Context) {
	var req createWorkorderRequest
	if !bind(c, &req) {
		return
	}
	if !middleware.IsAdmin(c) {
		for i := range req.Items {
			req.Items[i].SellingPrice = nil
		}
	}

	v, err := h.Workorders.Create(c.Request.Context(), middleware.Actor(c, req.UserID), req.CreateInput)
	if err != nil {
		h.fail(c, "create workorder", nil, err)
		return
	}
	if !middleware.IsAdmin(c) {
		hidePrices(&v)
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handlers) UpdateWorkorder(c *gin.Context) {
	var req updateWorkorderRequest
	if !bind(c, &req) {
		return
	}
	id, ok := optionalID(c, "id")
	if !ok {
		return
	}
	if id == 0 {
		id = req.WorkorderID
	}
	if id <= 0 {
		badRequest(c, "id is required")
		return
	}

	if !middleware.IsAdmin(c) {
		for i := range req.Items {
			req.Items[i].SellingPrice = workorders.Opt[decimal.Decimal]{}
		}
		for i := range req.AddItems {
			req.AddItems[i].SellingPrice = nil
		}
	}

	v, err := h.Workorders.Update(c.Request.Context(), id, middleware.Actor(c, req.UserID), req.Patch)
	if err != nil {
		h.fail(c, "update workorder", id, err)
		return
	}
	if !middleware.IsAdmin(c) {
		hidePrices(&v)
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handlers) DeleteWorkorder(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	if err := h.Workorders.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "delete workorder", id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportWorkorders returns the filtered list as an xlsx attachment.
func (h *Handlers) ExportWorkorders(c *gin.Context) {
	list, err := h.Workorders.List(c.Request.Context(), filterFrom(c))
	if err != nil {
		h.fail(c, "export workorders", nil, err)
		return
	}
	data, err := excel.ExportWorkorders(list)
	if err != nil {
		h.fail(c, "export workorders", nil, err)
		return
	}
	attachment(c, fmt.Sprintf("workorders_%s.xlsx", time.Now().Format("20060102_150405")), data)
}

func attachment(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, excel.ContentType, data)
}

func hidePrices(v *workorders.View) {
	for i := range v.Items {
		v.Items[i].SellingPrice = nil
	}
}
