package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/domain/customers"
)

func (h *Handlers) GetCustomer(c *gin.Context) {
	id, ok := optionalID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if id > 0 {
		cu, err := h.Customers.GetByID(ctx, id)
		if err != nil {
			h.fail(c, "get customer", id, err)
			return
		}
		if cu == nil {
			notFound(c, "customer not found")
			return
		}
		c.JSON(http.StatusOK, cu)
		return
	}

	list, err := h.Customers.List(ctx, strings.TrimSpace(c.Query("search")))
	if err != nil {
		h.fail(c, "list customers", nil, err)
		return
	}
	if list == nil {
		list = []customers.Customer{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) CreateCustomer(c *gin.Context) {
	var in customers.Customer
	if !bind(c, &in) || missing(c, in.Missing()) {
		return
	}
	out, err := h.Customers.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create customer", nil, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handlers) UpdateCustomer(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	var in customers.Customer
	if !bind(c, &in) || missing(c, in.Missing()) {
		return
	}
	in.ID = id
	out, err := h.Customers.Update(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "update customer", id, err)
		return
	}
	if out == nil {
		notFound(c, "customer not found")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteCustomer(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	gone, err := h.Customers.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete customer", id, err)
		return
	}
	deleted(c, gone, "customer", id)
}
