package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/domain/inventory"
	"github.com/Spok95/ops-portal/internal/domain/products"
	"github.com/Spok95/ops-portal/internal/infra/excel"
)

const maxImportSize = 8 << 20

func productFilter(c *gin.Context) (products.Filter, bool) {
	brand, ok := optionalID(c, "brand")
	if !ok {
		return products.Filter{}, false
	}
	low, ok := optionalID(c, "low_stock")
	if !ok {
		return products.Filter{}, false
	}
	return products.Filter{BrandID: brand, Search: strings.TrimSpace(c.Query("search")), LowStock: low}, true
}

func (h *Handlers) GetProduct(c *gin.Context) {
	ctx := c.Request.Context()
	if sku := strings.TrimSpace(c.Query("sku")); sku != "" {
		p, err := h.Products.GetBySKU(ctx, sku)
		if err != nil {
			h.fail(c, "get product", sku, err)
			return
		}
		if p == nil {
			notFound(c, "product not found")
			return
		}
		c.JSON(http.StatusOK, p)
		return
	}

	f, ok := productFilter(c)
	if !ok {
		return
	}
	list, err := h.Products.List(ctx, f)
	if err != nil {
		h.fail(c, "list products", nil, err)
		return
	}
	if list == nil {
		list = []products.Product{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) CreateProduct(c *gin.Context) {
	var in products.Product
	if !bind(c, &in) || missing(c, in.Missing()) {
		return
	}
	if in.SKU == inventory.CustomSKU {
		badRequest(c, fmt.Sprintf("sku %s is reserved for custom lines", inventory.CustomSKU))
		return
	}
	if in.Stock < 0 || in.Price.IsNegative() {
		badRequest(c, "stock and price must not be negative")
		return
	}
	out, err := h.Products.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create product", in.SKU, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// UpdateProduct writes name, brand and price. A stock value in the body is ignored.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var in products.Product
	if !bind(c, &in) {
		return
	}
	if sku := strings.TrimSpace(c.Query("sku")); sku != "" {
		in.SKU = sku
	}
	if missing(c, in.Missing()) {
		return
	}
	if in.Price.IsNegative() {
		badRequest(c, "price must not be negative")
		return
	}
	out, err := h.Products.Update(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "update product", in.SKU, err)
		return
	}
	if out == nil {
		notFound(c, "product not found")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteProduct(c *gin.Context) {
	sku := strings.TrimSpace(c.Query("sku"))
	if sku == "" {
		badRequest(c, "sku is required")
		return
	}
	gone, err := h.Products.Delete(c.Request.Context(), sku)
	if err != nil {
		h.fail(c, "delete product", sku, err)
		return
	}
	deleted(c, gone, "product", sku)
}

// ExportProducts returns a stock-take sheet for the filtered products.
func (h *Handlers) ExportProducts(c *gin.Context) {
	f, ok := productFilter(c)
	if !ok {
		return
	}
	list, err := h.Products.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "export products", nil, err)
		return
	}
	data, err := excel.ExportStock(list)
	if err != nil {
		h.fail(c, "export products", nil, err)
		return
	}
	attachment(c, fmt.Sprintf("stock_%s.xlsx", time.Now().Format("20060102_150405")), data)
}

// ImportProducts applies a filled-in stock-take sheet (multipart field "file"). Either
// every counted line is applied or none is.
func (h *Handlers) ImportProducts(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	if fh.Size > maxImportSize {
		badRequest(c, "file is too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, "import products", nil, err)
		return
	}
	defer func() { _ = f.Close() }()

	rows, err := excel.ParseStock(f)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	counts := make([]inventory.Count, 0, len(rows))
	for _, r := range rows {
		counts = append(counts, inventory.Count{SKU: r.SKU, Target: r.Target})
	}

	res, err := h.StockTake.Apply(c.Request.Context(), counts)
	if errors.Is(err, inventory.ErrProductNotFound) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		h.fail(c, "import products", nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lines":   res.Lines,
		"changed": len(res.Changed),
		"in":      res.In,
		"out":     res.Out,
	})
}
