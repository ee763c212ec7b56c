package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/auth"
	"github.com/Spok95/ops-portal/internal/domain/brands"
	"github.com/Spok95/ops-portal/internal/domain/collections"
	"github.com/Spok95/ops-portal/internal/domain/customers"
	"github.com/Spok95/ops-portal/internal/domain/deliveries"
	"github.com/Spok95/ops-portal/internal/domain/inventory"
	"github.com/Spok95/ops-portal/internal/domain/products"
	"github.com/Spok95/ops-portal/internal/domain/removalists"
	"github.com/Spok95/ops-portal/internal/domain/users"
	"github.com/Spok95/ops-portal/internal/domain/waitlist"
	"github.com/Spok95/ops-portal/internal/domain/workorders"
	"github.com/Spok95/ops-portal/internal/infra/db"
	"github.com/Spok95/ops-portal/internal/middleware"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.Token, error)
	Logout(ctx context.Context, c *auth.Claims) error
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	Parse(ctx context.Context, raw string) (*auth.Claims, error)
}

type CustomerStore interface {
	Create(ctx context.Context, c customers.Customer) (*customers.Customer, error)
	GetByID(ctx context.Context, id int64) (*customers.Customer, error)
	Update(ctx context.Context, c customers.Customer) (*customers.Customer, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, search string) ([]customers.Customer, error)
}

type ProductStore interface {
	Create(ctx context.Context, p products.Product) (*products.Product, error)
	GetBySKU(ctx context.Context, sku string) (*products.Product, error)
	Update(ctx context.Context, p products.Product) (*products.Product, error)
	Delete(ctx context.Context, sku string) (bool, error)
	List(ctx context.Context, f products.Filter) ([]products.Product, error)
}

type BrandStore interface {
	GetByID(ctx context.Context, id int64) (*brands.Brand, error)
	Create(ctx context.Context, name string) (*brands.Brand, error)
	Rename(ctx context.Context, id int64, name string) (*brands.Brand, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]brands.Brand, error)
}

type WaitlistStore interface {
	Create(ctx context.Context, e waitlist.Entry) (*waitlist.Entry, error)
	GetByID(ctx context.Context, id int64) (*waitlist.Entry, error)
	Update(ctx context.Context, e waitlist.Entry) (*waitlist.Entry, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, status waitlist.Status) ([]waitlist.Entry, error)
}

type UserStore interface {
	Create(ctx context.Context, u users.User) (*users.User, error)
	GetByID(ctx context.Context, id int64) (*users.User, error)
	Update(ctx context.Context, u users.User) (*users.User, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]users.User, error)
	ListTechnicians(ctx context.Context) ([]users.Technician, error)
}

type DeliveryStore interface {
	Create(ctx context.Context, actor string, d deliveries.Delivery) (*deliveries.Delivery, error)
	Update(ctx context.Context, actor string, d deliveries.Delivery) (*deliveries.Delivery, error)
	Get(ctx context.Context, id int64) (*deliveries.Delivery, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, status deliveries.Status) ([]deliveries.Delivery, error)
}

type CollectionStore interface {
	Create(ctx context.Context, c collections.Collection) (*collections.Collection, error)
	GetByID(ctx context.Context, id int64) (*collections.Collection, error)
	Update(ctx context.Context, c collections.Collection) (*collections.Collection, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, status collections.Status) ([]collections.Collection, error)
}

type RemovalistStore interface {
	Create(ctx context.Context, m removalists.Removalist) (*removalists.Removalist, error)
	GetByID(ctx context.Context, id int64) (*removalists.Removalist, error)
	Update(ctx context.Context, m removalists.Removalist) (*removalists.Removalist, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]removalists.Removalist, error)
}

type StockTaker interface {
	Apply(ctx context.Context, counts []inventory.Count) (inventory.TakeResult, error)
}

// Handlers holds every dependency of the HTTP surface. A nil store leaves its routes
// unregistered.
type Handlers struct {
	Log         *slog.Logger
	Auth        Authenticator
	Workorders  *workorders.Service
	Customers   CustomerStore
	Products    ProductStore
	Brands      BrandStore
	Waitlist    WaitlistStore
	Users       UserStore
	Deliveries  DeliveryStore
	Collections CollectionStore
	Removalists RemovalistStore
	StockTake   StockTaker
}

// Register mounts all routes on r. /login is public, everything else needs a token.
func (h *Handlers) Register(r gin.IRouter) {
	r.POST("/login", h.Login)

	a := r.Group("", middleware.JWTAuth(h.Auth))
	a.POST("/logout", h.Logout)
	a.POST("/password", h.ChangePassword)

	admin := middleware.RequireAccess(users.AccessAdmin)
	office := middleware.RequireAccess(users.AccessAdmin, users.AccessStaff)

	if h.Workorders != nil {
		a.GET("/workorder", h.GetWorkorder)
		a.POST("/workorder", office, h.CreateWorkorder)
		a.PUT("/workorder", h.UpdateWorkorder)
		a.DELETE("/workorder", office, h.DeleteWorkorder)
		a.GET("/workorder/export", office, h.ExportWorkorders)
	}
	if h.Customers != nil {
		a.GET("/customer", h.GetCustomer)
		a.POST("/customer", office, h.CreateCustomer)
		a.PUT("/customer", office, h.UpdateCustomer)
		a.DELETE("/customer", office, h.DeleteCustomer)
	}
	if h.Products != nil {
		a.GET("/product", h.GetProduct)
		a.POST("/product", office, h.CreateProduct)
		a.PUT("/product", office, h.UpdateProduct)
		a.DELETE("/product", admin, h.DeleteProduct)
		a.GET("/product/export", office, h.ExportProducts)
	}
	if h.StockTake != nil {
		a.POST("/product/import", admin, h.ImportProducts)
	}
	if h.Brands != nil {
		a.GET("/brand", h.GetBrand)
		a.POST("/brand", office, h.CreateBrand)
		a.PUT("/brand", office, h.UpdateBrand)
		a.DELETE("/brand", admin, h.DeleteBrand)
	}
	if h.Waitlist != nil {
		a.GET("/waitlist", h.GetWaitlist)
		a.POST("/waitlist", office, h.CreateWaitlist)
		a.PUT("/waitlist", office, h.UpdateWaitlist)
		a.DELETE("/waitlist", office, h.DeleteWaitlist)
	}
	if h.Users != nil {
		a.GET("/user", admin, h.GetUser)
		a.POST("/user", admin, h.CreateUser)
		a.PUT("/user", admin, h.UpdateUser)
		a.DELETE("/user", admin, h.DeleteUser)
	}
	if h.Deliveries != nil {
		a.GET("/delivery", h.GetDelivery)
		a.POST("/delivery", office, h.CreateDelivery)
		a.PUT("/delivery", office, h.UpdateDelivery)
		a.DELETE("/delivery", office, h.DeleteDelivery)
	}
	if h.Collections != nil {
		a.GET("/collection", h.GetCollection)
		a.POST("/collection", office, h.CreateCollection)
		a.PUT("/collection", office, h.UpdateCollection)
		a.DELETE("/collection", office, h.DeleteCollection)
	}
	if h.Removalists != nil {
		a.GET("/removalist", h.GetRemovalist)
		a.POST("/removalist", office, h.CreateRemovalist)
		a.PUT("/removalist", office, h.UpdateRemovalist)
		a.DELETE("/removalist", admin, h.DeleteRemovalist)
	}
}

// errorBody is the payload of every non-2xx response.
type errorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	SKU       string `json:"sku,omitempty"`
	Current   *int64 `json:"current,omitempty"`
	Requested string `json:"requested,omitempty"`
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorBody{Kind: "validation", Message: msg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, errorBody{Kind: "not_found", Message: msg})
}

func missing(c *gin.Context, fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	badRequest(c, "missing required field(s): "+strings.Join(fields, ", "))
	return true
}

// fail classifies err into a response. Unknown errors are logged with the operation and
// the id it was working on, and the client gets a generic message.
func (h *Handlers) fail(c *gin.Context, op string, id any, err error) {
	var (
		ve    *workorders.ValidationError
		short *inventory.InsufficientStockError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, errorBody{Kind: "validation", Message: ve.Error()})
	case errors.As(err, &short):
		cur := short.Current
		c.JSON(http.StatusConflict, errorBody{
			Kind:      "insufficient_stock",
			Message:   short.Error(),
			SKU:       short.SKU,
			Current:   &cur,
			Requested: short.Requested.String(),
		})
	case errors.Is(err, inventory.ErrInvalidStockMath):
		c.JSON(http.StatusBadRequest, errorBody{Kind: "invalid_stock_math", Message: err.Error()})
	case errors.Is(err, workorders.ErrNotFound), errors.Is(err, inventory.ErrProductNotFound):
		notFound(c, err.Error())
	case errors.Is(err, deliveries.ErrInvalid), errors.Is(err, deliveries.ErrUnknownWorkorder):
		badRequest(c, err.Error())
	case errors.Is(err, auth.ErrWeakPassword):
		badRequest(c, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorBody{Kind: "unauthorized", Message: err.Error()})
	case db.IsUniqueViolation(err):
		c.JSON(http.StatusConflict, errorBody{Kind: "conflict", Message: "a record with the same unique value already exists"})
	case db.IsForeignKeyViolation(err):
		c.JSON(http.StatusConflict, errorBody{Kind: "conflict", Message: "record is referenced by, or refers to, a missing record"})
	default:
		h.Log.Error("request failed", "op", op, "id", id, "err", err, "request_id", middleware.RequestIDFrom(c))
		c.JSON(http.StatusInternalServerError, errorBody{Kind: "internal", Message: "internal error"})
	}
}

// optionalID reads a positive integer query parameter, 0 when absent. ok is false when
// the value was malformed and a 400 has been written.
func optionalID(c *gin.Context, name string) (int64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return v, true
}

func requireID(c *gin.Context, name string) (int64, bool) {
	id, ok := optionalID(c, name)
	if !ok {
		return 0, false
	}
	if id == 0 {
		badRequest(c, name+" is required")
		return 0, false
	}
	return id, true
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// deleted answers a delete: 204 when a row went, 404 otherwise.
func deleted(c *gin.Context, ok bool, what string, id any) {
	if !ok {
		notFound(c, fmt.Sprintf("%s %v not found", what, id))
		return
	}
	c.Status(http.StatusNoContent)
}
