package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/auth"
	"github.com/Spok95/ops-portal/internal/domain/users"
	"github.com/Spok95/ops-portal/internal/domain/workorders"
)

type userRequest struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Access   users.Access `json:"access"`
	Code     string       `json:"code"`
}

// toUser validates the profile fields; the password is checked by the caller because it
// is optional on update.
func (r userRequest) toUser(c *gin.Context) (users.User, bool) {
	var miss []string
	if strings.TrimSpace(r.Name) == "" {
		miss = append(miss, "name")
	}
	if users.NormalizeEmail(r.Email) == "" {
		miss = append(miss, "email")
	}
	if strings.TrimSpace(r.Code) == "" {
		miss = append(miss, "code")
	}
	if missing(c, miss) {
		return users.User{}, false
	}
	if !r.Access.Valid() {
		badRequest(c, fmt.Sprintf("access must be admin, staff or technician, got %q", r.Access))
		return users.User{}, false
	}
	code, err := workorders.NormalizeTechnician(r.Code)
	if err != nil {
		badRequest(c, "code must be two letters or digits")
		return users.User{}, false
	}
	return users.User{Name: r.Name, Email: r.Email, Access: r.Access, Code: code}, true
}

func (h *Handlers) GetUser(c *gin.Context) {
	id, ok := optionalID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if id > 0 {
		u, err := h.Users.GetByID(ctx, id)
		if err != nil {
			h.fail(c, "get user", id, err)
			return
		}
		if u == nil {
			notFound(c, "user not found")
			return
		}
		c.JSON(http.StatusOK, u)
		return
	}

	list, err := h.Users.List(ctx)
	if err != nil {
		h.fail(c, "list users", nil, err)
		return
	}
	if list == nil {
		list = []users.User{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) CreateUser(c *gin.Context) {
	var in userRequest
	if !bind(c, &in) {
		return
	}
	u, ok := in.toUser(c)
	if !ok {
		return
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.fail(c, "create user", nil, err)
		return
	}
	u.PasswordHash = hash

	out, err := h.Users.Create(c.Request.Context(), u)
	if err != nil {
		h.fail(c, "create user", nil, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// UpdateUser rewrites the profile; a non-empty password also resets the hash.
func (h *Handlers) UpdateUser(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	var in userRequest
	if !bind(c, &in) {
		return
	}
	u, ok := in.toUser(c)
	if !ok {
		return
	}
	u.ID = id

	var hash string
	if in.Password != "" {
		var err error
		if hash, err = auth.HashPassword(in.Password); err != nil {
			h.fail(c, "update user", id, err)
			return
		}
	}

	ctx := c.Request.Context()
	out, err := h.Users.Update(ctx, u)
	if err != nil {
		h.fail(c, "update user", id, err)
		return
	}
	if out == nil {
		notFound(c, "user not found")
		return
	}
	if hash != "" {
		if err := h.Users.SetPasswordHash(ctx, id, hash); err != nil {
			h.fail(c, "update user", id, err)
			return
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteUser(c *gin.Context) {
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	gone, err := h.Users.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete user", id, err)
		return
	}
	deleted(c, gone, "user", id)
}
