package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/auth"
	"github.com/Spok95/ops-portal/internal/middleware"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

func (h *Handlers) Login(c *gin.Context) {
	var in loginRequest
	if !bind(c, &in) {
		return
	}
	if in.Email == "" || in.Password == "" {
		badRequest(c, "email and password are required")
		return
	}
	tok, err := h.Auth.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		h.fail(c, "login", nil, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

func (h *Handlers) Logout(c *gin.Context) {
	cl := middleware.ClaimsFrom(c)
	if err := h.Auth.Logout(c.Request.Context(), cl); err != nil {
		h.fail(c, "logout", cl.UserID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) ChangePassword(c *gin.Context) {
	var in passwordRequest
	if !bind(c, &in) {
		return
	}
	cl := middleware.ClaimsFrom(c)
	err := h.Auth.ChangePassword(c.Request.Context(), cl.UserID, in.Current, in.New)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusForbidden, errorBody{Kind: "forbidden", Message: "current password is wrong"})
		return
	}
	if err != nil {
		h.fail(c, "change password", cl.UserID, err)
		return
	}
	c.Status(http.StatusNoContent)
}
