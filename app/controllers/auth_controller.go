package controllers

import (
	"github.com/shashiranjanraj/orderly/app/services"
	"github.com/shashiranjanraj/orderly/pkg/ctx"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(s *services.AuthService) *AuthController {
	return &AuthController{service: s}
}

// Login exchanges the admin credential for a bearer token.
func (h *AuthController) Login(c *ctx.Context) {
	var body loginRequest
	if !c.BindJSON(&body) {
		return
	}

	token, err := h.service.Login(c.Context(), body.Username, body.Password)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(token)
}
