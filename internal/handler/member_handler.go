package handler

import (
	"net/http"

	"stockino/internal/middleware"
	"stockino/internal/service"
	"stockino/pkg/response"

	"github.com/gin-gonic/gin"
)

type MemberHandler struct {
	memberService service.MemberService
	tenants       service.TenantService
	secret        []byte
}

func NewMemberHandler(memberService service.MemberService, tenants service.TenantService, secret []byte) *MemberHandler {
	return &MemberHandler{memberService: memberService, tenants: tenants, secret: secret}
}

func (h *MemberHandler) RegisterRoutes(router *gin.RouterGroup) {
	members := router.Group("/api/members")
	members.Use(middleware.RequireAuth(h.secret))
	{
		members.GET("", h.ListMembers)
		members.POST("", h.InviteMember)
		members.PATCH("/:id", h.UpdateMemberRole)
		members.DELETE("/:id", h.RemoveMember)
	}
}

// ListMembers lists the members of the caller's organization
// @Summary      List members
// @Tags         members
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ProfileResponse}
// @Router       /api/members [get]
func (h *MemberHandler) ListMembers(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	members, err := h.memberService.ListMembers(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, members))
}

// InviteMember creates an account inside the organization
// @Summary      Invite member
// @Tags         members
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.InviteMemberRequest  true  "Member payload"
// @Success      201      {object}  response.Response{data=service.ProfileResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/members [post]
func (h *MemberHandler) InviteMember(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	var req service.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	member, err := h.memberService.InviteMember(c.Request.Context(), t, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, member))
}

// UpdateMemberRole changes the role of a member
// @Summary      Update member role
// @Tags         members
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Profile ID"
// @Param        payload  body      service.UpdateMemberRoleRequest  true  "Role payload"
// @Success      200      {object}  response.Response{data=service.ProfileResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/members/{id} [patch]
func (h *MemberHandler) UpdateMemberRole(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	var req service.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	member, err := h.memberService.UpdateMemberRole(c.Request.Context(), t, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, member))
}

// RemoveMember deletes a member account
// @Summary      Remove member
// @Tags         members
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Profile ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/members/{id} [delete]
func (h *MemberHandler) RemoveMember(c *gin.Context) {
	t, ok := tenantOf(c, h.tenants)
	if !ok {
		return
	}
	if err := h.memberService.RemoveMember(c.Request.Context(), t, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Member removed"}))
}
