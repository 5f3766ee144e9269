package handler

import (
	"strconv"

	"crowdfund/internal/model"
	"crowdfund/internal/repository"
	"crowdfund/internal/service"
	"crowdfund/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// Mount 绑定用户路由，auth 为令牌认证中间件
func (h *UserHandler) Mount(users *gin.RouterGroup, auth gin.HandlerFunc) {
	// 公开接口
	users.POST("", h.Create)
	users.POST("/login", h.Login)
	users.GET("/:id", h.Get)

	// 需要认证的接口
	authUsers := users.Group("")
	authUsers.Use(auth)
	{
		authUsers.POST("/logout", h.Logout)
		authUsers.PUT("/:id", h.Update)
		authUsers.DELETE("/:id", h.Delete)
	}
}

// Create 创建用户
func (h *UserHandler) Create(c *gin.Context) {
	var in model.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	id, err := h.service.Insert(c.Request.Context(), in)
	if err != nil {
		if repository.IsDuplicateEntry(err) {
			response.BadRequest(c, "username already exists")
			return
		}
		response.InternalError(c, "创建用户失败", err)
		return
	}

	response.SuccessWithMessage(c, "created", &response.CreatedResponse{ID: id})
}

// Login 用户登录，成功后签发新令牌
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if !h.service.Authenticate(ctx, r.Username, r.Password) {
		response.BadRequest(c, "invalid username/password supplied")
		return
	}

	tok, err := h.service.SetToken(ctx, r.Username)
	if err != nil {
		response.InternalError(c, "签发令牌失败", err)
		return
	}
	id, found, err := h.service.GetIDFromToken(ctx, tok)
	if err != nil || !found {
		response.InternalError(c, "签发令牌失败", err)
		return
	}

	response.SuccessWithMessage(c, "logged in", &response.LoginResponse{ID: id, Token: tok})
}

// Logout 注销当前令牌
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.service.RemoveToken(c.Request.Context(), GetToken(c)); err != nil {
		response.InternalError(c, "注销失败", err)
		return
	}
	response.SuccessWithMessage(c, "logged out", nil)
}

// Get 获取未删除用户的公开信息
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, found, err := h.service.GetOne(c.Request.Context(), id, true)
	if err != nil {
		response.InternalError(c, "查询用户失败", err)
		return
	}
	if !found {
		response.NotFound(c, "user not found")
		return
	}
	response.Success(c, user)
}

// Update 修改本人信息与密码
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := h.ownedTarget(c)
	if !ok {
		return
	}

	var in model.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.Alter(c.Request.Context(), id, in); err != nil {
		if repository.IsDuplicateEntry(err) {
			response.BadRequest(c, "username already exists")
			return
		}
		response.InternalError(c, "修改用户失败", err)
		return
	}
	response.SuccessWithMessage(c, "updated", nil)
}

// Delete 删除本人账号（软删除）
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := h.ownedTarget(c)
	if !ok {
		return
	}

	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		response.InternalError(c, "删除用户失败", err)
		return
	}
	response.SuccessWithMessage(c, "deleted", nil)
}

// ownedTarget 解析路径中的用户ID，要求用户存在且为当前认证用户
func (h *UserHandler) ownedTarget(c *gin.Context) (uint, bool) {
	id, ok := parseID(c)
	if !ok {
		return 0, false
	}

	_, found, err := h.service.GetOne(c.Request.Context(), id, true)
	if err != nil {
		response.InternalError(c, "查询用户失败", err)
		return 0, false
	}
	if !found {
		response.NotFound(c, "user not found")
		return 0, false
	}
	if GetUserID(c) != id {
		response.Forbidden(c, "forbidden - account not owned")
		return 0, false
	}
	return id, true
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.NotFound(c, "user not found")
		return 0, false
	}
	return uint(id), true
}
