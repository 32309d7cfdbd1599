package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/application/userbook"
	"github.com/xiebiao/bookshelf/internal/interface/http/dto"
	"github.com/xiebiao/bookshelf/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
	"github.com/xiebiao/bookshelf/pkg/response"
)

// UserBookHandler 用户及图书HTTP处理器
type UserBookHandler struct {
	facade *userbook.Facade
	logger *zap.Logger
}

// NewUserBookHandler 创建处理器
func NewUserBookHandler(facade *userbook.Facade, logger *zap.Logger) *UserBookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserBookHandler{facade: facade, logger: logger}
}

// Register 注册路由
func (h *UserBookHandler) Register(rg *gin.RouterGroup) {
	users := rg.Group("/user")
	{
		users.POST("/create", h.CreateUserWithBooks)
		users.PUT("/update/:userId", h.UpdateUserWithBooks)
		users.GET("/get/:userId", h.GetUserWithBooks)
		users.DELETE("/delete/:userId", h.DeleteUserWithBooks)
	}
}

// CreateUserWithBooks 创建用户及其图书
// @Summary      创建用户及图书
// @Description  先创建用户再逐本创建图书，任一图书失败则回滚本次创建的全部数据
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        X-Request-ID header string false "请求ID"
// @Param        request body dto.UserBookRequest true "用户及图书信息"
// @Success      200 {object} response.Response{data=dto.UserBookResponse}
// @Failure      400 {object} response.Response "字段校验失败/头衔重复"
// @Router       /api/v1/user/create [post]
func (h *UserBookHandler) CreateUserWithBooks(c *gin.Context) {
	var req dto.UserBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.WithCode(apperrors.ErrCodeBindError, err, "参数格式错误"))
		return
	}

	h.logger.Info("创建用户及图书",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("full_name", req.UserRequest.FullName),
		zap.Int("book_count", len(req.BookRequests)),
	)

	result, err := h.facade.CreateUserWithBooks(c.Request.Context(), req.ToApp())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NewUserBookResponse(result))
}

// UpdateUserWithBooks 更新用户及其图书
// @Summary      更新用户及图书
// @Description  按userId覆盖用户（不存在则创建），图书携带id时覆盖该图书，否则新建
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        userId path int true "用户ID"
// @Param        request body dto.UserBookRequest true "用户及图书信息"
// @Success      200 {object} response.Response{data=dto.UserBookResponse}
// @Failure      400 {object} response.Response "字段校验失败/头衔重复"
// @Router       /api/v1/user/update/{userId} [put]
func (h *UserBookHandler) UpdateUserWithBooks(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req dto.UserBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.WithCode(apperrors.ErrCodeBindError, err, "参数格式错误"))
		return
	}

	h.logger.Info("更新用户及图书",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Uint("user_id", userID),
		zap.Int("book_count", len(req.BookRequests)),
	)

	result, err := h.facade.UpdateUserWithBooks(c.Request.Context(), userID, req.ToApp())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NewUserBookResponse(result))
}

// GetUserWithBooks 查询用户及其图书
// @Summary      查询用户及图书
// @Tags         用户
// @Produce      json
// @Param        userId path int true "用户ID"
// @Success      200 {object} response.Response{data=dto.UserWithBooksResponse}
// @Failure      400 {object} response.Response "用户不存在"
// @Router       /api/v1/user/get/{userId} [get]
func (h *UserBookHandler) GetUserWithBooks(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	result, err := h.facade.GetUserWithBooks(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NewUserWithBooksResponse(result))
}

// DeleteUserWithBooks 删除用户
// @Summary      删除用户
// @Description  默认只删除用户，开启facade.cascade_delete后同时删除其图书
// @Tags         用户
// @Produce      json
// @Param        userId path int true "用户ID"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response "用户不存在"
// @Router       /api/v1/user/delete/{userId} [delete]
func (h *UserBookHandler) DeleteUserWithBooks(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	h.logger.Info("删除用户", zap.String("request_id", middleware.GetRequestID(c)), zap.Uint("user_id", userID))

	if err := h.facade.DeleteUserWithBooks(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// parseUserID 解析路径参数userId，必须是正整数
func parseUserID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "userId必须是正整数")
		return 0, false
	}
	return uint(id), true
}
