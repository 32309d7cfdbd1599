package user

import (
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// 用户领域错误定义
var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = apperrors.New(apperrors.ErrCodeUserNotFound, "用户不存在")

	// ErrInvalidUser 用户字段校验失败
	ErrInvalidUser = apperrors.New(apperrors.ErrCodeInvalidUser, "用户字段不能为空：姓名、头衔不能为空白，年龄必须大于0")

	// ErrTitleDuplicate 头衔已被其他用户占用
	ErrTitleDuplicate = apperrors.New(apperrors.ErrCodeTitleDuplicate, "用户头衔已存在")
)
