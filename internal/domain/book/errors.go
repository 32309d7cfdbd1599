package book

import (
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "图书不存在")

	// ErrInvalidBook 图书字段校验失败
	ErrInvalidBook = apperrors.New(apperrors.ErrCodeInvalidBook, "图书字段不能为空：所属用户、书名、作者不能为空，页数必须大于0")

	// ErrOwnerNotFound 图书所属用户不存在
	ErrOwnerNotFound = apperrors.New(apperrors.ErrCodeUserNotFound, "图书所属用户不存在")
)
