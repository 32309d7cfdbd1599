package book

import (
	"strings"
	"time"
)

// Book 图书实体
// UserID指向所属用户（一对多）
type Book struct {
	ID        uint
	UserID    uint
	Title     string
	Author    string
	PageCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBook 创建图书（工厂方法）
func NewBook(userID uint, title, author string, pageCount int) *Book {
	now := time.Now()
	return &Book{
		UserID:    userID,
		Title:     title,
		Author:    author,
		PageCount: pageCount,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate 校验必填字段
func (b *Book) Validate() error {
	if b == nil || b.UserID == 0 || isBlank(b.Title) || isBlank(b.Author) || b.PageCount <= 0 {
		return ErrInvalidBook
	}
	return nil
}

// Touch 补齐缺失的创建时间并刷新更新时间
func (b *Book) Touch() {
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
