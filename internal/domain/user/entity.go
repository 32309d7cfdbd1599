package user

import (
	"strings"
	"time"
)

// User 用户实体（聚合根）
// 领域实体不带GORM/db tag，持久化映射由各Repository实现负责
type User struct {
	ID        uint
	FullName  string
	Title     string
	Age       int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser 创建新用户（工厂方法）
func NewUser(fullName, title string, age int) *User {
	now := time.Now()
	return &User{
		FullName:  fullName,
		Title:     title,
		Age:       age,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate 校验必填字段
// 姓名、头衔不能为空白，年龄必须大于0
func (u *User) Validate() error {
	if u == nil || isBlank(u.FullName) || isBlank(u.Title) || u.Age <= 0 {
		return ErrInvalidUser
	}
	return nil
}

// UpdateProfile 覆盖可变字段（领域行为），ID和CreatedAt保持不变
func (u *User) UpdateProfile(fullName, title string, age int) {
	u.FullName = fullName
	u.Title = title
	u.Age = age
	u.UpdatedAt = time.Now()
}

// Touch 补齐缺失的创建时间并刷新更新时间
func (u *User) Touch() {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
