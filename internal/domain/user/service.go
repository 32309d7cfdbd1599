package user

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Service 用户领域服务
type Service interface {
	// CreateUser 校验并创建用户
	CreateUser(ctx context.Context, user *User) (*User, error)

	// UpdateUser 校验并按ID覆盖用户（不存在则按该ID创建，ID为0则新建）
	UpdateUser(ctx context.Context, user *User) (*User, error)

	// GetUserByID 查询用户
	GetUserByID(ctx context.Context, id uint) (*User, error)

	// DeleteUserByID 删除用户，不存在时返回ErrUserNotFound
	DeleteUserByID(ctx context.Context, id uint) error

	// UserExists 判断用户是否存在
	UserExists(ctx context.Context, id uint) (bool, error)
}

// Option 服务配置项
type Option func(*service)

// WithUniqueTitle 开启头衔唯一性校验
func WithUniqueTitle(enabled bool) Option {
	return func(s *service) {
		s.uniqueTitle = enabled
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	repo        Repository
	logger      *zap.Logger
	uniqueTitle bool

	// 写操作的"读-校验-写"序列串行执行，防止并发更新绕过头衔唯一性校验
	writeMu sync.Mutex
}

// NewService 创建用户服务
func NewService(repo Repository, opts ...Option) Service {
	s := &service{
		repo:   repo,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateUser(ctx context.Context, user *User) (*User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureTitleAvailable(ctx, user.Title, 0); err != nil {
		return nil, err
	}

	created := NewUser(user.FullName, user.Title, user.Age)
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, err
	}

	s.logger.Info("用户已创建", zap.Uint("user_id", created.ID), zap.String("title", created.Title))
	return created, nil
}

// UpdateUser 更新用户
// 流程：
// 1. 字段校验
// 2. 头衔唯一性校验（排除自身）
// 3. LockByID加锁读取，存在则覆盖可变字段，不存在则按该ID插入
func (s *service) UpdateUser(ctx context.Context, user *User) (*User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return s.CreateUser(ctx, user)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureTitleAvailable(ctx, user.Title, user.ID); err != nil {
		return nil, err
	}

	target, err := s.repo.LockByID(ctx, user.ID)
	switch {
	case err == nil:
		target.UpdateProfile(user.FullName, user.Title, user.Age)
	case errors.Is(err, ErrUserNotFound):
		target = NewUser(user.FullName, user.Title, user.Age)
		target.ID = user.ID
	default:
		return nil, err
	}

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, err
	}

	s.logger.Info("用户已更新", zap.Uint("user_id", target.ID))
	return target, nil
}

func (s *service) GetUserByID(ctx context.Context, id uint) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) DeleteUserByID(ctx context.Context, id uint) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("用户已删除", zap.Uint("user_id", id))
	return nil
}

func (s *service) UserExists(ctx context.Context, id uint) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// ensureTitleAvailable 头衔被selfID以外的用户占用时返回ErrTitleDuplicate
func (s *service) ensureTitleAvailable(ctx context.Context, title string, selfID uint) error {
	if !s.uniqueTitle {
		return nil
	}

	existing, err := s.repo.FindByTitle(ctx, title)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return ErrTitleDuplicate
	}
	return nil
}
