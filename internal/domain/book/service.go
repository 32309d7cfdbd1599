package book

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Service 图书领域服务
type Service interface {
	CreateBook(ctx context.Context, book *Book) (*Book, error)
	UpdateBook(ctx context.Context, book *Book) (*Book, error)
	GetBookByID(ctx context.Context, id uint) (*Book, error)
	GetAllBooksByUserID(ctx context.Context, userID uint) ([]*Book, error)

	// DeleteBookByID 不存在时返回ErrBookNotFound
	DeleteBookByID(ctx context.Context, id uint) error
	DeleteAllBooksByUserID(ctx context.Context, userID uint) error
}

// OwnerChecker 校验所属用户是否存在（user.Repository满足此接口）
type OwnerChecker interface {
	Exists(ctx context.Context, id uint) (bool, error)
}

// Option 服务配置项
type Option func(*service)

// WithOwnerCheck 写入前校验所属用户存在
func WithOwnerCheck(owners OwnerChecker) Option {
	return func(s *service) {
		s.owners = owners
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
	repo   Repository
	owners OwnerChecker
	logger *zap.Logger
}

// NewService 创建图书服务
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

func (s *service) CreateBook(ctx context.Context, book *Book) (*Book, error) {
	if err := s.check(ctx, book); err != nil {
		return nil, err
	}

	created := NewBook(book.UserID, book.Title, book.Author, book.PageCount)
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, err
	}

	s.logger.Info("图书已创建",
		zap.Uint("book_id", created.ID),
		zap.Uint("user_id", created.UserID),
	)
	return created, nil
}

// UpdateBook 按ID覆盖图书，已存在时保留原创建时间
func (s *service) UpdateBook(ctx context.Context, book *Book) (*Book, error) {
	if err := s.check(ctx, book); err != nil {
		return nil, err
	}
	if book.ID == 0 {
		return s.CreateBook(ctx, book)
	}

	target := NewBook(book.UserID, book.Title, book.Author, book.PageCount)
	target.ID = book.ID

	existing, err := s.repo.FindByID(ctx, book.ID)
	switch {
	case err == nil:
		target.CreatedAt = existing.CreatedAt
	case !errors.Is(err, ErrBookNotFound):
		return nil, err
	}

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, err
	}

	s.logger.Info("图书已更新",
		zap.Uint("book_id", target.ID),
		zap.Uint("user_id", target.UserID),
	)
	return target, nil
}

func (s *service) GetBookByID(ctx context.Context, id uint) (*Book, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetAllBooksByUserID(ctx context.Context, userID uint) ([]*Book, error) {
	return s.repo.FindAllByUserID(ctx, userID)
}

func (s *service) DeleteBookByID(ctx context.Context, id uint) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrBookNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("图书已删除", zap.Uint("book_id", id))
	return nil
}

func (s *service) DeleteAllBooksByUserID(ctx context.Context, userID uint) error {
	if err := s.repo.DeleteAllByUserID(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("用户图书已全部删除", zap.Uint("user_id", userID))
	return nil
}

// check 字段校验，开启所属用户校验时再确认用户存在
func (s *service) check(ctx context.Context, book *Book) error {
	if err := book.Validate(); err != nil {
		return err
	}
	if s.owners == nil {
		return nil
	}

	exists, err := s.owners.Exists(ctx, book.UserID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrOwnerNotFound
	}
	return nil
}
