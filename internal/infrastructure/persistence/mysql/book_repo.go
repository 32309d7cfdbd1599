package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// BookRepository 图书仓储（MySQL）
type BookRepository struct {
	db *gorm.DB
}

var _ book.Repository = (*BookRepository)(nil)

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// Create 插入并回填自增ID
func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}

	b.ID = 0
	model := toBookModel(b)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.WithCode(apperrors.ErrCodeDuplicateEntry, err, "图书已存在")
		}
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "创建图书失败")
	}

	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

// Update 按ID覆盖保存，记录不存在时按该ID插入
func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ID == 0 {
		return r.Create(ctx, b)
	}

	b.Touch()
	if err := upsert(getDB(ctx, r.db)).Create(toBookModel(b)).Error; err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "更新图书失败")
	}
	return nil
}

// FindByID 根据ID查找图书
func (r *BookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	err := getDB(ctx, r.db).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询图书失败")
	}
	return toBookEntity(&model), nil
}

// FindAllByUserID 按ID升序返回用户的全部图书
func (r *BookRepository) FindAllByUserID(ctx context.Context, userID uint) ([]*book.Book, error) {
	var models []BookModel
	if err := getDB(ctx, r.db).Where("user_id = ?", userID).Order("id").Find(&models).Error; err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询用户图书失败")
	}

	books := make([]*book.Book, 0, len(models))
	for i := range models {
		books = append(books, toBookEntity(&models[i]))
	}
	return books, nil
}

// Exists 判断图书是否存在
func (r *BookRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := getDB(ctx, r.db).Model(&BookModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询图书失败")
	}
	return count > 0, nil
}

// Delete 软删除，记录不存在时不报错
func (r *BookRepository) Delete(ctx context.Context, id uint) error {
	if err := getDB(ctx, r.db).Delete(&BookModel{}, id).Error; err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "删除图书失败")
	}
	return nil
}

// DeleteAllByUserID 删除用户的全部图书
func (r *BookRepository) DeleteAllByUserID(ctx context.Context, userID uint) error {
	if err := getDB(ctx, r.db).Where("user_id = ?", userID).Delete(&BookModel{}).Error; err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "删除用户图书失败")
	}
	return nil
}

func toBookModel(b *book.Book) *BookModel {
	return &BookModel{
		ID:        b.ID,
		UserID:    b.UserID,
		Title:     b.Title,
		Author:    b.Author,
		PageCount: b.PageCount,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toBookEntity(m *BookModel) *book.Book {
	return &book.Book{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Author:    m.Author,
		PageCount: m.PageCount,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
