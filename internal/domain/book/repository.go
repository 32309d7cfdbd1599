package book

import "context"

// Repository 图书仓储接口
type Repository interface {
	// Create 分配新ID并保存，字段非法时返回ErrInvalidBook且不修改存储
	Create(ctx context.Context, book *Book) error

	// Update 按ID覆盖保存（upsert），ID为0时等价于Create
	Update(ctx context.Context, book *Book) error

	// FindByID 不存在时返回ErrBookNotFound
	FindByID(ctx context.Context, id uint) (*Book, error)

	// FindAllByUserID 按ID升序返回用户的全部图书，没有时返回空切片
	FindAllByUserID(ctx context.Context, userID uint) ([]*Book, error)

	// Exists 判断图书是否存在
	Exists(ctx context.Context, id uint) (bool, error)

	// Delete 幂等删除
	Delete(ctx context.Context, id uint) error

	// DeleteAllByUserID 删除用户的全部图书
	DeleteAllByUserID(ctx context.Context, userID uint) error
}
