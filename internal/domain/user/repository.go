package user

import "context"

// Repository 用户仓储接口
// 实现：persistence/memory、persistence/mysql、persistence/postgres，
// 以及persistence/redis的缓存装饰器
type Repository interface {
	// Create 分配新ID并保存，字段非法时返回ErrInvalidUser且不修改存储
	Create(ctx context.Context, user *User) error

	// Update 按ID覆盖保存（upsert），ID为0时等价于Create
	Update(ctx context.Context, user *User) error

	// FindByID 不存在时返回ErrUserNotFound
	FindByID(ctx context.Context, id uint) (*User, error)

	// LockByID 读取并加写锁（SQL实现为SELECT ... FOR UPDATE），需在事务中调用
	LockByID(ctx context.Context, id uint) (*User, error)

	// FindByTitle 不存在时返回ErrUserNotFound
	FindByTitle(ctx context.Context, title string) (*User, error)

	// Exists 判断用户是否存在
	Exists(ctx context.Context, id uint) (bool, error)

	// Delete 幂等删除，记录不存在时不报错
	Delete(ctx context.Context, id uint) error
}
