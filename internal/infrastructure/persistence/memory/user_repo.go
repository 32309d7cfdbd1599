package memory

import (
	"context"
	"sync"

	"github.com/xiebiao/bookshelf/internal/domain/user"
)

// UserRepository 内存用户仓储
// 读写由一把RWMutex串行化，ID由单调递增计数器分配，删除后不复用
type UserRepository struct {
	mu     sync.RWMutex
	nextID uint
	users  map[uint]user.User
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository 创建内存用户仓储
func NewUserRepository() *UserRepository {
	return &UserRepository{
		nextID: 1,
		users:  make(map[uint]user.User),
	}
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u.ID = r.nextID
	r.nextID++
	u.Touch()
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.ID == 0 {
		return r.Create(ctx, u)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID >= r.nextID {
		r.nextID = u.ID + 1
	}
	u.Touch()
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id uint) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

// LockByID 内存实现没有行锁，写操作的串行化由user.Service保证
func (r *UserRepository) LockByID(ctx context.Context, id uint) (*user.User, error) {
	return r.FindByID(ctx, id)
}

func (r *UserRepository) FindByTitle(_ context.Context, title string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *user.User
	for _, u := range r.users {
		if u.Title != title {
			continue
		}
		if found == nil || u.ID < found.ID {
			cp := u
			found = &cp
		}
	}
	if found == nil {
		return nil, user.ErrUserNotFound
	}
	return found, nil
}

func (r *UserRepository) Exists(_ context.Context, id uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[id]
	return ok, nil
}

func (r *UserRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id)
	return nil
}

// Count 当前用户数量
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
