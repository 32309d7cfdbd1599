package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/bookshelf/internal/domain/user"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// UserRepository 用户仓储（MySQL）
type UserRepository struct {
	db          *gorm.DB
	uniqueTitle bool
}

var _ user.Repository = (*UserRepository)(nil)

// UserOption 用户仓储配置项
type UserOption func(*UserRepository)

// WithUniqueTitle 头衔建有唯一索引，删除改为物理删除以释放头衔
func WithUniqueTitle(enabled bool) UserOption {
	return func(r *UserRepository) {
		r.uniqueTitle = enabled
	}
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB, opts ...UserOption) *UserRepository {
	r := &UserRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create 插入并回填自增ID
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	u.ID = 0
	model := toUserModel(u)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return userError(err, "创建用户失败")
	}

	u.ID = model.ID
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt
	return nil
}

// Update 按ID覆盖保存，记录不存在（或已软删除）时按该ID插入
// 不用ON DUPLICATE KEY UPDATE：头衔唯一索引冲突时它会改写占用该头衔的另一行
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.ID == 0 {
		return r.Create(ctx, u)
	}

	u.Touch()
	model := toUserModel(u)
	db := getDB(ctx, r.db)

	res := updateUser(db, model)
	if res.Error != nil {
		return userError(res.Error, "更新用户失败")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if err := db.Create(model).Error; err != nil {
		// 行已存在但内容没有变化时UPDATE影响0行，主键冲突说明无需插入
		if isDuplicateError(err) && !isTitleDuplicate(err) {
			return nil
		}
		return userError(err, "更新用户失败")
	}
	return nil
}

// FindByID 根据ID查找用户
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	return r.first(getDB(ctx, r.db), "查询用户失败", "id = ?", id)
}

// LockByID SELECT FOR UPDATE，必须在事务中调用
func (r *UserRepository) LockByID(ctx context.Context, id uint) (*user.User, error) {
	return r.first(forUpdate(getDB(ctx, r.db)), "锁定用户失败", "id = ?", id)
}

// FindByTitle 头衔相同时返回ID最小的用户
func (r *UserRepository) FindByTitle(ctx context.Context, title string) (*user.User, error) {
	return r.first(getDB(ctx, r.db), "查询用户失败", "title = ?", title)
}

func (r *UserRepository) first(db *gorm.DB, msg string, query string, args ...interface{}) (*user.User, error) {
	var model UserModel
	err := db.Where(query, args...).Order("id").First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, msg)
	}
	return toUserEntity(&model), nil
}

// Exists 判断用户是否存在
func (r *UserRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := getDB(ctx, r.db).Model(&UserModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "查询用户失败")
	}
	return count > 0, nil
}

// Delete 软删除（头衔唯一时物理删除），记录不存在时不报错
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	if err := deleteUser(getDB(ctx, r.db), id, r.uniqueTitle).Error; err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "删除用户失败")
	}
	return nil
}

// updateUser 包括已软删除的行，deleted_at一并清空
func updateUser(db *gorm.DB, m *UserModel) *gorm.DB {
	return db.Unscoped().Model(&UserModel{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"full_name":  m.FullName,
		"title":      m.Title,
		"age":        m.Age,
		"created_at": m.CreatedAt,
		"updated_at": m.UpdatedAt,
		"deleted_at": nil,
	})
}

func deleteUser(db *gorm.DB, id uint, hard bool) *gorm.DB {
	if hard {
		db = db.Unscoped()
	}
	return db.Delete(&UserModel{}, id)
}

// userError 头衔唯一索引冲突映射为头衔重复
func userError(err error, msg string) error {
	switch {
	case isTitleDuplicate(err):
		return apperrors.WithCode(apperrors.ErrCodeTitleDuplicate, err, user.ErrTitleDuplicate.Message)
	case isDuplicateError(err):
		return apperrors.WithCode(apperrors.ErrCodeDuplicateEntry, err, "用户已存在")
	default:
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, msg)
	}
}

func toUserModel(u *user.User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		FullName:  u.FullName,
		Title:     u.Title,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserEntity(m *UserModel) *user.User {
	return &user.User{
		ID:        m.ID,
		FullName:  m.FullName,
		Title:     m.Title,
		Age:       m.Age,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
