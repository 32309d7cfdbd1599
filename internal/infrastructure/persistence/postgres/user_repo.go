package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/xiebiao/bookshelf/internal/domain/user"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

const usersTable = "users"

var userColumns = []interface{}{"id", "full_name", "title", "age", "created_at", "updated_at"}

type userRow struct {
	ID        uint      `db:"id"`
	FullName  string    `db:"full_name"`
	Title     string    `db:"title"`
	Age       int       `db:"age"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UserRepository 用户仓储（Postgres）
type UserRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository 创建用户仓储
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	u.ID = 0
	u.Touch()
	query, _, err := insertUserSQL(u)
	if err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}

	var id uint
	if err := sqlx.GetContext(ctx, getExt(ctx, r.db), &id, query); err != nil {
		return userError(err, "创建用户失败")
	}
	u.ID = id
	return nil
}

// Update 按ID覆盖保存，记录不存在时按该ID插入
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.ID == 0 {
		return r.Create(ctx, u)
	}

	u.Touch()
	query, _, err := upsertUserSQL(u)
	if err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}

	ext := getExt(ctx, r.db)
	if _, err := ext.ExecContext(ctx, query); err != nil {
		return userError(err, "更新用户失败")
	}
	if err := advanceSequence(ctx, ext, usersTable, u.ID); err != nil {
		return dbError(err, "同步用户ID序列失败")
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	return r.get(ctx, selectUsers().Where(goqu.C("id").Eq(id)), "查询用户失败")
}

// LockByID SELECT ... FOR UPDATE，必须在事务中调用
func (r *UserRepository) LockByID(ctx context.Context, id uint) (*user.User, error) {
	return r.get(ctx, selectUsers().Where(goqu.C("id").Eq(id)).ForUpdate(exp.Wait), "锁定用户失败")
}

// FindByTitle 头衔相同时返回ID最小的用户
func (r *UserRepository) FindByTitle(ctx context.Context, title string) (*user.User, error) {
	return r.get(ctx, selectUsers().Where(goqu.C("title").Eq(title)).Order(goqu.C("id").Asc()).Limit(1), "查询用户失败")
}

func (r *UserRepository) get(ctx context.Context, ds *goqu.SelectDataset, msg string) (*user.User, error) {
	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}

	var row userRow
	if err := sqlx.GetContext(ctx, getExt(ctx, r.db), &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, dbError(err, msg)
	}
	return row.toEntity(), nil
}

func (r *UserRepository) Exists(ctx context.Context, id uint) (bool, error) {
	query, _, err := existsSQL(usersTable, goqu.C("id").Eq(id))
	if err != nil {
		return false, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}

	var exists bool
	if err := sqlx.GetContext(ctx, getExt(ctx, r.db), &exists, query); err != nil {
		return false, dbError(err, "查询用户失败")
	}
	return exists, nil
}

// Delete 记录不存在时不报错
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	query, _, err := goqu.Dialect(dialect).Delete(usersTable).Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}
	if _, err := getExt(ctx, r.db).ExecContext(ctx, query); err != nil {
		return dbError(err, "删除用户失败")
	}
	return nil
}

func selectUsers() *goqu.SelectDataset {
	return goqu.Dialect(dialect).From(usersTable).Select(userColumns...)
}

func userRecord(u *user.User) goqu.Record {
	return goqu.Record{
		"full_name":  u.FullName,
		"title":      u.Title,
		"age":        u.Age,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

func insertUserSQL(u *user.User) (string, []interface{}, error) {
	return goqu.Dialect(dialect).Insert(usersTable).Rows(userRecord(u)).Returning("id").ToSQL()
}

// upsertUserSQL INSERT ... ON CONFLICT (id) DO UPDATE，created_at保留传入值
func upsertUserSQL(u *user.User) (string, []interface{}, error) {
	rec := userRecord(u)
	rec["id"] = u.ID
	return goqu.Dialect(dialect).Insert(usersTable).Rows(rec).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"full_name":  goqu.I("excluded.full_name"),
			"title":      goqu.I("excluded.title"),
			"age":        goqu.I("excluded.age"),
			"created_at": goqu.I("excluded.created_at"),
			"updated_at": goqu.I("excluded.updated_at"),
		})).ToSQL()
}

func existsSQL(table string, where exp.Expression) (string, []interface{}, error) {
	sub := goqu.Dialect(dialect).From(table).Select(goqu.L("1")).Where(where)
	return goqu.Dialect(dialect).Select(goqu.L("EXISTS ?", sub)).ToSQL()
}

func (row *userRow) toEntity() *user.User {
	return &user.User{
		ID:        row.ID,
		FullName:  row.FullName,
		Title:     row.Title,
		Age:       row.Age,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
