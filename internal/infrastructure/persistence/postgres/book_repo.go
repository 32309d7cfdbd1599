package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

const booksTable = "books"

var bookColumns = []interface{}{"id", "user_id", "title", "author", "page_count", "created_at", "updated_at"}

type bookRow struct {
	ID        uint      `db:"id"`
	UserID    uint      `db:"user_id"`
	Title     string    `db:"title"`
	Author    string    `db:"author"`
	PageCount int       `db:"page_count"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BookRepository 图书仓储（Postgres）
type BookRepository struct {
	db *sqlx.DB
}

var _ book.Repository = (*BookRepository)(nil)

// NewBookRepository 创建图书仓储
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}

	b.ID = 0
	b.Touch()
	query, _, err := insertBookSQL(b)
	if err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}

	var id uint
	if err := sqlx.GetContext(ctx, getExt(ctx, r.db), &id, query); err != nil {
		return dbError(err, "创建图书失败")
	}
	b.ID = id
	return nil
}

func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ID == 0 {
		return r.Create(ctx, b)
	}

	b.Touch()
	query, _, err := upsertBookSQL(b)
	if err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}

	ext := getExt(ctx, r.db)
	if _, err := ext.ExecContext(ctx, query); err != nil {
		return dbError(err, "更新图书失败")
	}
	if err := advanceSequence(ctx, ext, booksTable, b.ID); err != nil {
		return dbError(err, "同步图书ID序列失败")
	}
	return nil
}

func (r *BookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	query, _, err := selectBooks().Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}

	var row bookRow
	if err := sqlx.GetContext(ctx, getExt(ctx, r.db), &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, book.ErrBookNotFound
		}
		return nil, dbError(err, "查询图书失败")
	}
	return row.toEntity(), nil
}

func (r *BookRepository) FindAllByUserID(ctx context.Context, userID uint) ([]*book.Book, error) {
	query, _, err := booksByUserSQL(userID)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}

	var rows []bookRow
	if err := sqlx.SelectContext(ctx, getExt(ctx, r.db), &rows, query); err != nil {
		return nil, dbError(err, "查询用户图书失败")
	}

	books := make([]*book.Book, 0, len(rows))
	for i := range rows {
		books = append(books, rows[i].toEntity())
	}
	return books, nil
}

func (r *BookRepository) Exists(ctx context.Context, id uint) (bool, error) {
	query, _, err := existsSQL(booksTable, goqu.C("id").Eq(id))
	if err != nil {
		return false, apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}

	var exists bool
	if err := sqlx.GetContext(ctx, getExt(ctx, r.db), &exists, query); err != nil {
		return false, dbError(err, "查询图书失败")
	}
	return exists, nil
}

func (r *BookRepository) Delete(ctx context.Context, id uint) error {
	return r.deleteWhere(ctx, goqu.C("id").Eq(id), "删除图书失败")
}

func (r *BookRepository) DeleteAllByUserID(ctx context.Context, userID uint) error {
	return r.deleteWhere(ctx, goqu.C("user_id").Eq(userID), "删除用户图书失败")
}

func (r *BookRepository) deleteWhere(ctx context.Context, where goqu.Expression, msg string) error {
	query, _, err := goqu.Dialect(dialect).Delete(booksTable).Where(where).ToSQL()
	if err != nil {
		return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, "构建SQL失败")
	}
	if _, err := getExt(ctx, r.db).ExecContext(ctx, query); err != nil {
		return dbError(err, msg)
	}
	return nil
}

func selectBooks() *goqu.SelectDataset {
	return goqu.Dialect(dialect).From(booksTable).Select(bookColumns...)
}

func booksByUserSQL(userID uint) (string, []interface{}, error) {
	return selectBooks().Where(goqu.C("user_id").Eq(userID)).Order(goqu.C("id").Asc()).ToSQL()
}

func bookRecord(b *book.Book) goqu.Record {
	return goqu.Record{
		"user_id":    b.UserID,
		"title":      b.Title,
		"author":     b.Author,
		"page_count": b.PageCount,
		"created_at": b.CreatedAt,
		"updated_at": b.UpdatedAt,
	}
}

func insertBookSQL(b *book.Book) (string, []interface{}, error) {
	return goqu.Dialect(dialect).Insert(booksTable).Rows(bookRecord(b)).Returning("id").ToSQL()
}

func upsertBookSQL(b *book.Book) (string, []interface{}, error) {
	rec := bookRecord(b)
	rec["id"] = b.ID
	return goqu.Dialect(dialect).Insert(booksTable).Rows(rec).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"user_id":    goqu.I("excluded.user_id"),
			"title":      goqu.I("excluded.title"),
			"author":     goqu.I("excluded.author"),
			"page_count": goqu.I("excluded.page_count"),
			"created_at": goqu.I("excluded.created_at"),
			"updated_at": goqu.I("excluded.updated_at"),
		})).ToSQL()
}

func (row *bookRow) toEntity() *book.Book {
	return &book.Book{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		Author:    row.Author,
		PageCount: row.PageCount,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
