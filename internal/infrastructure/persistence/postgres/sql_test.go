package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/user"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/txctx"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

func TestInsertUserSQL(t *testing.T) {
	u := &user.User{FullName: "Ada", Title: "reader", Age: 30, CreatedAt: time.Now(), UpdatedAt: time.Now()}

	query, _, err := insertUserSQL(u)
	require.NoError(t, err)
	assert.Contains(t, query, `INSERT INTO "users"`)
	assert.Contains(t, query, `RETURNING "id"`)
	assert.NotContains(t, query, `"id",`)
}

func TestUpsertUserSQL(t *testing.T) {
	u := &user.User{ID: 9, FullName: "Ada", Title: "reader", Age: 30}

	query, _, err := upsertUserSQL(u)
	require.NoError(t, err)
	assert.Contains(t, query, `INSERT INTO "users"`)
	assert.Contains(t, query, `ON CONFLICT (id) DO UPDATE SET`)
	assert.Contains(t, query, `"full_name"="excluded"."full_name"`)
	assert.Contains(t, query, `9`)
}

func TestUpsertBookSQL(t *testing.T) {
	b := &book.Book{ID: 3, UserID: 1, Title: "A", Author: "B", PageCount: 10}

	query, _, err := upsertBookSQL(b)
	require.NoError(t, err)
	assert.Contains(t, query, `INSERT INTO "books"`)
	assert.Contains(t, query, `ON CONFLICT (id) DO UPDATE SET`)
	assert.Contains(t, query, `"page_count"="excluded"."page_count"`)
}

func TestBooksByUserSQL(t *testing.T) {
	query, _, err := booksByUserSQL(5)
	require.NoError(t, err)
	assert.Contains(t, query, `FROM "books" WHERE ("user_id" = 5) ORDER BY "id" ASC`)
}

func TestLockUserSQL(t *testing.T) {
	query, _, err := selectUsers().Where(goqu.C("id").Eq(1)).ForUpdate(exp.Wait).ToSQL()
	require.NoError(t, err)
	assert.Contains(t, query, `FOR UPDATE`)
}

func TestExistsSQL(t *testing.T) {
	query, _, err := existsSQL(usersTable, goqu.C("id").Eq(7))
	require.NoError(t, err)
	assert.Contains(t, query, `SELECT EXISTS (SELECT 1 FROM "users" WHERE ("id" = 7))`)
}

func TestAdvanceSequenceSQL(t *testing.T) {
	assert.Equal(t, "SELECT pg_advisory_xact_lock(hashtext('books_id_seq'))", lockSequenceSQL(booksTable))

	query := advanceSequenceSQL(booksTable, 42)
	assert.Equal(t,
		"SELECT setval('books_id_seq', 42) FROM books_id_seq WHERE 42 > CASE WHEN is_called THEN last_value ELSE last_value - 1 END",
		query)
	// 只和序列当前值比较，不按表内MAX(id)回退
	assert.NotContains(t, query, "MAX(id)")
}

// execRecorder 记录执行过的语句
type execRecorder struct {
	queries []string
	failAt  int
}

func (r *execRecorder) ExecContext(_ context.Context, query string, _ ...interface{}) (sql.Result, error) {
	r.queries = append(r.queries, query)
	if r.failAt > 0 && len(r.queries) == r.failAt {
		return nil, errors.New("boom")
	}
	return driver.RowsAffected(1), nil
}

func TestAdvanceSequence_LocksFirst(t *testing.T) {
	rec := &execRecorder{}
	require.NoError(t, advanceSequence(context.Background(), rec, usersTable, 3))
	assert.Equal(t, []string{lockSequenceSQL(usersTable), advanceSequenceSQL(usersTable, 3)}, rec.queries)

	rec = &execRecorder{failAt: 1}
	assert.Error(t, advanceSequence(context.Background(), rec, usersTable, 3))
	assert.Len(t, rec.queries, 1)
}

func TestMigrate_UniqueTitle(t *testing.T) {
	rec := &execRecorder{}
	require.NoError(t, Migrate(context.Background(), rec, false))
	assert.NotContains(t, rec.queries, uniqueTitleSchema)

	rec = &execRecorder{}
	require.NoError(t, Migrate(context.Background(), rec, true))
	assert.Equal(t, uniqueTitleSchema, rec.queries[len(rec.queries)-1])
	assert.Contains(t, uniqueTitleSchema, "CREATE UNIQUE INDEX IF NOT EXISTS uk_users_title ON users (title)")
}

func TestUserError_TitleDuplicate(t *testing.T) {
	pgErr := &pgconn.PgError{Code: uniqueViolation, ConstraintName: uniqueTitleIndex}
	assert.Equal(t, apperrors.ErrCodeTitleDuplicate, apperrors.CodeOf(userError(pgErr, "x")))

	pqErr := fmt.Errorf("wrapped: %w", &pq.Error{Code: uniqueViolation, Constraint: uniqueTitleIndex})
	assert.Equal(t, apperrors.ErrCodeTitleDuplicate, apperrors.CodeOf(userError(pqErr, "x")))
	assert.True(t, apperrors.IsNotUnique(userError(pqErr, "x")))

	// 主键冲突仍是通用的重复记录
	pkErr := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_pkey"}
	assert.Equal(t, apperrors.ErrCodeDuplicateEntry, apperrors.CodeOf(userError(pkErr, "x")))
	assert.Equal(t, apperrors.ErrCodeDatabaseError, apperrors.CodeOf(userError(errors.New("boom"), "x")))
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, isDuplicateError(&pgconn.PgError{Code: uniqueViolation}))
	assert.True(t, isDuplicateError(fmt.Errorf("wrapped: %w", &pq.Error{Code: uniqueViolation})))
	assert.False(t, isDuplicateError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isDuplicateError(errors.New("boom")))

	assert.Equal(t, apperrors.ErrCodeDuplicateEntry, apperrors.CodeOf(dbError(&pgconn.PgError{Code: uniqueViolation}, "x")))
	assert.Equal(t, apperrors.ErrCodeDatabaseError, apperrors.CodeOf(dbError(errors.New("boom"), "x")))
}

func TestGetExt_FallsBackToDB(t *testing.T) {
	// context中放的不是*sqlx.Tx时回退到连接池
	ctx := txctx.With(context.Background(), "not a tx")
	assert.Nil(t, getExt(ctx, nil))
}
