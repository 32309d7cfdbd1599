package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/xiebiao/bookshelf/internal/domain/user"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/txctx"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

const (
	uniqueViolation  = "23505"
	uniqueTitleIndex = "uk_users_title"
)

// getExt 优先使用context中的事务
func getExt(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if v, ok := txctx.From(ctx); ok {
		if tx, ok := v.(*sqlx.Tx); ok {
			return tx
		}
	}
	return db
}

func sequenceName(table string) string {
	return table + "_id_seq"
}

// lockSequenceSQL 事务级咨询锁，串行化同一张表的序列推进
func lockSequenceSQL(table string) string {
	return fmt.Sprintf("SELECT pg_advisory_xact_lock(hashtext('%s'))", sequenceName(table))
}

// advanceSequenceSQL 按显式ID写入后推进自增序列
// 序列只前进不后退：id不超过已发出的最大值时不改动，删除过的ID不会再次分配
func advanceSequenceSQL(table string, id uint) string {
	seq := sequenceName(table)
	return fmt.Sprintf(
		"SELECT setval('%[1]s', %[2]d) FROM %[1]s WHERE %[2]d > CASE WHEN is_called THEN last_value ELSE last_value - 1 END",
		seq, id)
}

// advanceSequence 加锁后推进序列，避免并发推进时较小的值覆盖较大的值
func advanceSequence(ctx context.Context, ext sqlx.ExecerContext, table string, id uint) error {
	if _, err := ext.ExecContext(ctx, lockSequenceSQL(table)); err != nil {
		return err
	}
	_, err := ext.ExecContext(ctx, advanceSequenceSQL(table, id))
	return err
}

// isDuplicateError 唯一约束冲突，pgx和lib/pq两种驱动的错误类型都要识别
func isDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

// constraintOf 违反的约束（索引）名
func constraintOf(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

// userError 头衔唯一索引冲突映射为头衔重复
func userError(err error, msg string) error {
	if isDuplicateError(err) && constraintOf(err) == uniqueTitleIndex {
		return apperrors.WithCode(apperrors.ErrCodeTitleDuplicate, err, user.ErrTitleDuplicate.Message)
	}
	return dbError(err, msg)
}

func dbError(err error, msg string) error {
	if isDuplicateError(err) {
		return apperrors.WithCode(apperrors.ErrCodeDuplicateEntry, err, "记录已存在")
	}
	return apperrors.WithCode(apperrors.ErrCodeDatabaseError, err, msg)
}
