package userbook

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/user"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/txctx"
	"github.com/xiebiao/bookshelf/pkg/metrics"
	"github.com/xiebiao/bookshelf/pkg/saga"
	"github.com/xiebiao/bookshelf/pkg/tracing"
)

const tracerName = "bookshelf/userbook"

// 操作名，用于日志、指标和Span
const (
	opCreate = "create"
	opUpdate = "update"
	opGet    = "get"
	opDelete = "delete"
)

// TxManager 事务管理
// MySQL/Postgres实现把整个组合操作放进一个数据库事务，内存实现直接执行fn
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Options Facade配置
type Options struct {
	// Timeout 单次组合写操作的超时，0表示不限
	Timeout time.Duration

	// CascadeDelete 删除用户时一并删除其图书
	CascadeDelete bool
}

// Facade 把用户和其图书作为一个整体进行增删改查
//
// 写操作按步骤编排（先用户后图书），任一步骤失败时按逆序执行补偿删除，
// 再把原始错误返回给调用方。补偿尽力而为：失败只记录日志和指标，不重试。
// 处于数据库事务中时由回滚撤销写入，不执行补偿。
type Facade struct {
	users     user.Service
	books     book.Service
	txManager TxManager
	publisher EventPublisher
	logger    *zap.Logger
	opts      Options
}

// NewFacade 创建Facade，publisher和logger可以为nil
func NewFacade(users user.Service, books book.Service, txManager TxManager, publisher EventPublisher, logger *zap.Logger, opts Options) *Facade {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.InitMetrics()

	return &Facade{
		users:     users,
		books:     books,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
	}
}

// CreateUserWithBooks 创建用户及其图书
// 返回的BookIDs与请求中（非nil）图书的顺序一致
func (f *Facade) CreateUserWithBooks(ctx context.Context, req UserBooksRequest) (result *UserBooksResult, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "CreateUserWithBooks",
		attribute.Int("book_count", len(req.Books)))
	defer f.finish(opCreate, time.Now(), span, &err)

	f.logger.Info("收到创建用户及图书请求",
		zap.String("full_name", req.User.FullName),
		zap.Int("book_count", len(req.Books)),
	)

	err = f.txManager.Transaction(ctx, func(ctx context.Context) error {
		var created *user.User
		ids := make([]uint, 0, len(req.Books))

		s := f.newSaga(ctx, opCreate)
		s.AddStep("创建用户",
			func(ctx context.Context) error {
				u, err := f.users.CreateUser(ctx, toUser(req.User))
				if err != nil {
					return err
				}
				created = u
				f.logger.Info("用户已创建", zap.Uint("user_id", u.ID))
				return nil
			},
			func(ctx context.Context) error {
				return f.users.DeleteUserByID(ctx, created.ID)
			},
		)

		for i, br := range req.Books {
			if br == nil {
				continue
			}
			var bookID uint
			s.AddStep(fmt.Sprintf("创建图书[%d]", i),
				func(ctx context.Context) error {
					b := toBook(br, created.ID)
					b.ID = 0
					createdBook, err := f.books.CreateBook(ctx, b)
					if err != nil {
						return err
					}
					bookID = createdBook.ID
					ids = append(ids, bookID)
					return nil
				},
				func(ctx context.Context) error {
					return f.books.DeleteBookByID(ctx, bookID)
				},
			)
		}

		if err := s.Execute(ctx); err != nil {
			return err
		}

		result = &UserBooksResult{UserID: created.ID, BookIDs: ids}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("用户及图书创建完成", zap.Uint("user_id", result.UserID), zap.Uints("book_ids", result.BookIDs))
	f.publish(ctx, EventUserCreated, result.UserID, result.BookIDs)
	return result, nil
}

// UpdateUserWithBooks 按userID覆盖用户及请求中的图书
// 返回用户当前拥有的全部图书ID（不只是本次涉及的）
func (f *Facade) UpdateUserWithBooks(ctx context.Context, userID uint, req UserBooksRequest) (result *UserBooksResult, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "UpdateUserWithBooks",
		attribute.Int64("user_id", int64(userID)),
		attribute.Int("book_count", len(req.Books)))
	defer f.finish(opUpdate, time.Now(), span, &err)

	f.logger.Info("收到更新用户及图书请求",
		zap.Uint("user_id", userID),
		zap.Int("book_count", len(req.Books)),
	)

	err = f.txManager.Transaction(ctx, func(ctx context.Context) error {
		// 用户此前是否存在决定了补偿时是否删除用户
		existed, err := f.users.UserExists(ctx, userID)
		if err != nil {
			return err
		}

		var updated *user.User

		s := f.newSaga(ctx, opUpdate)
		s.AddStep("更新用户",
			func(ctx context.Context) error {
				u := toUser(req.User)
				u.ID = userID
				saved, err := f.users.UpdateUser(ctx, u)
				if err != nil {
					return err
				}
				updated = saved
				f.logger.Info("用户已更新", zap.Uint("user_id", saved.ID), zap.Bool("existed", existed))
				return nil
			},
			func(ctx context.Context) error {
				if existed {
					return nil
				}
				return f.users.DeleteUserByID(ctx, updated.ID)
			},
		)

		for i, br := range req.Books {
			if br == nil {
				continue
			}
			var bookID uint
			s.AddStep(fmt.Sprintf("更新图书[%d]", i),
				func(ctx context.Context) error {
					saved, err := f.books.UpdateBook(ctx, toBook(br, updated.ID))
					if err != nil {
						return err
					}
					bookID = saved.ID
					return nil
				},
				func(ctx context.Context) error {
					return f.books.DeleteBookByID(ctx, bookID)
				},
			)
		}

		if err := s.Execute(ctx); err != nil {
			return err
		}

		books, err := f.books.GetAllBooksByUserID(ctx, updated.ID)
		if err != nil {
			return err
		}
		result = &UserBooksResult{UserID: updated.ID, BookIDs: bookIDs(books)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("用户及图书更新完成", zap.Uint("user_id", result.UserID), zap.Uints("book_ids", result.BookIDs))
	f.publish(ctx, EventUserUpdated, result.UserID, result.BookIDs)
	return result, nil
}

// GetUserWithBooks 查询用户及其全部图书，用户不存在返回user.ErrUserNotFound
func (f *Facade) GetUserWithBooks(ctx context.Context, userID uint) (result *UserWithBooks, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "GetUserWithBooks",
		attribute.Int64("user_id", int64(userID)))
	defer f.finish(opGet, time.Now(), span, &err)

	u, err := f.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	books, err := f.books.GetAllBooksByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("查询用户及图书", zap.Uint("user_id", userID), zap.Int("book_count", len(books)))
	return toUserWithBooks(u, books), nil
}

// DeleteUserWithBooks 删除用户，用户不存在返回user.ErrUserNotFound
// 默认不删除用户的图书；开启CascadeDelete后先删除图书再删除用户
func (f *Facade) DeleteUserWithBooks(ctx context.Context, userID uint) (err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "DeleteUserWithBooks",
		attribute.Int64("user_id", int64(userID)),
		attribute.Bool("cascade", f.opts.CascadeDelete))
	defer f.finish(opDelete, time.Now(), span, &err)

	f.logger.Info("收到删除用户请求", zap.Uint("user_id", userID), zap.Bool("cascade", f.opts.CascadeDelete))

	err = f.txManager.Transaction(ctx, func(ctx context.Context) error {
		if f.opts.CascadeDelete {
			exists, err := f.users.UserExists(ctx, userID)
			if err != nil {
				return err
			}
			if !exists {
				return user.ErrUserNotFound
			}
			if err := f.books.DeleteAllBooksByUserID(ctx, userID); err != nil {
				return err
			}
		}
		return f.users.DeleteUserByID(ctx, userID)
	})
	if err != nil {
		return err
	}

	f.publish(ctx, EventUserDeleted, userID, nil)
	return nil
}

func (f *Facade) newSaga(ctx context.Context, op string) *saga.Saga {
	return saga.NewSaga(f.opts.Timeout,
		// 数据库事务回滚已撤销全部写入；Postgres事务出错后也无法再执行补偿语句
		saga.SkipCompensation(func(err error) bool {
			if !txctx.Active(ctx) {
				return false
			}
			f.logger.Debug("事务将回滚，跳过补偿", zap.String("operation", op), zap.Error(err))
			return true
		}),
		saga.OnCompensated(func(step string) {
			metrics.IncCompensation()
			f.logger.Warn("补偿步骤已执行", zap.String("operation", op), zap.String("step", step))
		}),
		saga.OnCompensateFailed(func(step string, err error) {
			metrics.IncCompensationFailure()
			f.logger.Error("补偿步骤执行失败，可能残留数据",
				zap.String("operation", op),
				zap.String("step", step),
				zap.String("trace_id", tracing.ExtractTraceID(ctx)),
				zap.Error(err),
			)
		}),
	)
}

// finish 记录指标并结束Span，失败时记录日志
func (f *Facade) finish(op string, start time.Time, span trace.Span, errp *error) {
	err := *errp
	metrics.ObserveOperation(op, err, time.Since(start))
	tracing.EndSpan(span, err)

	if err != nil {
		f.logger.Warn("用户-图书操作失败", zap.String("operation", op), zap.Error(err))
	}
}

// publish 发布事件，失败只记录日志
func (f *Facade) publish(ctx context.Context, eventType string, userID uint, ids []uint) {
	event := Event{
		Type:       eventType,
		UserID:     userID,
		BookIDs:    ids,
		OccurredAt: time.Now(),
	}
	if err := f.publisher.Publish(ctx, eventType, event); err != nil {
		f.logger.Warn("事件发布失败", zap.String("event", eventType), zap.Uint("user_id", userID), zap.Error(err))
	}
}
