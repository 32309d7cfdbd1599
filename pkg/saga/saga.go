// Package saga 按顺序执行一组带补偿操作的步骤
//
// 某一步失败时，已完成的步骤按逆序执行补偿；补偿尽力而为，
// 单个补偿失败不影响其余补偿，也不会改变返回给调用方的原始错误。
package saga

import (
	"context"
	"fmt"
	"time"
)

// Step Saga中的一个步骤
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Option Saga配置项
type Option func(*Saga)

// OnCompensated 每个补偿成功执行后回调
func OnCompensated(fn func(step string)) Option {
	return func(s *Saga) {
		s.onCompensated = fn
	}
}

// OnCompensateFailed 补偿失败时回调（记录日志、计数），不会重试
func OnCompensateFailed(fn func(step string, err error)) Option {
	return func(s *Saga) {
		s.onCompensateFailed = fn
	}
}

// SkipCompensation 步骤失败且skip返回true时不执行补偿
// 典型场景：步骤运行在数据库事务中，回滚已经撤销了全部写入
func SkipCompensation(skip func(err error) bool) Option {
	return func(s *Saga) {
		s.skipCompensation = skip
	}
}

// Saga 一次编排
type Saga struct {
	steps    []Step
	executed []Step
	timeout  time.Duration

	skipCompensation func(err error) bool

	onCompensated      func(step string)
	onCompensateFailed func(step string, err error)
}

// NewSaga 创建Saga，timeout<=0表示不限时
//
//	s := saga.NewSaga(5*time.Second)
//	s.AddStep("创建用户", createUser, deleteUser)
//	s.AddStep("创建图书[0]", createBook, deleteBook)
//	err := s.Execute(ctx)
func NewSaga(timeout time.Duration, opts ...Option) *Saga {
	s := &Saga{
		steps:   make([]Step, 0),
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddStep 追加步骤，按添加顺序执行、逆序补偿。action和compensate都可以为nil
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 执行全部步骤
// 步骤失败时先补偿再原样返回该步骤的错误；超时返回包装后的ctx错误。
// 补偿使用context.WithoutCancel(ctx)：不受超时影响，但保留ctx中的值（如事务句柄）
func (s *Saga) Execute(ctx context.Context) error {
	compensateCtx := context.WithoutCancel(ctx)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("saga超时[步骤:%s]: %w", step.Name, err)
			s.fail(compensateCtx, err)
			return err
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				s.fail(compensateCtx, err)
				return err
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

// Executed 已成功执行（且未被补偿）的步骤名
func (s *Saga) Executed() []string {
	names := make([]string, 0, len(s.executed))
	for _, step := range s.executed {
		names = append(names, step.Name)
	}
	return names
}

func (s *Saga) fail(ctx context.Context, err error) {
	if s.skipCompensation != nil && s.skipCompensation(err) {
		s.executed = nil
		return
	}
	s.compensate(ctx)
}

func (s *Saga) compensate(ctx context.Context) {
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}

		if err := step.Compensate(ctx); err != nil {
			if s.onCompensateFailed != nil {
				s.onCompensateFailed(step.Name, err)
			}
			continue
		}
		if s.onCompensated != nil {
			s.onCompensated(step.Name)
		}
	}

	s.executed = nil
}
