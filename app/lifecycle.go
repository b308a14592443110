package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Hook 一个需要在退出时释放的组件.
type Hook struct {
	Name   string
	OnStop func(ctx context.Context) error
}

// Lifecycle 按注册的相反顺序释放组件.
type Lifecycle struct {
	logger *slog.Logger
	mu     sync.Mutex
	hooks  []Hook
}

// NewLifecycle 创建生命周期管理器.
func NewLifecycle(logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{logger: logger}
}

// Append 添加一个钩子.
func (l *Lifecycle) Append(hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// Stop 以相反的顺序停止所有组件，单个失败不影响其余组件，返回合并后的错误.
// 重复调用是安全的，已停止的钩子不会再次执行.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	hooks := l.hooks
	l.hooks = nil
	l.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if hook.OnStop == nil {
			continue
		}
		l.logger.Debug("stopping component", "name", hook.Name)
		if err := hook.OnStop(ctx); err != nil {
			l.logger.Error("failed to stop component", "name", hook.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
