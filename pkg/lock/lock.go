package lock

import (
	"context"
	"errors"
	"sync"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

// Release 释放锁。对已经过期的锁调用是安全的
type Release func(ctx context.Context) error

// Locker 按 key 串行化临界区，用于同一个 (tenant, hash) 的并发提交
type Locker interface {
	Lock(ctx context.Context, key string) (Release, error)
}

// Nop 不做任何协调，完全依赖后端的唯一约束
type Nop struct{}

func (Nop) Lock(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

// Local 单进程内的 key 级互斥锁
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{} // 容量为 1 的信号量，可配合 ctx 取消
	refs int
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Lock(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, errors.Join(ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
		return nil
	}, nil
}

// unref 最后一个使用者离开时回收 entry，防止 map 无限增长
func (l *Local) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
