package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/hitoshi/oauthrelay/internal/model"
	"golang.org/x/sync/semaphore"
)

// Lock は共有ブラウザコンテキストの排他ロック。
// 重み1のセマフォで、取得待ちはcontext.Contextのキャンセルに従う。
type Lock struct {
	sem *semaphore.Weighted
}

// NewLock は新しいLockを生成する。
func NewLock() *Lock {
	return &Lock{sem: semaphore.NewWeighted(1)}
}

// Acquire はロックを取得し、解放関数を返す。
// 解放関数は複数回呼んでも1回だけ解放する。
// ctxが先に終了した場合はmodel.ErrBrowserBusyをラップしたエラーを返す。
func (l *Lock) Acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrBrowserBusy, err)
	}
	var once sync.Once
	return func() {
		once.Do(func() { l.sem.Release(1) })
	}, nil
}
