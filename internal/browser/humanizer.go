package browser

import (
	"context"
	"math/rand/v2"
	"time"
)

// Humanizer は人間らしい操作間隔（ランダムな待機、キー入力間隔、マウス位置）を生成する。
// 無効時はすべての待機が即座に戻り、キー入力間隔は0になる。
type Humanizer struct {
	enabled bool
	rnd     *rand.Rand
}

// NewHumanizer はHumanizerを生成する。ステルスモードでのみenabledをtrueにする想定。
func NewHumanizer(enabled bool) *Humanizer {
	return &Humanizer{
		enabled: enabled,
		rnd:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6f61757468)),
	}
}

// Enabled は人間らしい操作が有効かどうかを返す。
func (h *Humanizer) Enabled() bool {
	return h != nil && h.enabled
}

// Pause は[minDelay, maxDelay)の範囲でランダムに待機する。
func (h *Humanizer) Pause(ctx context.Context, minDelay, maxDelay time.Duration) error {
	if !h.Enabled() {
		return ctx.Err()
	}
	return Sleep(ctx, h.between(minDelay, maxDelay))
}

// KeyDelay は1文字入力ごとの待機時間を返す（50〜150ms）。
func (h *Humanizer) KeyDelay() time.Duration {
	if !h.Enabled() {
		return 0
	}
	return h.between(50*time.Millisecond, 150*time.Millisecond)
}

// MousePoint はマウス移動先の座標を返す（100〜500px）。
func (h *Humanizer) MousePoint() (float64, float64) {
	return float64(100 + h.rnd.IntN(400)), float64(100 + h.rnd.IntN(400))
}

func (h *Humanizer) between(minDelay, maxDelay time.Duration) time.Duration {
	if maxDelay <= minDelay {
		return minDelay
	}
	return minDelay + time.Duration(h.rnd.Int64N(int64(maxDelay-minDelay)))
}

// Sleep はdの間待機する。ctxが先に終了した場合はctx.Err()を返す。
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
