package selection

import (
	"context"
	"sync"
)

// fifoLock admits holders strictly in the order they called acquire. Each
// holder waits on its predecessor's channel and closes its own on release.
// It is not reentrant.
type fifoLock struct {
	mu   sync.Mutex
	tail chan struct{}
}

func (l *fifoLock) acquire(ctx context.Context) (func(), error) {
	l.mu.Lock()
	prev := l.tail
	mine := make(chan struct{})
	l.tail = mine
	l.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// hand our turn on as soon as it comes so later holders still run
			go func() {
				<-prev
				close(mine)
			}()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(func() { close(mine) }) }, nil
}
