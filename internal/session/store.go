package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"storyweaver/internal/models"
)

// Store хранит состояние браузерных сессий.
// Get возвращает копию; изменения видны другим только после Save.
type Store interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// lockStripes - число мьютексов Locker. Разные сессии изредка делят
// один мьютекс, память от числа сессий не зависит.
const lockStripes = 256

// Locker сериализует read-modify-write одной сессии между параллельными запросами.
// Вложенные Lock для разных id запрещены: они могут попасть в один мьютекс.
type Locker struct {
	stripes [lockStripes]sync.Mutex
}

func NewLocker() *Locker { return &Locker{} }

// Lock блокирует сессию и возвращает функцию разблокировки.
func (l *Locker) Lock(id string) func() {
	mu := &l.stripes[stripeIndex(id)]
	mu.Lock()
	return mu.Unlock
}

func stripeIndex(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32() % lockStripes
}
