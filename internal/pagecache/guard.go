package pagecache

import "sync"

// Guard не дает двум параллельным нажатиям запустить две загрузки
// одного и того же списка: не более одной загрузки на ключ.
// В отличие от кооперативного флага это настоящая блокировка -
// обработчики событий работают в разных горутинах.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{inflight: make(map[string]struct{})}
}

// Begin помечает загрузку ключа начатой. Возвращает false, если
// загрузка уже идет - тогда нажатие просто подтверждается и игнорируется.
func (g *Guard) Begin(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inflight[key]; busy {
		return false
	}
	g.inflight[key] = struct{}{}
	return true
}

// End снимает пометку, вызывается через defer после заполнения кеша
func (g *Guard) End(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key)
}
