package pagecache

import (
	"context"
	"fmt"
	"time"

	"itsm-text-bot/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// срок хранения закешированного списка
const TTL = 60 * time.Second

// маркер закешированного пустого списка: без него по ключу нельзя
// отличить "список пуст" от "еще не запрашивали" и бот ходил бы в ITSM
// на каждое нажатие
const emptyMarker = "__empty__"

// Cache хранит постраничные списки (заявки, команды, подразделения)
// в Redis: список на ключ, элементы - непрозрачный JSON
type Cache struct {
	rdb *redis.Client
}

func Connect(addr, password string, db int) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Crit("Не удалось подключиться к Redis:", err)
	}

	return &Cache{rdb: rdb}
}

// NewWithClient используется в тестах с miniredis
func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// ключи списков

func TicketsKey(userID int64) string {
	return fmt.Sprintf("scs:%d", userID)
}

func ResponsibleKey(userID int64) string {
	return fmt.Sprintf("responsible:%d", userID)
}

func TeamsKey(userID int64, scNumber string) string {
	return fmt.Sprintf("teams:%d:%s", userID, scNumber)
}

func SubdivisionsKey(userID int64) string {
	return fmt.Sprintf("marketing_subdivisions:%d", userID)
}

// Exists сообщает, был ли список уже закеширован. Недоступность
// хранилища трактуется как "кеша нет", не как "список пуст".
func (c *Cache) Exists(ctx context.Context, key string) bool {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		logger.Warning("Ошибка проверки кеша", key, ":", err)
		return false
	}
	return n > 0
}

// Set заменяет список по ключу целиком и взводит TTL. Пустой список
// кешируется маркером, чтобы ключ существовал.
func (c *Cache) Set(ctx context.Context, key string, items []string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)

	if len(items) == 0 {
		pipe.RPush(ctx, key, emptyMarker)
	} else {
		for _, item := range items {
			pipe.RPush(ctx, key, item)
		}
	}

	pipe.Expire(ctx, key, TTL)

	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warning("Ошибка записи кеша", key, ":", err)
		return err
	}
	return nil
}

// Read возвращает страницу списка. При недоступном хранилище - пустую
// страницу: вызывающий обязан проверить Exists и перезапросить данные.
func (c *Cache) Read(ctx context.Context, key string, page, pageSize int) []string {
	start := int64(page * pageSize)
	stop := start + int64(pageSize) - 1

	items, err := c.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		logger.Warning("Ошибка чтения кеша", key, ":", err)
		return nil
	}

	if len(items) == 1 && items[0] == emptyMarker {
		return nil
	}
	return items
}

// Len - полная длина закешированного списка, для расчета кнопок страниц
func (c *Cache) Len(ctx context.Context, key string) int {
	n, err := c.rdb.LLen(ctx, key).Result()
	if err != nil {
		logger.Warning("Ошибка чтения длины кеша", key, ":", err)
		return 0
	}

	if n == 1 {
		first, err := c.rdb.LIndex(ctx, key, 0).Result()
		if err == nil && first == emptyMarker {
			return 0
		}
	}
	return int(n)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func Inject(key string, cache *Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(key, cache)
	}
}
