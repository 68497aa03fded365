// Package cache хранит чанки сессии в Redis, чтобы несколько процессов
// генерации могли разделять уже построенные чанки.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (может быть пустым)
	DB        int           // Номер базы данных
	PoolSize  int           // Размер пула соединений
	SessionID string        // Пустой — новый UUID
	Timeout   time.Duration // Таймаут одной операции
}

// RedisStore реализует world.ChunkStore. Ключи имеют вид
// tileworld:<session>:chunk:<x>:<y>, так что данные разных сессий не пересекаются.
// Ключи пишутся без срока жизни: чанк живёт до Clear, иначе истёкший ключ
// привёл бы к повторной генерации той же координаты.
type RedisStore struct {
	client *redis.Client
	config RedisConfig
	prefix string
	logger *logging.Logger
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.SessionID == "" {
		config.SessionID = uuid.New().String()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger := logging.GetStorageLogger()
	logger.Info("Redis chunk cache initialized: %s (session %s)", config.Addr, config.SessionID)

	return &RedisStore{
		client: client,
		config: config,
		prefix: "tileworld:" + config.SessionID + ":chunk:",
		logger: logger,
	}, nil
}

// SessionID возвращает идентификатор сессии в ключах
func (r *RedisStore) SessionID() string {
	return r.config.SessionID
}

func (r *RedisStore) key(coord vec.Vec2) string {
	return fmt.Sprintf("%s%d:%d", r.prefix, coord.X, coord.Y)
}

func (r *RedisStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.config.Timeout)
}

// Get загружает чанк; промах не является ошибкой
func (r *RedisStore) Get(coord vec.Vec2) (*world.Chunk, bool, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	data, err := r.client.Get(ctx, r.key(coord)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		r.logger.Error("Redis Get error for chunk %s: %v", coord, err)
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}

	chunk, err := world.DecodeChunk(data)
	if err != nil {
		return nil, false, err
	}
	return chunk, true, nil
}

// Put сохраняет чанк без срока жизни
func (r *RedisStore) Put(c *world.Chunk) error {
	data, err := world.EncodeChunk(c)
	if err != nil {
		return err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	if err := r.client.Set(ctx, r.key(c.Coords), data, 0).Err(); err != nil {
		r.logger.Error("Redis Set error for chunk %s: %v", c.Coords, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Clear удаляет все чанки текущей сессии
func (r *RedisStore) Clear() error {
	ctx, cancel := r.opContext()
	defer cancel()

	keys, err := r.scanKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	// Удаляем пачками, чтобы не собирать огромную команду DEL
	const batch = 500
	for start := 0; start < len(keys); start += batch {
		end := start + batch
		if end > len(keys) {
			end = len(keys)
		}
		if err := r.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis del error: %w", err)
		}
	}

	r.logger.Debug("Redis: удалено %d чанков сессии %s", len(keys), r.config.SessionID)
	return nil
}

// Len возвращает количество чанков сессии
func (r *RedisStore) Len() int {
	ctx, cancel := r.opContext()
	defer cancel()

	keys, err := r.scanKeys(ctx)
	if err != nil {
		r.logger.Error("Redis scan error: %v", err)
		return 0
	}
	return len(keys)
}

func (r *RedisStore) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan error: %w", err)
	}
	return keys, nil
}

// Close закрывает соединение с Redis
func (r *RedisStore) Close() error {
	return r.client.Close()
}
