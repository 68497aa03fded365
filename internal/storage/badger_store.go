// Package storage хранит сгенерированные чанки сессии в BadgerDB.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

const chunkKeyPrefix = "chunk:"

// ErrClosed возвращается после Close
var ErrClosed = errors.New("хранилище закрыто")

// BadgerOptions — настройки хранилища
type BadgerOptions struct {
	// Пустой Dir означает хранение в памяти
	Dir string
}

// BadgerStore реализует world.ChunkStore поверх BadgerDB.
// Значения — чанки, закодированные world.EncodeChunk.
type BadgerStore struct {
	db      *badger.DB
	mutex   sync.RWMutex
	isReady bool
	logger  *logging.Logger
}

// NewBadgerStore открывает BadgerDB
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.Dir == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logger := logging.GetStorageLogger()
	if opts.Dir == "" {
		logger.Info("BadgerDB открыта в памяти")
	} else {
		logger.Info("BadgerDB открыта в каталоге %s", opts.Dir)
	}

	return &BadgerStore{db: db, isReady: true, logger: logger}, nil
}

func chunkKey(coord vec.Vec2) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", chunkKeyPrefix, coord.X, coord.Y))
}

// Close закрывает хранилище
func (bs *BadgerStore) Close() error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if !bs.isReady {
		return nil
	}
	bs.isReady = false
	return bs.db.Close()
}

// Get загружает чанк. Отсутствие ключа не является ошибкой.
func (bs *BadgerStore) Get(coord vec.Vec2) (*world.Chunk, bool, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, false, ErrClosed
	}

	var data []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(coord))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	chunk, err := world.DecodeChunk(data)
	if err != nil {
		return nil, false, err
	}
	return chunk, true, nil
}

// Put сохраняет чанк
func (bs *BadgerStore) Put(c *world.Chunk) error {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrClosed
	}

	data, err := world.EncodeChunk(c)
	if err != nil {
		return err
	}

	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(c.Coords), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Clear удаляет все чанки
func (bs *BadgerStore) Clear() error {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrClosed
	}
	if err := bs.db.DropPrefix([]byte(chunkKeyPrefix)); err != nil {
		return fmt.Errorf("ошибка очистки BadgerDB: %w", err)
	}
	return nil
}

// Len возвращает число сохранённых чанков
func (bs *BadgerStore) Len() int {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return 0
	}

	count := 0
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(chunkKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		bs.logger.Error("Ошибка подсчёта чанков в BadgerDB: %v", err)
	}
	return count
}
