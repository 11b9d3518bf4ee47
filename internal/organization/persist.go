package organization

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Persister is the durable slot holding the last selected organization id.
type Persister interface {
	Load(ctx context.Context) (uint, bool, error)
	Save(ctx context.Context, id uint) error
	Clear(ctx context.Context) error
}

// PersisterFactory returns the slot of a user.
type PersisterFactory func(userID uint) Persister

// DefaultKeyPrefix namespaces the Redis keys.
const DefaultKeyPrefix = "crm:current_organization:"

// RedisPersister keeps the id under a per-user Redis key.
type RedisPersister struct {
	client *redis.Client
	key    string
}

// NewRedisPersister builds the slot for userID.
func NewRedisPersister(client *redis.Client, prefix string, userID uint) *RedisPersister {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisPersister{client: client, key: prefix + strconv.FormatUint(uint64(userID), 10)}
}

// RedisFactory binds a client and prefix into a PersisterFactory.
func RedisFactory(client *redis.Client, prefix string) PersisterFactory {
	return func(userID uint) Persister {
		return NewRedisPersister(client, prefix, userID)
	}
}

func (p *RedisPersister) Load(ctx context.Context) (uint, bool, error) {
	raw, err := p.client.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load organization id: %w", err)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		// A corrupt value is treated as no selection.
		return 0, false, nil
	}
	return uint(id), true, nil
}

func (p *RedisPersister) Save(ctx context.Context, id uint) error {
	if err := p.client.Set(ctx, p.key, strconv.FormatUint(uint64(id), 10), 0).Err(); err != nil {
		return fmt.Errorf("save organization id: %w", err)
	}
	return nil
}

func (p *RedisPersister) Clear(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("clear organization id: %w", err)
	}
	return nil
}

// MemoryPersister is an in-process slot.
type MemoryPersister struct {
	mu  sync.Mutex
	id  uint
	set bool
}

func (p *MemoryPersister) Load(ctx context.Context) (uint, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id, p.set, nil
}

func (p *MemoryPersister) Save(ctx context.Context, id uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id, p.set = id, true
	return nil
}

func (p *MemoryPersister) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id, p.set = 0, false
	return nil
}

// MemoryFactory hands out one MemoryPersister per user, used when Redis is not configured.
func MemoryFactory() PersisterFactory {
	var mu sync.Mutex
	slots := make(map[uint]*MemoryPersister)
	return func(userID uint) Persister {
		mu.Lock()
		defer mu.Unlock()
		p, ok := slots[userID]
		if !ok {
			p = &MemoryPersister{}
			slots[userID] = p
		}
		return p
	}
}
