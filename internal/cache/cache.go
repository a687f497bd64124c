package cache

import (
	"context"
	"sync"
	"time"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
)

// FieldCache stores the extracted fields of a document keyed by document id.
type FieldCache interface {
	Get(ctx context.Context, documentID string) ([]models.ExtractedField, bool, error)
	Set(ctx context.Context, documentID string, fields []models.ExtractedField) error
}

type memoryEntry struct {
	fields    []models.ExtractedField
	expiresAt time.Time
}

// MemoryFieldCache is an in-process FieldCache safe for concurrent use.
type MemoryFieldCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ FieldCache = (*MemoryFieldCache)(nil)

// NewMemoryFieldCache creates a cache; a zero ttl never expires entries.
func NewMemoryFieldCache(ttl time.Duration) *MemoryFieldCache {
	return &MemoryFieldCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryFieldCache) Get(_ context.Context, documentID string) ([]models.ExtractedField, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[documentID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, documentID)
		c.mu.Unlock()
		return nil, false, nil
	}

	fields := make([]models.ExtractedField, len(entry.fields))
	copy(fields, entry.fields)
	return fields, true, nil
}

func (c *MemoryFieldCache) Set(_ context.Context, documentID string, fields []models.ExtractedField) error {
	entry := memoryEntry{fields: make([]models.ExtractedField, len(fields))}
	copy(entry.fields, fields)
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[documentID] = entry
	c.mu.Unlock()
	return nil
}
