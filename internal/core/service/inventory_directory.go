package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rl1809/medstock/internal/core/domain"
	"github.com/rl1809/medstock/internal/logging"
	"github.com/rl1809/medstock/internal/port"
)

// InventoryDirectory manages the item collection. Every call reloads the
// whole collection and mutations write the whole collection back.
type InventoryDirectory struct {
	store      port.RecordStore
	collection string
	logger     logging.Logger
	now        func() time.Time

	// mu serializes read-modify-write cycles on the collection.
	mu sync.Mutex
}

func NewInventoryDirectory(store port.RecordStore, collection string, logger logging.Logger) *InventoryDirectory {
	return &InventoryDirectory{
		store:      store,
		collection: collection,
		logger:     logger,
		now:        time.Now,
	}
}

func (d *InventoryDirectory) ListItems(ctx context.Context) ([]domain.Record, error) {
	items, err := d.store.Load(ctx, d.collection)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	return items, nil
}

// AddItem stores a copy of fields under a new id and returns that id. The id
// is the current Unix time in milliseconds, bumped past any id already taken.
func (d *InventoryDirectory) AddItem(ctx context.Context, fields domain.Record) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	items, err := d.store.Load(ctx, d.collection)
	if err != nil {
		return "", fmt.Errorf("load inventory: %w", err)
	}

	id := d.nextID(items)
	item := fields.Clone()
	item[domain.ItemIDField] = id
	items = append(items, item)

	if err := d.store.Save(ctx, d.collection, items); err != nil {
		return "", fmt.Errorf("save inventory: %w", err)
	}

	d.logger.Debug(ctx, "item added", "id", id)
	return id, nil
}

// UpdateItem merges partial into the first item whose id matches. A miss is
// not an error and the collection is written back unchanged.
func (d *InventoryDirectory) UpdateItem(ctx context.Context, id string, partial domain.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	items, err := d.store.Load(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}

	matched := false
	for _, item := range items {
		if itemID, ok := item.ID(); ok && itemID == id {
			item.Merge(partial)
			matched = true
			break
		}
	}

	if err := d.store.Save(ctx, d.collection, items); err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}

	d.logger.Debug(ctx, "item updated", "id", id, "matched", matched)
	return nil
}

// DeleteItem removes every item whose id matches. Deleting an unknown id is
// not an error.
func (d *InventoryDirectory) DeleteItem(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	items, err := d.store.Load(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}

	kept := make([]domain.Record, 0, len(items))
	for _, item := range items {
		if itemID, ok := item.ID(); ok && itemID == id {
			continue
		}
		kept = append(kept, item)
	}

	if err := d.store.Save(ctx, d.collection, kept); err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}

	d.logger.Debug(ctx, "item deleted", "id", id, "removed", len(items)-len(kept))
	return nil
}

func (d *InventoryDirectory) nextID(items []domain.Record) string {
	taken := make(map[string]struct{}, len(items))
	for _, item := range items {
		if id, ok := item.ID(); ok {
			taken[id] = struct{}{}
		}
	}

	ms := d.now().UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if _, exists := taken[id]; !exists {
			return id
		}
		ms++
	}
}
