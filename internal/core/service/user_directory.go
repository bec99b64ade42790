package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rl1809/medstock/internal/core/domain"
	"github.com/rl1809/medstock/internal/logging"
	"github.com/rl1809/medstock/internal/port"
)

// UserDirectory manages the user collection. Passwords are stored and
// compared as plaintext.
type UserDirectory struct {
	store      port.RecordStore
	collection string
	logger     logging.Logger

	// mu serializes read-modify-write cycles on the collection.
	mu sync.Mutex
}

func NewUserDirectory(store port.RecordStore, collection string, logger logging.Logger) *UserDirectory {
	return &UserDirectory{store: store, collection: collection, logger: logger}
}

func (d *UserDirectory) ListUsers(ctx context.Context) ([]domain.User, error) {
	records, err := d.store.Load(ctx, d.collection)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	users := make([]domain.User, 0, len(records))
	for _, r := range records {
		if _, opaque := r.Opaque(); opaque {
			continue
		}
		users = append(users, domain.UserFromRecord(r))
	}
	return users, nil
}

// AddUser appends a user with role "user". The username must not already be
// taken; the comparison is exact and case-sensitive.
func (d *UserDirectory) AddUser(ctx context.Context, username, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	records, err := d.store.Load(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	for _, r := range records {
		if name, ok := r["username"].(string); ok && name == username {
			return domain.ErrDuplicateUser
		}
	}

	user := domain.User{Username: username, Password: password, Role: domain.RoleUser}
	records = append(records, user.Record())

	if err := d.store.Save(ctx, d.collection, records); err != nil {
		return fmt.Errorf("save users: %w", err)
	}

	d.logger.Info(ctx, "user registered", "username", username)
	return nil
}

// FindUser returns the first user whose username and password both match,
// or nil when there is none.
func (d *UserDirectory) FindUser(ctx context.Context, username, password string) (*domain.User, error) {
	records, err := d.store.Load(ctx, d.collection)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	for _, r := range records {
		name, nameOK := r["username"].(string)
		pass, passOK := r["password"].(string)
		if nameOK && passOK && name == username && pass == password {
			user := domain.UserFromRecord(r)
			return &user, nil
		}
	}
	return nil, nil
}
