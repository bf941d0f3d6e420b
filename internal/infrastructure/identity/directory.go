// Package identity provides the user directory and token resolver used to
// turn requests into already-authenticated actors.
package identity

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/domain/entity"
)

// directoryFile is the YAML layout read by LoadDirectory
type directoryFile struct {
	Users []entity.Identity `yaml:"users"`
}

// Directory is a fixed, read-only set of identities
type Directory struct {
	users []entity.Identity
	byID  map[string]entity.Identity
}

// NewDirectory validates users and indexes them by id
func NewDirectory(users []entity.Identity) (*Directory, error) {
	d := &Directory{
		users: make([]entity.Identity, 0, len(users)),
		byID:  make(map[string]entity.Identity, len(users)),
	}
	for i, u := range users {
		if u.ID == "" {
			return nil, fmt.Errorf("user %d: id is required", i)
		}
		if !u.Role.IsValid() {
			return nil, fmt.Errorf("user %s: invalid role %q", u.ID, u.Role)
		}
		if _, dup := d.byID[u.ID]; dup {
			return nil, fmt.Errorf("user %s: duplicate id", u.ID)
		}
		d.byID[u.ID] = u
		d.users = append(d.users, u)
	}
	return d, nil
}

// LoadDirectory reads a YAML file of the form `users: [{id, name, email, role}]`
func LoadDirectory(path string) (*Directory, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read user directory: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse user directory %s: %w", path, err)
	}
	return NewDirectory(file.Users)
}

// List returns the identities in declaration order
func (d *Directory) List(ctx context.Context) ([]entity.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]entity.Identity, len(d.users))
	copy(out, d.users)
	return out, nil
}

// Get returns the identity with id or a NotFoundError
func (d *Directory) Get(ctx context.Context, id string) (entity.Identity, error) {
	if err := ctx.Err(); err != nil {
		return entity.Identity{}, err
	}
	u, ok := d.byID[id]
	if !ok {
		return entity.Identity{}, &entity.NotFoundError{Kind: entity.KindUser, ID: id}
	}
	return u, nil
}

// IDs returns every known id, sorted
func (d *Directory) IDs() []string {
	ids := make([]string, 0, len(d.byID))
	for id := range d.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ port.UserDirectory = (*Directory)(nil)
