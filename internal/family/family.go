// Package family holds the household members and the colors their events
// are drawn in.
package family

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"familyhub/internal/model"
)

var (
	ErrNotFound    = errors.New("family: member not found")
	ErrInvalidName = errors.New("family: name is required")
)

// Registry is the in-memory member list.
type Registry struct {
	defaultColor string

	mu      sync.RWMutex
	members []model.FamilyMember
}

func NewRegistry(members []model.FamilyMember, defaultColor string) *Registry {
	r := &Registry{defaultColor: defaultColor}
	for _, m := range members {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		r.members = append(r.members, m)
	}
	return r
}

// Members returns a copy of the member list.
func (r *Registry) Members() []model.FamilyMember {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.FamilyMember(nil), r.members...)
}

// ColorFor returns the color of the member named person (case-insensitive),
// or the default color.
func (r *Registry) ColorFor(person string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	person = strings.TrimSpace(person)
	for _, m := range r.members {
		if m.Color != "" && strings.EqualFold(m.Name, person) {
			return m.Color
		}
	}
	return r.defaultColor
}

func (r *Registry) Add(m model.FamilyMember) (model.FamilyMember, error) {
	if strings.TrimSpace(m.Name) == "" {
		return model.FamilyMember{}, ErrInvalidName
	}
	m.ID = uuid.NewString()
	if m.Color == "" {
		m.Color = r.defaultColor
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, m)
	return m, nil
}

// Update replaces the non-empty fields of member id.
func (r *Registry) Update(id string, patch model.FamilyMember) (model.FamilyMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.ID != id {
			continue
		}
		if patch.Name != "" {
			m.Name = patch.Name
		}
		if patch.Role != "" {
			m.Role = patch.Role
		}
		if patch.Color != "" {
			m.Color = patch.Color
		}
		r.members[i] = m
		return m, nil
	}
	return model.FamilyMember{}, ErrNotFound
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.ID == id {
			r.members = append(r.members[:i:i], r.members[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
