package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for tests and local runs.
// It enforces the same one-consignment-per-order rule as the database.
type MemoryRepository struct {
	mu           sync.Mutex
	now          func() time.Time
	settings     []*Setting
	consignments map[string]*Consignment
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now:          time.Now,
		consignments: make(map[string]*Consignment),
	}
}

func (r *MemoryRepository) FirstSetting(ctx context.Context) (*Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.settings) == 0 {
		return nil, ErrNotFound
	}
	s := *r.settings[0]
	return &s, nil
}

func (r *MemoryRepository) CreateSetting(ctx context.Context, s *Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.assignID()
	now := r.now()
	s.CreatedAt, s.UpdatedAt = now, now
	stored := *s
	r.settings = append(r.settings, &stored)
	return nil
}

func (r *MemoryRepository) SaveSetting(ctx context.Context, s *Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.settings {
		if existing.ID == s.ID {
			s.UpdatedAt = r.now()
			stored := *s
			r.settings[i] = &stored
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) CreateConsignment(ctx context.Context, c *Consignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.consignments {
		if existing.OrderID == c.OrderID {
			return ErrDuplicate
		}
	}
	c.assignID()
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	r.consignments[c.ID] = &stored
	return nil
}

func (r *MemoryRepository) SaveConsignment(ctx context.Context, c *Consignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.consignments[c.ID]; !ok {
		return ErrNotFound
	}
	c.UpdatedAt = r.now()
	stored := *c
	r.consignments[c.ID] = &stored
	return nil
}

func (r *MemoryRepository) GetConsignment(ctx context.Context, id string) (*Consignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *MemoryRepository) FindConsignmentByOrder(ctx context.Context, orderID string) (*Consignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.consignments {
		if c.OrderID == orderID {
			out := *c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListConsignments(ctx context.Context, filter ConsignmentFilter, page Page) ([]Consignment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matches := make([]Consignment, 0, len(r.consignments))
	for _, c := range r.consignments {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Carrier != "" && c.Carrier != filter.Carrier {
			continue
		}
		if filter.OrderID != "" && c.OrderID != filter.OrderID {
			continue
		}
		matches = append(matches, *c)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := int64(len(matches))
	if page.Offset >= len(matches) {
		return []Consignment{}, total, nil
	}
	end := page.Offset + page.Limit
	if page.Limit <= 0 || end > len(matches) {
		end = len(matches)
	}
	return matches[page.Offset:end], total, nil
}

var _ Repository = (*MemoryRepository)(nil)
