package profile

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (Profile, error)
	// Create inserts a new row and returns it with server assigned fields.
	// It returns ErrAlreadyExists when the id is taken.
	Create(ctx context.Context, p Profile) (Profile, error)
	// Update writes the full row and returns it as persisted.
	Update(ctx context.Context, p Profile) (Profile, error)
	Delete(ctx context.Context, id string) error
	// ListByRole returns profiles of a role, newest first.
	ListByRole(ctx context.Context, role Role) ([]Profile, error)
	// Search matches query as a case-insensitive substring of display
	// name, location or bio. An empty role matches both roles.
	Search(ctx context.Context, query string, role Role) ([]Profile, error)
}

type memoryRow struct {
	profile Profile
	created time.Time
	seq     int
}

type InMemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]memoryRow
	seq  int
	now  func() time.Time
}

func NewInMemoryRepository(seed []Profile) *InMemoryRepository {
	repo := &InMemoryRepository{
		rows: make(map[string]memoryRow, len(seed)),
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, p := range seed {
		created := repo.now()
		if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
			created = t
		} else {
			p.CreatedAt = created.Format(time.RFC3339)
		}
		repo.seq++
		repo.rows[p.ID] = memoryRow{profile: p, created: created, seq: repo.seq}
	}
	return repo
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return row.profile, nil
}

func (r *InMemoryRepository) Create(_ context.Context, p Profile) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[p.ID]; ok {
		return Profile{}, ErrAlreadyExists
	}
	created := r.now()
	p.CreatedAt = created.Format(time.RFC3339)
	r.seq++
	r.rows[p.ID] = memoryRow{profile: p, created: created, seq: r.seq}
	return p, nil
}

func (r *InMemoryRepository) Update(_ context.Context, p Profile) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[p.ID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	p.Role = row.profile.Role
	p.CreatedAt = row.profile.CreatedAt
	row.profile = p
	r.rows[p.ID] = row
	return p, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *InMemoryRepository) ListByRole(_ context.Context, role Role) ([]Profile, error) {
	return r.filter(func(p Profile) bool { return p.Role == role }), nil
}

func (r *InMemoryRepository) Search(_ context.Context, query string, role Role) ([]Profile, error) {
	q := strings.ToLower(query)
	return r.filter(func(p Profile) bool {
		if role != "" && p.Role != role {
			return false
		}
		return strings.Contains(strings.ToLower(p.DisplayName), q) ||
			strings.Contains(strings.ToLower(p.Location), q) ||
			strings.Contains(strings.ToLower(p.Bio), q)
	}), nil
}

func (r *InMemoryRepository) filter(match func(Profile) bool) []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]memoryRow, 0, len(r.rows))
	for _, row := range r.rows {
		if match(row.profile) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].created.Equal(rows[j].created) {
			return rows[i].created.After(rows[j].created)
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]Profile, len(rows))
	for i, row := range rows {
		out[i] = row.profile
	}
	return out
}
