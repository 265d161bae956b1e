package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/userhub-io/userhub/internal/users"
)

// InMemoryUserStore is a thread-safe users.Store kept in process memory.
// It backs unit tests and database-less local runs.
type InMemoryUserStore struct {
	// byID maps ids to rows; byEmail indexes the same rows by normalized email.
	byID    map[int64]*users.User
	byEmail map[string]*users.User
	nextID  int64
	mutex   sync.RWMutex
}

// NewInMemoryUserStore creates an empty store whose first id is 1.
func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:    make(map[int64]*users.User),
		byEmail: make(map[string]*users.User),
		nextID:  1,
	}
}

// HealthCheck always succeeds.
func (s *InMemoryUserStore) HealthCheck(_ context.Context) error {
	return nil
}

// FindAll returns copies of every row ordered by id.
func (s *InMemoryUserStore) FindAll(_ context.Context) ([]users.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	found := make([]users.User, 0, len(s.byID))
	for _, user := range s.byID {
		found = append(found, copyUser(user))
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })

	return found, nil
}

// FindByID returns a copy of the row with id, or nil.
func (s *InMemoryUserStore) FindByID(_ context.Context, id int64) (*users.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, nil //nolint: nilnil
	}

	userCopy := copyUser(user)

	return &userCopy, nil
}

// FindByEmail returns a copy of the row stored under email, or nil.
func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*users.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, ok := s.byEmail[users.NormalizeEmail(email)]
	if !ok {
		return nil, nil //nolint: nilnil
	}

	userCopy := copyUser(user)

	return &userCopy, nil
}

// ListByBirthDateRange returns rows born within [start, end], oldest first.
// YYYY-MM-DD strings order the same way as the dates they encode.
func (s *InMemoryUserStore) ListByBirthDateRange(_ context.Context, start, end string) ([]users.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	found := make([]users.User, 0)

	for _, user := range s.byID {
		if user.DataNascimento == nil {
			continue
		}

		if birth := *user.DataNascimento; birth >= start && birth <= end {
			found = append(found, copyUser(user))
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if *found[i].DataNascimento != *found[j].DataNascimento {
			return *found[i].DataNascimento < *found[j].DataNascimento
		}

		return found[i].ID < found[j].ID
	})

	return found, nil
}

// InsertOne stores record under a new id; an existing email yields users.ErrDuplicateEmail.
func (s *InMemoryUserStore) InsertOne(_ context.Context, record users.Record) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.byEmail[users.NormalizeEmail(record.Email)]; exists {
		return 0, users.ErrDuplicateEmail
	}

	return s.insertLocked(record), nil
}

// InsertMany stores every record whose email is not yet present and returns how many were added.
func (s *InMemoryUserStore) InsertMany(_ context.Context, records []users.Record) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var added int64

	for _, record := range records {
		if _, exists := s.byEmail[users.NormalizeEmail(record.Email)]; exists {
			continue
		}

		s.insertLocked(record)
		added++
	}

	return added, nil
}

// UpdateByEmail overwrites the row stored under email and returns 1, or 0 when absent.
func (s *InMemoryUserStore) UpdateByEmail(_ context.Context, email string, record users.Record) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, ok := s.byEmail[users.NormalizeEmail(email)]
	if !ok {
		return 0, nil
	}

	s.replaceLocked(existing.ID, existing.Email, record)

	return 1, nil
}

// Upsert resolves the record's identity and writes it under one lock, so concurrent
// upserts of the same email never produce two rows.
func (s *InMemoryUserStore) Upsert(_ context.Context, record users.Record) (users.UpsertResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	email := users.NormalizeEmail(record.Email)
	existing := s.byEmail[email]

	if users.Resolve(existing) == users.DecisionUpdate {
		s.replaceLocked(existing.ID, email, record)

		return users.UpsertResult{ID: existing.ID, Decision: users.DecisionUpdate}, nil
	}

	return users.UpsertResult{ID: s.insertLocked(record), Decision: users.DecisionInsert}, nil
}

func (s *InMemoryUserStore) insertLocked(record users.Record) int64 {
	id := s.nextID
	s.nextID++

	s.replaceLocked(id, users.NormalizeEmail(record.Email), record)

	return id
}

func (s *InMemoryUserStore) replaceLocked(id int64, email string, record users.Record) {
	record.Email = email
	user := record.ToUser(id)

	if record.DataNascimento == "" {
		user.DataNascimento = nil
	}

	s.byID[id] = &user
	s.byEmail[email] = &user
}

// copyUser detaches the optional fields so callers cannot mutate stored rows.
func copyUser(user *users.User) users.User {
	userCopy := *user

	if user.DataNascimento != nil {
		birth := *user.DataNascimento
		userCopy.DataNascimento = &birth
	}

	if user.Celular != nil {
		phone := *user.Celular
		userCopy.Celular = &phone
	}

	if user.Genero != nil {
		gender := *user.Genero
		userCopy.Genero = &gender
	}

	return userCopy
}
