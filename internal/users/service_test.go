package users_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userhub-io/userhub/internal/storage"
	"github.com/userhub-io/userhub/internal/users"
)

var today = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*users.Service, *storage.InMemoryUserStore) {
	t.Helper()

	store := storage.NewInMemoryUserStore()

	svc, err := users.NewService(store, users.WithClock(func() time.Time { return today }))
	require.NoError(t, err)

	return svc, store
}

func input(email, birth string) users.Input {
	return users.Input{
		Email:          email,
		Nome:           "Carla",
		Sobrenome:      "Mendes",
		DataNascimento: birth,
		Celular:        "(11) 91234-5678",
		Genero:         "F",
	}
}

func TestNewService_NilStore(t *testing.T) {
	_, err := users.NewService(nil)
	assert.ErrorIs(t, err, users.ErrNilStore)
}

func TestService_Create(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	ctx := t.Context()

	t.Run("exactly 18 years old is rejected", func(t *testing.T) {
		svc, store := newService(t)

		_, err := svc.Create(ctx, input("carla@example.com", "2008-06-15"))

		var verr *users.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []string{users.MsgNotAdult}, verr.Errors)

		all, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all, "nothing is written on rejection")
	})

	t.Run("19 years old is accepted", func(t *testing.T) {
		svc, _ := newService(t)

		res, err := svc.Create(ctx, input(" Carla@Example.com ", "2007-06-15"))
		require.NoError(t, err)

		assert.False(t, res.Updated)
		assert.Positive(t, res.User.ID)
		assert.Equal(t, "carla@example.com", res.User.Email)
		require.NotNil(t, res.User.Genero)
		assert.Equal(t, users.GenderFemale, *res.User.Genero)
	})

	t.Run("same email updates the existing row", func(t *testing.T) {
		svc, _ := newService(t)

		first, err := svc.Create(ctx, input("carla@example.com", "1990-01-01"))
		require.NoError(t, err)

		changed := input("CARLA@example.com", "1991-02-02")
		changed.Nome = "Carla Maria"

		second, err := svc.Create(ctx, changed)
		require.NoError(t, err)

		assert.True(t, second.Updated)
		assert.Equal(t, first.User.ID, second.User.ID)

		got, err := svc.Get(ctx, first.User.ID)
		require.NoError(t, err)
		assert.Equal(t, "Carla Maria", got.Nome)
		assert.Equal(t, "1991-02-02", *got.DataNascimento)
	})

	t.Run("normalization errors come before the age rule", func(t *testing.T) {
		svc, _ := newService(t)

		_, err := svc.Create(ctx, input("not-an-email", "2015-01-01"))

		var verr *users.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []string{users.MsgInvalidEmail}, verr.Errors)
	})
}

func TestService_ListAndGet(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	ctx := t.Context()
	svc, _ := newService(t)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := svc.Create(ctx, input(email, "1985-03-03"))
		require.NoError(t, err)
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Less(t, all[0].ID, all[1].ID)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, users.ErrNotFound)

	var verr *users.ValidationError
	_, err = svc.Get(ctx, 0)
	assert.True(t, errors.As(err, &verr))
}

func TestParseID(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	id, err := users.ParseID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-3", "abc", "1.5"} {
		_, err := users.ParseID(raw)

		var verr *users.ValidationError
		assert.True(t, errors.As(err, &verr), "raw=%q", raw)
	}
}
