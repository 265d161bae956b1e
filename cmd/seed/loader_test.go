package main

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userhub-io/userhub/internal/storage"
	"github.com/userhub-io/userhub/internal/users"
)

const seedFile = `[
  {"email": "ana@example.com", "nome": "Ana", "sobrenome": "Lima", "data_nascimento": "1990-04-02", "genero": "F"},
  {"email": "menor@example.com", "nome": "Joao", "sobrenome": "Reis", "data_nascimento": "2015-01-01"},
  {"email": "sem-arroba", "nome": "", "sobrenome": "Souza"},
  {"email": "bruno@example.com", "nome": "Bruno", "sobrenome": "Alves", "data_nascimento": "1985-07-20", "celular": "(21) 99999-0000"}
]`

func newLoader(t *testing.T, store users.Store, strict bool) *loader {
	t.Helper()

	svc, err := users.NewService(store, users.WithClock(func() time.Time {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)

	return &loader{users: svc, store: store, strict: strict, logger: slog.New(slog.DiscardHandler)}
}

func TestDecodeInputs(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	inputs, err := decodeInputs(strings.NewReader(seedFile))
	require.NoError(t, err)
	assert.Len(t, inputs, 4)

	_, err = decodeInputs(strings.NewReader(`{"email": "x"}`))
	assert.Error(t, err)
}

func TestLoader_Bulk(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	ctx := t.Context()
	store := storage.NewInMemoryUserStore()
	inputs, err := decodeInputs(strings.NewReader(seedFile))
	require.NoError(t, err)

	rep, err := newLoader(t, store, false).load(ctx, inputs)
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Read)
	assert.Equal(t, int64(2), rep.Inserted)
	assert.Zero(t, rep.Skipped)
	require.Len(t, rep.Rejected, 2)
	assert.Equal(t, 1, rep.Rejected[0].Index)
	assert.Equal(t, users.MsgNotAdult, rep.Rejected[0].Reason)
	assert.Equal(t, 2, rep.Rejected[1].Index)
	assert.Equal(t, "sem-arroba", rep.Rejected[1].Email)

	again, err := newLoader(t, store, false).load(ctx, inputs)
	require.NoError(t, err)
	assert.Zero(t, again.Inserted)
	assert.Equal(t, int64(2), again.Skipped, "existing emails are skipped")
}

func TestLoader_Strict(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	ctx := t.Context()
	store := storage.NewInMemoryUserStore()
	inputs, err := decodeInputs(strings.NewReader(seedFile))
	require.NoError(t, err)

	_, err = newLoader(t, store, false).load(ctx, inputs[:1])
	require.NoError(t, err)

	rep, err := newLoader(t, store, true).load(ctx, inputs)
	require.NoError(t, err)

	assert.Equal(t, int64(1), rep.Inserted)
	require.Len(t, rep.Rejected, 3)
	assert.Equal(t, 0, rep.Rejected[2].Index)
	assert.Equal(t, "email ja cadastrado", rep.Rejected[2].Reason)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
