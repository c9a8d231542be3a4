package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx records commit and rollback calls; other pgx.Tx methods are unused.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx      *fakeTx
	err     error
	options pgx.TxOptions
}

func (f *fakeBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	f.options = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestWithTxCommits(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}

	err := WithTx(context.Background(), beginner, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	assert.True(t, beginner.tx.committed)
	assert.Equal(t, pgx.ReadCommitted, beginner.options.IsoLevel)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")

	err := WithTx(context.Background(), beginner, func(pgx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, beginner.tx.committed)
	assert.True(t, beginner.tx.rolledBack)
}

func TestWithTxWrapsBeginAndCommitFailures(t *testing.T) {
	boom := errors.New("boom")

	err := WithTx(context.Background(), &fakeBeginner{err: boom}, func(pgx.Tx) error { return nil })
	assert.ErrorIs(t, err, boom)

	err = WithTx(context.Background(), &fakeBeginner{tx: &fakeTx{commitErr: boom}}, func(pgx.Tx) error { return nil })
	assert.ErrorIs(t, err, boom)
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	entries, err := embedMigrations.ReadDir("migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"00001_users.sql", "00002_user_tokens.sql", "00003_posts.sql"}, names)
}
