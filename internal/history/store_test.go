// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package history

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medexa/gateway/internal/config"
)

func newMockStore(t *testing.T, cfg config.HistoryConfig) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newStore(db, cfg), mock
}

func TestStore_Append(t *testing.T) {
	s, mock := newMockStore(t, config.HistoryConfig{MaxMessages: 6})

	mock.ExpectExec("INSERT INTO messages").
		WithArgs("sess-1", "user", "what does my glucose result mean?").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Append(context.Background(), "sess-1", "user", "what does my glucose result mean?")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendEmptySession(t *testing.T) {
	s, _ := newMockStore(t, config.HistoryConfig{MaxMessages: 6})
	err := s.Append(context.Background(), "", "user", "hello")
	assert.Error(t, err)
}

func TestStore_RecentReturnsChronologicalWindow(t *testing.T) {
	s, mock := newMockStore(t, config.HistoryConfig{MaxMessages: 6})

	// Store query returns newest first.
	rows := sqlmock.NewRows([]string{"role", "content"}).
		AddRow("assistant", "third").
		AddRow("user", "second").
		AddRow("assistant", "first")
	mock.ExpectQuery("SELECT role, content FROM messages").
		WithArgs("sess-1", 6).
		WillReturnRows(rows)

	window, err := s.Recent(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.Equal(t, "first", window[0].Content)
	assert.Equal(t, "second", window[1].Content)
	assert.Equal(t, "third", window[2].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecentEnforcesTokenBudget(t *testing.T) {
	s, mock := newMockStore(t, config.HistoryConfig{MaxMessages: 6, TokenBudget: 10})

	long := "this is a deliberately long answer about cholesterol management and statin therapy options"
	rows := sqlmock.NewRows([]string{"role", "content"}).
		AddRow("assistant", "short reply").
		AddRow("user", long)
	mock.ExpectQuery("SELECT role, content FROM messages").
		WithArgs("sess-1", 6).
		WillReturnRows(rows)

	window, err := s.Recent(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, window, 1, "oldest message dropped to fit token budget")
	assert.Equal(t, "short reply", window[0].Content)
}

func TestStore_Clear(t *testing.T) {
	s, mock := newMockStore(t, config.HistoryConfig{MaxMessages: 6})

	mock.ExpectExec("DELETE FROM messages").
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, s.Clear(context.Background(), "sess-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenCounter_Count(t *testing.T) {
	c := NewTokenCounter()
	assert.Equal(t, 0, c.Count(""))
	assert.Greater(t, c.Count("hello world"), 0)

	short := c.Count("one sentence")
	long := c.Count("a considerably longer sentence that should produce many more tokens than the short one")
	assert.Greater(t, long, short)
}
