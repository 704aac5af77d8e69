package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestCartRepo_AddUpserts(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE quantity = quantity + 1")).
		WithArgs("u-1", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewCartRepo(db).Add(context.Background(), "u-1", "p-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepo_SetQuantityZeroRemoves(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id=? AND product_id=?")).
		WithArgs("u-1", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewCartRepo(db).SetQuantity(context.Background(), "u-1", "p-1", 0))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepo_SetQuantityMissingLine(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE cart_items SET quantity=?")).
		WithArgs(3, "u-1", "p-x").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM cart_items")).
		WithArgs("u-1", "p-x").
		WillReturnError(sql.ErrNoRows)

	err := NewCartRepo(db).SetQuantity(context.Background(), "u-1", "p-x", 3)
	require.ErrorIs(t, err, ErrNotFound)
}
