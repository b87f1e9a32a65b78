package catalog

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/productsheet/internal/platform/httpx"
)

func TestBuildWhereEmpty(t *testing.T) {
	where, args := buildWhere(Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildWhereNumbersPlaceholdersInOrder(t *testing.T) {
	where, args := buildWhere(Filter{
		Search:     " shoe ",
		Brand:      "Acme",
		Attributes: map[string]string{"color": "red"},
		MinPrice:   price(10),
		MaxPrice:   price(20),
	})

	assert.Contains(t, where, "name ILIKE $1 OR brand ILIKE $1")
	assert.Contains(t, where, "attr.value ILIKE $1")
	assert.Contains(t, where, "brand = $2")
	assert.Contains(t, where, "attributes @> $3")
	assert.Contains(t, where, "price >= $4")
	assert.Contains(t, where, "price <= $5")
	assert.Equal(t, []any{"%shoe%", "Acme", map[string]string{"color": "red"}, 10.0, 20.0}, args)
}

func TestMapErrorHidesStoreDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "products_name_key"`}
	err := mapError("create", pgErr)
	require.ErrorIs(t, err, ErrDuplicate)
	assert.NotContains(t, err.Error(), "23505")
	assert.NotContains(t, err.Error(), "products_name_key")

	rr := httptest.NewRecorder()
	httpx.RespondError(rr, err)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.NotContains(t, rr.Body.String(), "products_name_key")
}

func TestMapErrorNotFound(t *testing.T) {
	assert.ErrorIs(t, mapError("get", pgx.ErrNoRows), ErrNotFound)

	other := errors.New("conn reset")
	err := mapError("list", other)
	assert.ErrorIs(t, err, other)
	assert.Equal(t, "catalog: list: conn reset", err.Error())
}
