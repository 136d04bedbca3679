package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.True(t, errors.Is(translate(gorm.ErrRecordNotFound), ErrNotFound))
	assert.True(t, errors.Is(translate(gorm.ErrDuplicatedKey), ErrDuplicate))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "IDX_myparcel_consignment_order_id_unique"}
	err := translate(fmt.Errorf("insert: %w", pgErr))
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Contains(t, err.Error(), "order_id_unique")

	other := &pgconn.PgError{Code: "23503"}
	assert.False(t, errors.Is(translate(other), ErrDuplicate))
}

func TestNewPage(t *testing.T) {
	assert.Equal(t, Page{Limit: 20, Offset: 0}, NewPage(0, -5))
	assert.Equal(t, Page{Limit: 100, Offset: 40}, NewPage(500, 40))
	assert.Equal(t, Page{Limit: 7, Offset: 3}, NewPage(7, 3))
}

func TestJSONB_ScanAndValue(t *testing.T) {
	var j JSONB
	require.NoError(t, j.Scan([]byte(`{"signature":1}`)))
	assert.Equal(t, float64(1), j["signature"])

	require.NoError(t, j.Scan(`{"a":"b"}`))
	assert.Equal(t, "b", j["a"])

	v, err := j.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b"}`, v.(string))

	var empty JSONB
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, j.Scan(42))
}

func TestStringList_NilEncodesAsEmptyArray(t *testing.T) {
	var s StringList
	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	require.NoError(t, s.Scan([]byte(`["postnl","bpost"]`)))
	assert.Equal(t, StringList{"postnl", "bpost"}, s)
}

func TestModels_AssignPrefixedIDs(t *testing.T) {
	c := &Consignment{}
	require.NoError(t, c.BeforeCreate(nil))
	assert.True(t, strings.HasPrefix(c.ID, "mpc_"))

	s := &Setting{}
	require.NoError(t, s.BeforeCreate(nil))
	assert.True(t, strings.HasPrefix(s.ID, "mps_"))

	keep := &Consignment{ID: "mpc_fixed"}
	require.NoError(t, keep.BeforeCreate(nil))
	assert.Equal(t, "mpc_fixed", keep.ID)
}

func TestMemoryRepository_UniqueOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateConsignment(ctx, &Consignment{OrderID: "order_1", Carrier: "bpost"}))
	err := repo.CreateConsignment(ctx, &Consignment{OrderID: "order_1", Carrier: "postnl"})

	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	c := &Consignment{OrderID: "order_1", Status: "concept"}
	require.NoError(t, repo.CreateConsignment(ctx, c))

	got, err := repo.GetConsignment(ctx, c.ID)
	require.NoError(t, err)
	got.Status = "registered"

	again, err := repo.FindConsignmentByOrder(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, "concept", again.Status)
}

func TestMemoryRepository_ListFiltersAndPages(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		carrier := "bpost"
		if i%2 == 0 {
			carrier = "postnl"
		}
		require.NoError(t, repo.CreateConsignment(ctx, &Consignment{
			OrderID: fmt.Sprintf("order_%d", i),
			Carrier: carrier,
			Status:  "concept",
		}))
	}

	rows, total, err := repo.ListConsignments(ctx, ConsignmentFilter{Carrier: "postnl"}, NewPage(2, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 2)

	rows, total, err = repo.ListConsignments(ctx, ConsignmentFilter{}, NewPage(10, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, rows, 1)

	rows, _, err = repo.ListConsignments(ctx, ConsignmentFilter{}, NewPage(10, 10))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryRepository_Settings(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.FirstSetting(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	s := &Setting{DefaultCarrier: "bpost"}
	require.NoError(t, repo.CreateSetting(ctx, s))
	s.DefaultCarrier = "dpd"
	require.NoError(t, repo.SaveSetting(ctx, s))

	got, err := repo.FirstSetting(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dpd", got.DefaultCarrier)
	assert.Equal(t, s.ID, got.ID)
}
