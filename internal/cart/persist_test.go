package cart

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() State {
	st := State{Items: []Item{
		{Product: product("1", 899), Quantity: 2},
		{Product: product("11", 45900), Quantity: 1},
	}}
	st.recompute()
	return st
}

func assertSameCart(t *testing.T, want, got State) {
	t.Helper()
	require.Len(t, got.Items, len(want.Items))
	for i := range want.Items {
		assert.Equal(t, want.Items[i].Product.ID, got.Items[i].Product.ID)
		assert.Equal(t, want.Items[i].Quantity, got.Items[i].Quantity)
	}
	assert.True(t, want.Total.Equal(got.Total), "total=%s want=%s", got.Total, want.Total)
	assert.Equal(t, want.ItemCount, got.ItemCount)
}

func TestFilePersister(t *testing.T) {
	ctx := context.Background()
	p, err := NewFilePersister(t.TempDir())
	require.NoError(t, err)

	_, ok, err := p.Load(ctx, Key("s1"))
	require.NoError(t, err)
	assert.False(t, ok)

	want := sampleState()
	require.NoError(t, p.Save(ctx, Key("s1"), want))
	require.NoError(t, p.Save(ctx, Key("s1"), want))

	got, ok, err := p.Load(ctx, Key("s1"))
	require.NoError(t, err)
	require.True(t, ok)
	assertSameCart(t, want, got)

	_, ok, err = p.Load(ctx, Key("../s1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeRedis struct {
	data   map[string][]byte
	getErr error
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	switch raw, ok := f.data[key]; {
	case f.getErr != nil:
		cmd.SetErr(f.getErr)
	case !ok:
		cmd.SetErr(redis.Nil)
	default:
		cmd.SetVal(string(raw))
	}
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	raw, _ := value.([]byte)
	f.data[key] = raw
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func TestRedisPersister(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	p := NewRedisPersister(rdb, 24*time.Hour)

	_, ok, err := p.Load(ctx, Key("s1"))
	require.NoError(t, err)
	assert.False(t, ok)

	want := sampleState()
	require.NoError(t, p.Save(ctx, Key("s1"), want))
	assert.Equal(t, 24*time.Hour, rdb.ttls["furniture-cart:s1"])

	got, ok, err := p.Load(ctx, Key("s1"))
	require.NoError(t, err)
	require.True(t, ok)
	assertSameCart(t, want, got)

	rdb.getErr = errors.New("connection refused")
	_, _, err = p.Load(ctx, Key("s1"))
	assert.Error(t, err)
}

func TestPostgresPersister_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO carts")).
		WithArgs("furniture-cart:s1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p := NewPostgresPersister(mock)
	require.NoError(t, p.Save(context.Background(), Key("s1"), sampleState()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPersister_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	want := sampleState()
	raw, err := encodeState(want)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT state")).
		WithArgs("furniture-cart:s1").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(raw))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT state")).
		WithArgs("furniture-cart:s2").
		WillReturnError(pgx.ErrNoRows)

	p := NewPostgresPersister(mock)

	got, ok, err := p.Load(context.Background(), Key("s1"))
	require.NoError(t, err)
	require.True(t, ok)
	assertSameCart(t, want, got)

	_, ok, err = p.Load(context.Background(), Key("s2"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPersister_EnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS carts")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectPing()

	p := NewPostgresPersister(mock)
	require.NoError(t, p.EnsureSchema(context.Background()))
	require.NoError(t, p.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
