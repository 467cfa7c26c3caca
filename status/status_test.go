package status

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/folio/broker"
)

type fakeBroker struct {
	account   broker.Account
	positions []broker.Position
	orders    []broker.Order
	err       error
}

func (f *fakeBroker) Account(context.Context) (broker.Account, error) {
	return f.account, f.err
}

func (f *fakeBroker) Positions(context.Context) ([]broker.Position, error) {
	return f.positions, f.err
}

func (f *fakeBroker) OpenOrders(context.Context) ([]broker.Order, error) {
	return f.orders, f.err
}

func (f *fakeBroker) PlaceOrder(context.Context, broker.OrderRequest) (broker.Order, error) {
	return broker.Order{}, f.err
}

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "status.json")
	require.NoError(t, Write(path, "bought 5 AAA"))

	rec := Read(path)
	assert.Equal(t, "bought 5 AAA", rec.LastAction)
	assert.False(t, rec.Time.IsZero())
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	rec := Read(filepath.Join(t.TempDir(), "nope.json"))
	assert.Empty(t, rec.LastAction)
	assert.True(t, rec.Time.IsZero())
}

func TestLiveMergesBrokerAndFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "status.json")
	require.NoError(t, Write(path, "did"))

	b := &fakeBroker{
		account:   broker.Account{Equity: 50},
		positions: []broker.Position{{Ticker: "AAA"}},
		orders:    []broker.Order{{ID: "1"}},
	}
	rep := Live(context.Background(), b, path)

	assert.Equal(t, 50.0, rep.Equity)
	assert.Len(t, rep.Positions, 1)
	assert.Len(t, rep.Orders, 1)
	assert.Equal(t, "did", rep.LastAction)
	assert.Empty(t, rep.Errors)
}

func TestLiveDegradesOnBrokerErrors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "status.json")
	require.NoError(t, Write(path, "did"))

	b := &fakeBroker{err: errors.New("api down")}
	rep := Live(context.Background(), b, path)

	assert.Equal(t, "did", rep.LastAction)
	assert.Zero(t, rep.Equity)
	assert.Len(t, rep.Errors, 3)
}

func TestLiveWithoutBroker(t *testing.T) {
	t.Parallel()

	rep := Live(context.Background(), nil, filepath.Join(t.TempDir(), "status.json"))
	assert.Len(t, rep.Errors, 1)
}
