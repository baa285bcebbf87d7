package guest

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/xenking/mandir-kart/internal/domain/cart"
)

type mockStore struct {
	items   []domain.LineItem
	loadErr error
	cleared bool
}

func (m *mockStore) LoadGuestCart() ([]domain.LineItem, error) {
	return m.items, m.loadErr
}

func (m *mockStore) ClearGuestCart() error {
	m.cleared = true
	return nil
}

type mockRemote struct {
	calls   map[string]int
	failFor map[string]bool
}

func (m *mockRemote) SetItemQuantity(_ context.Context, itemID string, quantity int) (decimal.Decimal, error) {
	if m.failFor[itemID] {
		return decimal.Zero, errors.New("rejected")
	}
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[itemID] = quantity
	return decimal.Zero, nil
}

type mockRefresher struct {
	fetched bool
	err     error
}

func (m *mockRefresher) Fetch(context.Context) (domain.Snapshot, error) {
	m.fetched = true
	return domain.Snapshot{}, m.err
}

func guestItem(id string, qty, stock int) domain.LineItem {
	return domain.LineItem{
		ID:                id,
		UnitPrice:         decimal.NewFromInt(100),
		OriginalUnitPrice: decimal.NewFromInt(100),
		Quantity:          qty,
		AvailableStock:    stock,
	}
}

func TestBridge_Merge(t *testing.T) {
	store := &mockStore{items: []domain.LineItem{
		guestItem("a", 2, 10),
		guestItem("b", 1, 5),
	}}
	remote := &mockRemote{}
	refresh := &mockRefresher{}
	b := NewBridge(store, remote, refresh, nil)

	report, err := b.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Merged: 2}, report)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, remote.calls)
	assert.True(t, refresh.fetched)
	assert.True(t, store.cleared)
}

func TestBridge_Merge_ClampsToStock(t *testing.T) {
	store := &mockStore{items: []domain.LineItem{
		guestItem("a", 9, 3),
	}}
	remote := &mockRemote{}
	b := NewBridge(store, remote, &mockRefresher{}, nil)

	report, err := b.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Merged: 1}, report)
	assert.Equal(t, 3, remote.calls["a"])
}

func TestBridge_Merge_SkipsOutOfStockAndFailedLines(t *testing.T) {
	store := &mockStore{items: []domain.LineItem{
		guestItem("gone", 2, 0),
		guestItem("bad", 1, 5),
		guestItem("ok", 1, 5),
	}}
	remote := &mockRemote{failFor: map[string]bool{"bad": true}}
	b := NewBridge(store, remote, &mockRefresher{}, nil)

	report, err := b.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Merged: 1, Skipped: 2}, report)
	assert.Equal(t, 1, remote.calls["ok"])
	assert.True(t, store.cleared, "guest cart clears even with skipped lines")
}

func TestBridge_Merge_EmptyGuestCart(t *testing.T) {
	store := &mockStore{}
	refresh := &mockRefresher{}
	b := NewBridge(store, &mockRemote{}, refresh, nil)

	report, err := b.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.False(t, refresh.fetched)
	assert.False(t, store.cleared)
}

func TestBridge_Merge_LoadFailure(t *testing.T) {
	store := &mockStore{loadErr: errors.New("corrupt file")}
	b := NewBridge(store, &mockRemote{}, &mockRefresher{}, nil)

	_, err := b.Merge(context.Background())
	require.Error(t, err)
}

func TestBridge_Merge_RefreshFailureKeepsGuestCart(t *testing.T) {
	store := &mockStore{items: []domain.LineItem{guestItem("a", 1, 5)}}
	refresh := &mockRefresher{err: errors.New("backend down")}
	b := NewBridge(store, &mockRemote{}, refresh, nil)

	report, err := b.Merge(context.Background())
	require.Error(t, err)
	assert.Equal(t, Report{Merged: 1}, report)
	assert.False(t, store.cleared)
}
