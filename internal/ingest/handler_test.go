package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"TokenRadar/internal/dexscreener"
	"TokenRadar/internal/model"
	"TokenRadar/internal/recorder"
	"TokenRadar/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddr = "So11111111111111111111111111111111111111112"

type fakeLookup struct {
	quote *dexscreener.Quote
	err   error
	calls int
}

func (f *fakeLookup) SingleLookup(ctx context.Context, address string) (*dexscreener.Quote, error) {
	f.calls++
	return f.quote, f.err
}

func newHandlerFixture(t *testing.T, quote *dexscreener.Quote) (*Handler, *fakeLookup) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "state.json"), model.Settings{InvestAmount: 7, DelayMinutes: 2})
	require.NoError(t, err)
	gw := &fakeLookup{quote: quote}
	return NewHandler(st, gw, recorder.NewNoopRecorder(), 20000), gw
}

func TestHandle_NewTokenAboveThreshold(t *testing.T) {
	h, gw := newHandlerFixture(t, &dexscreener.Quote{
		Address: testAddr, Name: "Test Token", Symbol: "TEST", Price: 0.001, Value: 25000,
	})

	err := h.Handle(context.Background(), Event{
		Address: testAddr, ChannelName: "@alpha", Link: "https://t.me/alpha/1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, gw.calls)

	tok, ok := h.Store.Get(testAddr)
	require.True(t, ok)
	assert.Equal(t, "TEST", tok.Symbol)
	assert.Equal(t, 25000.0, tok.EntryValue)
	assert.Equal(t, 25000.0, tok.PeakValue)
	assert.Equal(t, model.TrendStable, tok.Trend)
	require.Len(t, tok.Mentions, 1)
	assert.Equal(t, "@alpha", tok.Mentions[0].Channel)
}

func TestHandle_BelowEntryThresholdIgnored(t *testing.T) {
	h, _ := newHandlerFixture(t, &dexscreener.Quote{
		Address: testAddr, Symbol: "DUST", Price: 0.0001, Value: 12000,
	})

	require.NoError(t, h.Handle(context.Background(), Event{Address: testAddr, ChannelName: "@alpha"}))
	assert.Equal(t, 0, h.Store.Len())
}

func TestHandle_UnknownAddressNoQuote(t *testing.T) {
	h, _ := newHandlerFixture(t, nil)
	require.NoError(t, h.Handle(context.Background(), Event{Address: testAddr, ChannelName: "@alpha"}))
	assert.Equal(t, 0, h.Store.Len())
}

func TestHandle_DuplicateChannelIsIdempotent(t *testing.T) {
	h, gw := newHandlerFixture(t, &dexscreener.Quote{
		Address: testAddr, Symbol: "TEST", Price: 0.001, Value: 25000,
	})
	evt := Event{Address: testAddr, ChannelName: "@alpha"}

	require.NoError(t, h.Handle(context.Background(), evt))
	require.NoError(t, h.Handle(context.Background(), evt))

	tok, _ := h.Store.Get(testAddr)
	assert.Len(t, tok.Mentions, 1)
	// A known token never triggers another price lookup.
	assert.Equal(t, 1, gw.calls)
}

func TestHandle_SecondChannelAppends(t *testing.T) {
	h, _ := newHandlerFixture(t, &dexscreener.Quote{
		Address: testAddr, Symbol: "TEST", Price: 0.001, Value: 25000,
	})

	require.NoError(t, h.Handle(context.Background(), Event{Address: testAddr, ChannelName: "@alpha"}))
	require.NoError(t, h.Handle(context.Background(), Event{Address: testAddr, ChannelName: "@beta", Timestamp: time.Now()}))

	tok, _ := h.Store.Get(testAddr)
	require.Len(t, tok.Mentions, 2)
	assert.Equal(t, "@beta", tok.Mentions[1].Channel)
}

func TestHandle_LookupErrorPropagates(t *testing.T) {
	h, gw := newHandlerFixture(t, nil)
	gw.err = errors.New("provider down")

	err := h.Handle(context.Background(), Event{Address: testAddr, ChannelName: "@alpha"})
	assert.Error(t, err)
}

func TestHandle_RejectsIncompleteEvent(t *testing.T) {
	h, _ := newHandlerFixture(t, nil)
	assert.Error(t, h.Handle(context.Background(), Event{Address: testAddr}))
	assert.Error(t, h.Handle(context.Background(), Event{ChannelName: "@alpha"}))
}

func TestHandle_ExtractsAddressFromText(t *testing.T) {
	h, _ := newHandlerFixture(t, &dexscreener.Quote{
		Address: testAddr, Symbol: "TEST", Price: 0.001, Value: 25000,
	})

	err := h.Handle(context.Background(), Event{
		Address:     "ape this gem " + testAddr + " before it moons",
		ChannelName: "@alpha",
	})
	require.NoError(t, err)
	_, ok := h.Store.Get(testAddr)
	assert.True(t, ok)
}

func TestHandle_RejectsUnparseableAddress(t *testing.T) {
	h, gw := newHandlerFixture(t, nil)
	err := h.Handle(context.Background(), Event{Address: "0xdeadbeef", ChannelName: "@alpha"})
	assert.Error(t, err)
	assert.Equal(t, 0, gw.calls)
}

func TestAddressPattern(t *testing.T) {
	text := "ape this " + testAddr + " now"
	assert.Equal(t, testAddr, AddressPattern.FindString(text))
	assert.Empty(t, AddressPattern.FindString("no address here 0x0000"))
}
