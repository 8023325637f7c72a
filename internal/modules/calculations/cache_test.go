package calculations

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testCache(t *testing.T) *Cache {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c, err := NewCache(conn)
	require.NoError(t, err)
	return c
}

type payload struct {
	Symbols []string  `msgpack:"symbols"`
	Values  []float64 `msgpack:"values"`
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c := testCache(t)

	in := payload{Symbols: []string{"AAPL", "MSFT"}, Values: []float64{0.1, 0.2}}
	require.NoError(t, c.Set("k", in, time.Hour))

	var out payload
	hit, err := c.Get("k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, in, out)
}

func TestCache_MissingKey(t *testing.T) {
	c := testCache(t)

	var out payload
	hit, err := c.Get("absent", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	c := testCache(t)

	require.NoError(t, c.Set("k", payload{Symbols: []string{"AAPL"}}, -time.Second))

	var out payload
	hit, err := c.Get("k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_SetOverwrites(t *testing.T) {
	c := testCache(t)

	require.NoError(t, c.Set("k", payload{Symbols: []string{"OLD"}}, time.Hour))
	require.NoError(t, c.Set("k", payload{Symbols: []string{"NEW"}}, time.Hour))

	var out payload
	hit, err := c.Get("k", &out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{"NEW"}, out.Symbols)
}

func TestCache_Delete(t *testing.T) {
	c := testCache(t)

	require.NoError(t, c.Set("k", payload{Symbols: []string{"AAPL"}}, time.Hour))
	require.NoError(t, c.Delete("k"))

	var out payload
	hit, err := c.Get("k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_PurgeRemovesOnlyExpired(t *testing.T) {
	c := testCache(t)

	require.NoError(t, c.Set("live", payload{Symbols: []string{"A"}}, time.Hour))
	require.NoError(t, c.Set("dead", payload{Symbols: []string{"B"}}, -time.Hour))
	require.NoError(t, c.Purge())

	var out payload
	hit, err := c.Get("live", &out)
	require.NoError(t, err)
	assert.True(t, hit)

	hit, err = c.Get("dead", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestReturnsModelKey(t *testing.T) {
	// Symbol order must not matter
	a := ReturnsModelKey([]string{"AAPL", "MSFT"}, 180)
	b := ReturnsModelKey([]string{"MSFT", "AAPL"}, 180)
	assert.Equal(t, a, b)

	// Lookback and symbol set both change the key
	assert.NotEqual(t, a, ReturnsModelKey([]string{"AAPL", "MSFT"}, 90))
	assert.NotEqual(t, a, ReturnsModelKey([]string{"AAPL"}, 180))
}
