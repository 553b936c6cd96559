package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type guildStats struct {
	GuildID  string `json:"guild_id"`
	Messages int64  `json:"messages"`
}

func TestDisabledCacheNeverHits(t *testing.T) {
	c := New(Config{})
	c.Set("k", []byte("v"))
	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestJSONRoundTripAndClear(t *testing.T) {
	c := New(Config{SizeMB: 1, TTLSeconds: 60})

	_, ok := GetJSON[guildStats](c, "guild:1")
	require.False(t, ok)

	SetJSON(c, "guild:1", guildStats{GuildID: "1", Messages: 12})
	got, ok := GetJSON[guildStats](c, "guild:1")
	require.True(t, ok)
	require.Equal(t, int64(12), got.Messages)

	c.Clear()
	_, ok = c.Get("guild:1")
	require.False(t, ok)
}

func TestCorruptValueIsAMiss(t *testing.T) {
	c := New(Config{SizeMB: 1, TTLSeconds: 60})
	c.Set("bad", []byte("{"))
	_, ok := GetJSON[guildStats](c, "bad")
	require.False(t, ok)
}
