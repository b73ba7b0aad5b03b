package drc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheNewThenInProgress(t *testing.T) {
	c := New()
	key := Key{XID: 1, ClientAddr: "10.0.0.1:111"}

	state, reply := c.Check(key)
	assert.Equal(t, New, state)
	assert.Nil(t, reply)

	state, reply = c.Check(key)
	assert.Equal(t, InProgress, state)
	assert.Nil(t, reply)
}

func TestCacheRecordResponseThenReplay(t *testing.T) {
	c := New()
	key := Key{XID: 42, ClientAddr: "10.0.0.1:111"}

	state, _ := c.Check(key)
	require.Equal(t, New, state)

	reply := []byte{0xde, 0xad, 0xbe, 0xef}
	c.RecordResponse(key, reply)

	state, cached := c.Check(key)
	assert.Equal(t, Completed, state)
	assert.Equal(t, reply, cached)
}

func TestCacheDistinctKeysDoNotCollide(t *testing.T) {
	c := New()
	a := Key{XID: 1, ClientAddr: "10.0.0.1:111"}
	b := Key{XID: 1, ClientAddr: "10.0.0.2:111"}

	state, _ := c.Check(a)
	assert.Equal(t, New, state)

	state, _ = c.Check(b)
	assert.Equal(t, New, state, "same xid from a different client must not collide")
}

func TestCacheExpiresByTTL(t *testing.T) {
	c := New(WithTTL(time.Millisecond))
	key := Key{XID: 7, ClientAddr: "10.0.0.1:111"}

	c.Check(key)
	c.RecordResponse(key, []byte("ok"))

	time.Sleep(5 * time.Millisecond)

	state, reply := c.Check(key)
	assert.Equal(t, New, state, "expired entry should be treated as new")
	assert.Nil(t, reply)
}

func TestCacheEvictsOverflowByLRU(t *testing.T) {
	c := New(WithMaxEntries(shardCount)) // one entry per shard

	key := Key{XID: 1, ClientAddr: "client-a"}
	c.Check(key)
	c.RecordResponse(key, []byte("first"))

	// Force more entries than the per-shard budget into the same shard by
	// reusing the same client address with different XIDs, which may or may
	// not land in the same shard; instead verify the cache never exceeds its
	// configured budget across many insertions.
	for i := uint32(2); i < 5000; i++ {
		k := Key{XID: i, ClientAddr: "client-a"}
		c.Check(k)
		c.RecordResponse(k, []byte("x"))
	}

	assert.LessOrEqual(t, c.Len(), shardCount)
}

func TestCacheRecordResponseAfterEviction(t *testing.T) {
	c := New()
	key := Key{XID: 9, ClientAddr: "10.0.0.1:111"}

	// RecordResponse with no prior Check should not panic; it should create
	// the entry directly in Completed state.
	c.RecordResponse(key, []byte("late"))

	state, reply := c.Check(key)
	assert.Equal(t, Completed, state)
	assert.Equal(t, []byte("late"), reply)
}
