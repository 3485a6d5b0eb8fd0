package clock

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTickMonotonic(t *testing.T) {
	c := New(1)
	var prev []byte
	for i := 0; i < 50; i++ {
		ts := c.Tick()
		cur := ts.Bytes()
		if prev != nil {
			require.Equal(t, -1, bytes.Compare(prev, cur), "serialized bytes must strictly increase")
		}
		prev = cur
	}
}

func TestTickAfterPauseResetsLogical(t *testing.T) {
	fakeNow := time.UnixMilli(1000)
	c := New(1)
	c.now = func() time.Time { return fakeNow }

	first := c.Tick()
	require.Equal(t, uint32(0), first.Logical)

	fakeNow = fakeNow.Add(10 * time.Millisecond)
	second := c.Tick()

	require.GreaterOrEqual(t, second.Wall-first.Wall, uint64(10))
	require.Equal(t, uint32(0), second.Logical)
}

func TestTickSameMillisIncrementsLogical(t *testing.T) {
	fakeNow := time.UnixMilli(5000)
	c := New(1)
	c.now = func() time.Time { return fakeNow }

	a := c.Tick()
	b := c.Tick()
	require.Equal(t, a.Wall, b.Wall)
	require.Equal(t, a.Logical+1, b.Logical)
}

func TestMergeRules(t *testing.T) {
	t.Run("remote wall ahead of now and local", func(t *testing.T) {
		c := New(1)
		c.now = func() time.Time { return time.UnixMilli(100) }
		got := c.Merge(Timestamp{Wall: 500, Logical: 7, Node: 2})
		require.Equal(t, uint64(500), got.Wall)
		require.Equal(t, uint32(8), got.Logical)
	})

	t.Run("equal wall takes max logical plus one", func(t *testing.T) {
		c := New(1)
		c.now = func() time.Time { return time.UnixMilli(0) }
		c.last = Timestamp{Wall: 200, Logical: 3, Node: 1}
		got := c.Merge(Timestamp{Wall: 200, Logical: 9, Node: 2})
		require.Equal(t, uint64(200), got.Wall)
		require.Equal(t, uint32(10), got.Logical)
	})

	t.Run("local wall ahead of remote", func(t *testing.T) {
		c := New(1)
		c.now = func() time.Time { return time.UnixMilli(0) }
		c.last = Timestamp{Wall: 300, Logical: 4, Node: 1}
		got := c.Merge(Timestamp{Wall: 250, Logical: 99, Node: 2})
		require.Equal(t, uint64(300), got.Wall)
		require.Equal(t, uint32(5), got.Logical)
	})

	t.Run("now advances past both", func(t *testing.T) {
		c := New(1)
		c.now = func() time.Time { return time.UnixMilli(1000) }
		c.last = Timestamp{Wall: 300, Logical: 4, Node: 1}
		got := c.Merge(Timestamp{Wall: 250, Logical: 99, Node: 2})
		require.Equal(t, uint64(1000), got.Wall)
		require.Equal(t, uint32(0), got.Logical)
	})
}

func TestTotalOrderViaBytes(t *testing.T) {
	a := Timestamp{Wall: 10, Logical: 1, Node: 1}
	b := Timestamp{Wall: 10, Logical: 1, Node: 2}
	c := Timestamp{Wall: 10, Logical: 2, Node: 1}
	d := Timestamp{Wall: 11, Logical: 0, Node: 1}

	require.True(t, a.Less(b))
	require.Equal(t, -1, bytes.Compare(a.Bytes(), b.Bytes()))

	require.True(t, b.Less(c))
	require.Equal(t, -1, bytes.Compare(b.Bytes(), c.Bytes()))

	require.True(t, c.Less(d))
	require.Equal(t, -1, bytes.Compare(c.Bytes(), d.Bytes()))
}

func TestRoundTripBytesAndHex(t *testing.T) {
	ts := Timestamp{Wall: 1234567890, Logical: 42, Node: 7}
	parsed, err := ParseBytes(ts.Bytes())
	require.NoError(t, err)
	require.Equal(t, ts, parsed)

	parsedHex, err := ParseHex(ts.Hex())
	require.NoError(t, err)
	require.Equal(t, ts, parsedHex)
}

func TestParseBytesInvalidLength(t *testing.T) {
	_, err := ParseBytes([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestParseHexInvalid(t *testing.T) {
	_, err := ParseHex("not-hex")
	require.Error(t, err)
}

func TestCounterSaturates(t *testing.T) {
	c := New(1)
	c.now = func() time.Time { return time.UnixMilli(0) }
	c.last = Timestamp{Wall: 0, Logical: ^uint32(0), Node: 1}
	got := c.Tick()
	require.Equal(t, ^uint32(0), got.Logical)
}
