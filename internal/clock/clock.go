// Package clock implements the hybrid logical clock used to stamp every
// mutation the store commits, giving the change log a total causal order.
package clock

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidClock is the sentinel wrapped by ParseBytes/ParseHex on malformed
// input. Package model re-exports this under model.ErrInvalidClock so
// callers outside this package match on one taxonomy; clock itself stays
// leaf-level and depends on nothing else in this module.
var ErrInvalidClock = errors.New("clock: invalid timestamp")

// Timestamp is a 14-byte causal timestamp: 8-byte wall-clock milliseconds,
// 4-byte logical counter, 2-byte node id. Byte comparison of the serialized
// form equals logical comparison of (Wall, Logical, Node).
type Timestamp struct {
	Wall    uint64
	Logical uint32
	Node    uint16
}

const byteLen = 8 + 4 + 2

// Bytes serializes the timestamp big-endian so that lexicographic byte
// comparison matches (Wall, Logical, Node) comparison.
func (t Timestamp) Bytes() []byte {
	buf := make([]byte, byteLen)
	binary.BigEndian.PutUint64(buf[0:8], t.Wall)
	binary.BigEndian.PutUint32(buf[8:12], t.Logical)
	binary.BigEndian.PutUint16(buf[12:14], t.Node)
	return buf
}

// Hex renders the timestamp as a hex string for logging and transport.
func (t Timestamp) Hex() string {
	return hex.EncodeToString(t.Bytes())
}

// ParseBytes reconstructs a Timestamp from its 14-byte serialized form.
func ParseBytes(b []byte) (Timestamp, error) {
	if len(b) != byteLen {
		return Timestamp{}, fmt.Errorf("%w: want 14 bytes, got %d", ErrInvalidClock, len(b))
	}
	return Timestamp{
		Wall:    binary.BigEndian.Uint64(b[0:8]),
		Logical: binary.BigEndian.Uint32(b[8:12]),
		Node:    binary.BigEndian.Uint16(b[12:14]),
	}, nil
}

// ParseHex reconstructs a Timestamp from its hex-encoded serialized form.
func ParseHex(s string) (Timestamp, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: malformed hex timestamp: %v", ErrInvalidClock, err)
	}
	return ParseBytes(b)
}

// Compare returns -1, 0, or 1 comparing t to other by (Wall, Logical, Node).
func (t Timestamp) Compare(other Timestamp) int {
	switch {
	case t.Wall != other.Wall:
		if t.Wall < other.Wall {
			return -1
		}
		return 1
	case t.Logical != other.Logical:
		if t.Logical < other.Logical {
			return -1
		}
		return 1
	case t.Node != other.Node:
		if t.Node < other.Node {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Less reports whether t happened strictly before other in the total order.
func (t Timestamp) Less(other Timestamp) bool { return t.Compare(other) < 0 }

// Clock is a per-store hybrid logical clock. It is safe for concurrent use.
type Clock struct {
	mu   sync.Mutex
	node uint16
	last Timestamp
	now  func() time.Time
}

// New creates a clock for the given node id that reads wall time from
// time.Now; it starts with no previously produced timestamp.
func New(node uint16) *Clock {
	return &Clock{node: node, now: time.Now}
}

// nowMillis returns the current wall time in milliseconds, clamped to avoid
// ever observing a value that is not representable.
func (c *Clock) nowMillis() uint64 {
	ms := c.now().UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

// Tick produces a fresh local timestamp, strictly greater than every
// timestamp this clock has previously produced or merged.
func (c *Clock) Tick() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowMillis()
	if now > c.last.Wall {
		c.last.Wall = now
		c.last.Logical = 0
	} else {
		c.last.Logical = saturatingIncr(c.last.Logical)
	}
	c.last.Node = c.node
	return c.last
}

// Merge observes a remote timestamp and advances the local clock so that the
// result is causally after both the local state and the remote observation.
func (c *Clock) Merge(remote Timestamp) Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowMillis()
	maxWall := c.last.Wall
	if remote.Wall > maxWall {
		maxWall = remote.Wall
	}

	switch {
	case now > maxWall:
		c.last.Wall = now
		c.last.Logical = 0
	case c.last.Wall == remote.Wall:
		c.last.Logical = max32(c.last.Logical, remote.Logical)
		c.last.Logical = saturatingIncr(c.last.Logical)
	case c.last.Wall > remote.Wall:
		c.last.Logical = saturatingIncr(c.last.Logical)
	default: // c.last.Wall < remote.Wall
		c.last.Wall = remote.Wall
		c.last.Logical = saturatingIncr(remote.Logical)
	}
	c.last.Node = c.node
	return c.last
}

// Watermark returns the highest timestamp this clock has produced so far,
// without advancing it.
func (c *Clock) Watermark() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func saturatingIncr(v uint32) uint32 {
	if v == ^uint32(0) {
		return v
	}
	return v + 1
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
