package conversation

import (
	"time"

	contractx "github.com/medassist-io/medassist/agent/contract"
)

const DefaultWindow = 5

// Context is the bounded, ordered conversation buffer for one session.
// It keeps at most `window` turns: appends go to the tail and the oldest
// turns are dropped FIFO once the window overflows, preserving relative
// order of the survivors.
//
// A Context is not safe for concurrent use. Concurrent messages within one
// session must be serialized by the caller; Manager provides the
// per-session single-flight lock for that.
type Context struct {
	sessionID  string
	window     int
	turns      []contractx.Turn
	seq        int
	lastActive time.Time
}

func NewContext(sessionID string, window int, now time.Time) *Context {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Context{
		sessionID:  sessionID,
		window:     window,
		turns:      make([]contractx.Turn, 0, window),
		lastActive: now.UTC(),
	}
}

func (c *Context) SessionID() string {
	return c.sessionID
}

// Append inserts a turn at the tail, assigns its sequence index, and trims
// the buffer to the window size. A tool observation is only meaningful
// after the assistant turn that requested it, so when trimming cuts that
// pair apart the orphaned observations at the head are dropped too.
func (c *Context) Append(turn contractx.Turn) contractx.Turn {
	turn.Seq = c.seq
	c.seq++
	c.turns = append(c.turns, turn)
	if len(c.turns) > c.window {
		keep := c.turns[len(c.turns)-c.window:]
		for len(keep) > 0 && keep[0].Role == contractx.RoleTool {
			keep = keep[1:]
		}
		c.turns = append(c.turns[:0:0], keep...)
	}
	return turn
}

// Snapshot returns a copy of the current ordered sequence, used as
// inference input.
func (c *Context) Snapshot() []contractx.Turn {
	out := make([]contractx.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Context) Len() int {
	return len(c.turns)
}

func (c *Context) LastActive() time.Time {
	return c.lastActive
}

func (c *Context) Touch(now time.Time) {
	c.lastActive = now.UTC()
}
