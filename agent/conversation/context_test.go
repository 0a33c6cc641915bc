package conversation

import (
	"fmt"
	"testing"
	"time"

	contractx "github.com/medassist-io/medassist/agent/contract"
)

func TestAppendAssignsIncreasingSeq(t *testing.T) {
	t.Parallel()

	c := NewContext("s1", 3, time.Now())
	for i := 0; i < 4; i++ {
		turn := c.Append(contractx.Turn{Role: contractx.RoleUser, Content: fmt.Sprintf("m%d", i)})
		if turn.Seq != i {
			t.Fatalf("expected seq %d, got %d", i, turn.Seq)
		}
	}
}

func TestAppendTrimsOldestFirst(t *testing.T) {
	t.Parallel()

	c := NewContext("s1", 3, time.Now())
	for i := 0; i < 7; i++ {
		c.Append(contractx.Turn{Role: contractx.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	turns := c.Snapshot()
	if len(turns) != 3 {
		t.Fatalf("expected window of 3 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		want := fmt.Sprintf("m%d", 4+i)
		if turn.Content != want {
			t.Fatalf("turn %d: expected content %q, got %q", i, want, turn.Content)
		}
		if i > 0 && turns[i-1].Seq >= turn.Seq {
			t.Fatalf("sequence order broken at index %d: %d then %d", i, turns[i-1].Seq, turn.Seq)
		}
	}
}

func TestAppendDropsOrphanedObservations(t *testing.T) {
	t.Parallel()

	c := NewContext("s1", 3, time.Now())
	c.Append(contractx.Turn{Role: contractx.RoleUser, Content: "question"})
	c.Append(contractx.Turn{
		Role: contractx.RoleAssistant,
		ToolCalls: []contractx.ToolCall{
			{ID: "call-1", Name: "lookup"},
			{ID: "call-2", Name: "lookup_other"},
		},
	})
	c.Append(contractx.Turn{Role: contractx.RoleTool, Content: "obs-1", ToolCallID: "call-1"})
	c.Append(contractx.Turn{Role: contractx.RoleTool, Content: "obs-2", ToolCallID: "call-2"})
	// Trimming to the window would start the buffer at an observation;
	// observations without their request turn must be dropped with it.
	c.Append(contractx.Turn{Role: contractx.RoleUser, Content: "next question"})

	turns := c.Snapshot()
	if len(turns) == 0 || turns[0].Role == contractx.RoleTool {
		t.Fatalf("buffer must not start with a tool turn: %+v", turns)
	}
	for _, turn := range turns {
		if turn.Role == contractx.RoleTool {
			t.Fatalf("expected no orphaned tool turn, got %+v", turn)
		}
	}
	if turns[len(turns)-1].Content != "next question" {
		t.Fatalf("expected the newest turn at the tail, got %+v", turns[len(turns)-1])
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	c := NewContext("s1", 5, time.Now())
	c.Append(contractx.Turn{Role: contractx.RoleUser, Content: "hello"})

	snap := c.Snapshot()
	snap[0].Content = "mutated"

	if got := c.Snapshot()[0].Content; got != "hello" {
		t.Fatalf("snapshot mutation leaked into the buffer: %q", got)
	}
}

func TestNewContextDefaultsWindow(t *testing.T) {
	t.Parallel()

	c := NewContext("s1", 0, time.Now())
	for i := 0; i < DefaultWindow+2; i++ {
		c.Append(contractx.Turn{Role: contractx.RoleUser, Content: "x"})
	}
	if c.Len() != DefaultWindow {
		t.Fatalf("expected default window %d, got %d", DefaultWindow, c.Len())
	}
}
