package thread

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func msg(id uint64, ts float64) Message {
	return Message{ID: id, Author: "a", Body: "b", Timestamp: ts}
}

func ids(msgs []Message) []uint64 {
	out := make([]uint64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestAdmitDedupsAcrossPaths(t *testing.T) {
	store := NewStore()
	dm := Direct(42)

	// initial load, live event, backfill, and a mirrored echo of the same id
	store.Admit(dm, msg(1, 10), msg(2, 20))
	if added := store.Admit(dm, msg(2, 20)); len(added) != 0 {
		t.Fatalf("live duplicate admitted: %v", added)
	}
	store.Admit(dm, msg(0, 5), msg(1, 10), msg(3, 30))
	if added := store.Admit(Main(), msg(3, 30)); len(added) != 0 {
		t.Fatalf("cross-thread duplicate admitted: %v", added)
	}

	snap, ok := store.Snapshot(dm)
	if !ok {
		t.Fatal("expected thread to exist")
	}
	if diff := cmp.Diff([]uint64{1, 2, 3}, ids(snap.Messages)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if main, _ := store.Snapshot(Main()); len(main.Messages) != 0 {
		t.Fatalf("expected main thread to stay empty, got %v", ids(main.Messages))
	}
}

func TestAdmitKeepsTimestampOrder(t *testing.T) {
	store := NewStore()
	ref := Channel(7)
	store.Admit(ref, msg(5, 50), msg(1, 10))
	store.Admit(ref, msg(3, 30), msg(4, 30), msg(2, 20))
	store.Admit(ref, msg(9, 30))

	snap, _ := store.Snapshot(ref)
	for i := 1; i < len(snap.Messages); i++ {
		if snap.Messages[i-1].Timestamp > snap.Messages[i].Timestamp {
			t.Fatalf("ordering violated at %d: %v", i, ids(snap.Messages))
		}
	}
	if diff := cmp.Diff([]uint64{1, 2, 3, 4, 9, 5}, ids(snap.Messages)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	oldest, ok := store.Oldest(ref)
	if !ok || oldest.ID != 1 {
		t.Fatalf("unexpected oldest: %+v", oldest)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	store := NewStore()
	ref := Main()
	store.Admit(ref, Message{ID: 1, Timestamp: 1, Attachments: []Attachment{{Kind: AttachmentImage, URL: "u"}}})
	snap, _ := store.Snapshot(ref)
	snap.Messages[0].Attachments[0].URL = "changed"
	store.Admit(ref, msg(2, 2))

	again, _ := store.Snapshot(ref)
	if again.Messages[0].Attachments[0].URL != "u" {
		t.Fatal("snapshot mutation leaked into the store")
	}
	if len(snap.Messages) != 1 {
		t.Fatalf("snapshot should not observe later admits, got %d", len(snap.Messages))
	}
}

func TestStubThreadsBecomeMaterialized(t *testing.T) {
	store := NewStore()
	ref := Direct(9)
	if !store.Ensure(ref, "Peer", true) {
		t.Fatal("expected thread to be created")
	}
	if store.Ensure(ref, "", false) {
		t.Fatal("expected second Ensure to be a no-op")
	}
	summaries := store.Threads()
	if len(summaries) != 1 || !summaries[0].Stub || summaries[0].Name != "Peer" {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
	store.Admit(ref, msg(1, 1))
	if store.Threads()[0].Stub {
		t.Fatal("expected stub flag cleared after content arrived")
	}
}

func TestUnreadTracking(t *testing.T) {
	store := NewStore()
	ref := Direct(3)
	store.Admit(ref, msg(1, 1), msg(2, 2))
	store.MarkUnread(ref, 2)
	store.MarkUnread(Main(), 1)

	if got := store.Threads()[0].Unread; got != 1 {
		t.Fatalf("unread count: got %d want 1", got)
	}
	if !store.MarkRead(ref, 2) {
		t.Fatal("expected MarkRead to report a change")
	}
	if store.MarkRead(ref, 2) {
		t.Fatal("expected second MarkRead to be a no-op")
	}
}

func TestReactionsReplacedWholesale(t *testing.T) {
	store := NewStore()
	store.SetReactions(1, []Reaction{{Symbol: "👍", Count: 2}, {Symbol: "❤️", Count: 1}})
	store.SetReactions(1, []Reaction{{Symbol: "👍", Count: 1}})
	if diff := cmp.Diff([]Reaction{{Symbol: "👍", Count: 1}}, store.Reactions(1)); diff != "" {
		t.Fatalf("reactions mismatch (-want +got):\n%s", diff)
	}
	store.SetReactions(1, nil)
	if got := store.Reactions(1); len(got) != 0 {
		t.Fatalf("expected reactions cleared, got %v", got)
	}
}

func TestNewestSlice(t *testing.T) {
	snap := Snapshot{Messages: []Message{msg(1, 1), msg(2, 2), msg(3, 3)}}
	if diff := cmp.Diff([]uint64{2, 3}, ids(snap.Newest(2))); diff != "" {
		t.Fatalf("newest mismatch (-want +got):\n%s", diff)
	}
	if len(snap.Newest(0)) != 3 || len(snap.Newest(10)) != 3 {
		t.Fatal("expected full slice for non-positive or large limits")
	}
}

func TestLookup(t *testing.T) {
	store := NewStore()
	store.Admit(Channel(5), msg(11, 1))
	ref, m, ok := store.Lookup(11)
	if !ok || ref != Channel(5) || m.ID != 11 {
		t.Fatalf("unexpected lookup: %v %+v %v", ref, m, ok)
	}
	if _, _, ok := store.Lookup(99); ok {
		t.Fatal("expected miss for unknown id")
	}
}
