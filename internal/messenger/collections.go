package messenger

import (
	"slices"
	"strings"

	"switchscan/internal/scan"
	"switchscan/internal/thread"
)

// messageList shows the newest messages of one thread, newest first, so
// scanning forward moves back in time.
type messageList struct {
	u         *ui
	ref       thread.Ref
	msgs      []thread.Message
	total     int
	limit     int
	requested int
	vp        *scan.LineViewport
}

func newMessageList(u *ui, ref thread.Ref) *messageList {
	l := &messageList{u: u, ref: ref, limit: u.renderLimit(ref)}
	l.vp = scan.NewLineViewport(nil, u.rows, true)
	l.reload()
	return l
}

func (u *ui) renderLimit(ref thread.Ref) int {
	if ref.IsDirect() {
		return u.limits.DMRenderLimit
	}
	return u.limits.ChannelRenderLimit
}

func (u *ui) backfillBatch(ref thread.Ref) int {
	if ref.IsDirect() {
		return u.limits.DMBackfillBatch
	}
	return u.limits.ChannelBackfillBatch
}

func (l *messageList) reload() {
	snap, _ := l.u.store.Snapshot(l.ref)
	l.total = len(snap.Messages)
	shown := snap.Newest(l.limit)
	l.msgs = make([]thread.Message, len(shown))
	heights := make([]int, len(shown))
	for i := range shown {
		m := shown[len(shown)-1-i]
		l.msgs[i] = m
		heights[i] = 1 + strings.Count(m.Body, "\n") + 1
	}
	l.vp.SetHeights(heights)
}

func (l *messageList) indexOf(id uint64) int {
	return slices.IndexFunc(l.msgs, func(m thread.Message) bool { return m.ID == id })
}

func (l *messageList) Len() int { return len(l.msgs) }

func (l *messageList) Label(i int) string { return MessageHeader(l.msgs[i], l.u.loc) }

func (l *messageList) Activate(i int) scan.Result { return l.u.actions(l.ref, l.msgs[i]) }

func (l *messageList) Viewport() scan.Viewport { return l.vp }

// Focused grows the list when the oldest shown message is reached. Stored
// history beyond the render limit is revealed first; after that a direct
// thread asks the synchronizer for an older batch.
func (l *messageList) Focused(i int) {
	if i != len(l.msgs)-1 {
		return
	}
	batch := l.u.backfillBatch(l.ref)
	if batch <= 0 {
		return
	}
	if l.total > len(l.msgs) {
		l.limit += batch
		l.reload()
		return
	}
	if !l.ref.IsDirect() || !l.u.limits.EnableScrollBackfill {
		return
	}
	k := l.total + batch
	if k <= l.requested {
		return
	}
	l.requested = k
	l.limit = max(l.limit, k)
	l.u.backfill(l.ref, k)
}
