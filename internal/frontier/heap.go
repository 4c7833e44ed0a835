package frontier

import "strings"

// ticketItem is one entry in the priority heap: a ticket plus the
// insertion sequence number used as the final tie-break.
type ticketItem struct {
	ticket UrlTicket
	seq    uint64
	index  int
}

// priorityHeap implements container/heap.Interface, ordered per spec
// §4.1: "(priority_score, -depth, insertion_order)" — highest priority
// first, ties broken by lower depth, then earlier insertion order.
type priorityHeap []*ticketItem

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.ticket.Priority != b.ticket.Priority {
		return a.ticket.Priority > b.ticket.Priority
	}
	if a.ticket.Depth != b.ticket.Depth {
		return a.ticket.Depth < b.ticket.Depth
	}
	return a.seq < b.seq
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priorityHeap) Push(x any) {
	item := x.(*ticketItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// computePriority implements spec §4.1's three additive components, each
// clamped to its stated range before summing: a structural URL-shape
// prior in [0,1], a gap-prediction boost up to +0.3, and a
// problem-cluster penalty up to -0.2.
func computePriority(depth int, path string, gapBoost, problemPenalty float64) float64 {
	structural := clamp(1.0-float64(depth)*0.15, 0, 1)
	if looksLikeHubPath(path) {
		structural = clamp(structural+0.2, 0, 1)
	}

	score := structural + clamp(gapBoost, 0, 0.3) - clamp(problemPenalty, 0, 0.2)
	return score
}

// looksLikeHubPath is a cheap structural signal: short paths with few
// segments tend to be section/hub pages rather than deep article leaves.
func looksLikeHubPath(path string) bool {
	segments := 0
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" {
			segments++
		}
	}
	return segments <= 2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
