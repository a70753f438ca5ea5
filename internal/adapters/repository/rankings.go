package repository

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/pkg/metrics"
)

// Rankings is an order-statistics treap over overall ratings.
//
// Ordering: overall DESC, then athlete id ASC. "less" means ranks earlier, so
// in-order traversal yields the table from best to worst. Subtree sizes make
// Rank O(log n) expected.
type Rankings struct {
	mu      sync.RWMutex
	root    *node
	overall map[string]int
	prio    func() uint64
}

// Entry is one row of the rankings table. Athletes on the same overall share a rank.
type Entry struct {
	Rank      int    `json:"rank"`
	AthleteID string `json:"athlete_id"`
	Overall   int    `json:"overall"`
}

type node struct {
	id      string
	overall int
	prio    uint64
	left    *node
	right   *node
	size    int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aOverall, aID) ranks before (bOverall, bID).
func less(aOverall int, aID string, bOverall int, bID string) bool {
	if aOverall != bOverall {
		return aOverall > bOverall
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, overall int, prio uint64) *node {
	if n == nil {
		return &node{id: id, overall: overall, prio: prio, size: 1}
	}
	if less(overall, id, n.overall, n.id) {
		n.left = insert(n.left, id, overall, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, overall, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, overall int) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id && n.overall == overall:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, overall)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, overall)
		}
	case less(overall, id, n.overall, n.id):
		n.left = deleteNode(n.left, id, overall)
	default:
		n.right = deleteNode(n.right, id, overall)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes have an overall strictly greater than overall.
func countAbove(n *node, overall int) int {
	count := 0
	for n != nil {
		if n.overall > overall {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collect appends up to limit entries in rank order.
func collect(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{AthleteID: n.id, Overall: n.overall})
	}
	collect(n.right, limit, out)
}

// NewRankings returns an empty index.
func NewRankings(opts ...Option) *Rankings {
	r := &Rankings{
		overall: make(map[string]int),
		prio:    rand.Uint64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Upsert sets an athlete's overall, repositioning it when it changed.
func (r *Rankings) Upsert(_ context.Context, athleteID string, overall int) {
	r.mu.Lock()
	if old, ok := r.overall[athleteID]; ok {
		if old == overall {
			r.mu.Unlock()
			return
		}
		r.root = deleteNode(r.root, athleteID, old)
	}
	r.overall[athleteID] = overall
	r.root = insert(r.root, athleteID, overall, r.prio())
	n := len(r.overall)
	r.mu.Unlock()

	metrics.UpdateRankedAthletes(n)
}

// Rank returns the athlete's row. Returns ErrNotFound for unranked athletes.
func (r *Rankings) Rank(_ context.Context, athleteID string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	overall, ok := r.overall[athleteID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: 1 + countAbove(r.root, overall), AthleteID: athleteID, Overall: overall}, nil
}

// TopN returns the best n rows.
func (r *Rankings) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(r.overall)))
	collect(r.root, n, &out)
	for i := range out {
		if i > 0 && out[i].Overall == out[i-1].Overall {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out, nil
}

// Count returns the number of ranked athletes.
func (r *Rankings) Count(_ context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.overall)
}

// Rebuild replaces the whole index with rows.
func (r *Rankings) Rebuild(_ context.Context, rows []model.RankedAthlete) {
	var root *node
	overall := make(map[string]int, len(rows))
	for _, row := range rows {
		if old, ok := overall[row.AthleteID]; ok {
			root = deleteNode(root, row.AthleteID, old)
		}
		overall[row.AthleteID] = row.Overall
		root = insert(root, row.AthleteID, row.Overall, r.prio())
	}

	r.mu.Lock()
	r.root, r.overall = root, overall
	r.mu.Unlock()

	metrics.UpdateRankedAthletes(len(overall))
}
