package client

import (
	"net/http"
	"sync"
	"sync/atomic"
)

type RefreshState int

const (
	Idle RefreshState = iota
	Refreshing
)

func (s RefreshState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	}
	return "unknown"
}

const (
	pendingWaiting int32 = iota
	pendingClaimed
	pendingAbandoned
)

type replayResult struct {
	resp *http.Response
	err  error
}

// PendingRequest is a request that hit an authorization failure while a
// refresh was already in flight. It is consumed exactly once.
type PendingRequest struct {
	req    *http.Request
	state  atomic.Int32
	result chan replayResult
}

func newPendingRequest(req *http.Request) *PendingRequest {
	return &PendingRequest{
		req:    req,
		result: make(chan replayResult, 1),
	}
}

// claim reserves the record for the refresh leader. It fails if the waiting
// caller already gave up.
func (p *PendingRequest) claim() bool {
	return p.state.CompareAndSwap(pendingWaiting, pendingClaimed)
}

// abandon is called by the waiting caller when its context ends. It fails if
// the leader already claimed the record, in which case a result is on its way.
func (p *PendingRequest) abandon() bool {
	return p.state.CompareAndSwap(pendingWaiting, pendingAbandoned)
}

func (p *PendingRequest) resolve(resp *http.Response, err error) {
	p.result <- replayResult{resp: resp, err: err}
}

// RefreshCoordinator holds the refresh state and the queue of requests
// waiting on the in-flight refresh.
type RefreshCoordinator struct {
	mu    sync.Mutex
	state RefreshState
	queue []*PendingRequest
}

func NewRefreshCoordinator() *RefreshCoordinator {
	return &RefreshCoordinator{
		state: Idle,
	}
}

// BeginRefresh moves Idle -> Refreshing. It reports whether the caller
// became the refresh leader.
func (c *RefreshCoordinator) BeginRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Refreshing {
		return false
	}
	c.state = Refreshing
	return true
}

// EndRefresh moves back to Idle and hands the queued requests, in arrival
// order, to the leader.
func (c *RefreshCoordinator) EndRefresh() []*PendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	queued := c.queue
	c.queue = nil
	c.state = Idle
	return queued
}

// Enqueue adds p to the queue of the in-flight refresh. It returns false when
// no refresh is in flight.
func (c *RefreshCoordinator) Enqueue(p *PendingRequest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Refreshing {
		return false
	}
	c.queue = append(c.queue, p)
	return true
}

func (c *RefreshCoordinator) IsRefreshing() bool {
	return c.State() == Refreshing
}

func (c *RefreshCoordinator) State() RefreshState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *RefreshCoordinator) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
