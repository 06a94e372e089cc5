// cluster.go
package qureg

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
	"golang.org/x/sync/errgroup"
)

/*
envelope is one message on the cluster fabric. Exchanges carry amps,
reductions carry value, and the root answers reductions with value or err.
*/
type envelope struct {
	from  int
	seq   uint64
	tag   string
	amps  []complex128
	value complex128
	err   error
}

/*
	Cluster is an in-process fabric of cooperating ranks.

It plays the role an MPI communicator plays for a multi-process simulator:
each rank gets an Endpoint, and ranks run as goroutines that talk only
through the endpoint's Exchange and AllReduceSum. No amplitude memory is
shared between ranks; every exchange ships a private copy.

Wiring:
  - links[from][to] is a one-slot channel per ordered rank pair, used by Exchange
  - reduce gathers contributions on rank 0
  - results fans the reduced value back out, one channel per rank
*/
type Cluster struct {
	ID string

	size    int
	config  *Config
	links   [][]chan envelope
	reduce  chan envelope
	results []chan envelope

	endpoints []*endpoint
	done      chan struct{}
	closeOnce sync.Once
}

/*
	NewCluster creates a fabric for size ranks.

Parameters:
  - size: number of ranks, a power of two
  - config: optional; only LockstepCheck is read. Nil means NewConfig().

Returns:
  - *Cluster: the fabric, ready for Endpoint or Run
  - error: ErrInvalidConfig if size is not a positive power of two
*/
func NewCluster(size int, config *Config) (*Cluster, error) {
	if size < 1 || size&(size-1) != 0 {
		return nil, fmt.Errorf("cluster size %d is not a power of two: %w", size, ErrInvalidConfig)
	}

	if config == nil {
		config = NewConfig()
	}

	c := &Cluster{
		ID:        uuid.NewString(),
		size:      size,
		config:    config,
		links:     make([][]chan envelope, size),
		reduce:    make(chan envelope, size),
		results:   make([]chan envelope, size),
		endpoints: make([]*endpoint, size),
		done:      make(chan struct{}),
	}

	for from := 0; from < size; from++ {
		c.links[from] = make([]chan envelope, size)
		for to := 0; to < size; to++ {
			if from != to {
				c.links[from][to] = make(chan envelope, 1)
			}
		}
		c.results[from] = make(chan envelope, 1)
		c.endpoints[from] = &endpoint{
			cluster: c,
			rank:    from,
			pairSeq: make([]uint64, size),
		}
	}

	errnie.Info("NewCluster - id %s, size %d, lockstep check %v", c.ID, size, config.LockstepCheck)
	return c, nil
}

// Size returns the number of ranks.
func (c *Cluster) Size() int {
	return c.size
}

// Endpoint returns the Communicator of one rank.
func (c *Cluster) Endpoint(rank int) (Communicator, error) {
	if rank < 0 || rank >= c.size {
		return nil, fmt.Errorf("rank %d outside cluster %s of size %d: %w", rank, c.ID, c.size, ErrInvalidConfig)
	}
	return c.endpoints[rank], nil
}

/*
Run executes fn once per rank, each on its own goroutine, and waits for all
of them. The first rank to fail closes the cluster, so peers blocked in an
exchange or reduction return ErrClusterClosed instead of hanging; the first
error is returned. Cancelling ctx closes the cluster as well.
*/
func (c *Cluster) Run(ctx context.Context, fn func(comm Communicator) error) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-stop:
		}
	}()

	var g errgroup.Group

	for rank := 0; rank < c.size; rank++ {
		ep := c.endpoints[rank]

		g.Go(func() error {
			if err := fn(ep); err != nil {
				c.Close()
				return fmt.Errorf("rank %d: %w", ep.rank, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Close shuts the fabric down. Blocked and future calls return ErrClusterClosed.
func (c *Cluster) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		errnie.Info("Cluster.Close - id %s", c.ID)
	})
}

func (c *Cluster) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// broadcast hands the reduced value to every non-root rank.
func (c *Cluster) broadcast(env envelope) error {
	for rank := 1; rank < c.size; rank++ {
		select {
		case c.results[rank] <- env:
		case <-c.done:
			return ErrClusterClosed
		}
	}
	return nil
}

/*
endpoint is one rank's view of the cluster. It is used by exactly one
goroutine, so its counters need no locking.
*/
type endpoint struct {
	cluster   *Cluster
	rank      int
	pairSeq   []uint64
	reduceSeq uint64
	tag       string
}

// setTag names the operation behind the next collective call.
func (e *endpoint) setTag(op string) {
	e.tag = op
}

// fabricID names the cluster this endpoint belongs to.
func (e *endpoint) fabricID() string { return e.cluster.ID }

func (e *endpoint) Rank() int { return e.rank }
func (e *endpoint) Size() int { return e.cluster.size }

func (e *endpoint) Exchange(partner int, send, recv []complex128) error {
	c := e.cluster

	if partner < 0 || partner >= c.size || partner == e.rank {
		return fmt.Errorf("rank %d cannot exchange with rank %d: %w", e.rank, partner, ErrInvalidConfig)
	}

	if len(send) != len(recv) {
		return fmt.Errorf("exchange buffers differ in length (%d != %d): %w", len(send), len(recv), ErrInvalidConfig)
	}

	if c.closed() {
		return ErrClusterClosed
	}

	out := envelope{
		from: e.rank,
		seq:  e.pairSeq[partner],
		tag:  e.tag,
		amps: append([]complex128(nil), send...),
	}
	e.pairSeq[partner]++

	errnie.Debug("exchange - rank %d -> %d, seq %d, %d amplitudes", e.rank, partner, out.seq, len(send))

	select {
	case c.links[e.rank][partner] <- out:
	case <-c.done:
		return ErrClusterClosed
	}

	var in envelope
	select {
	case in = <-c.links[partner][e.rank]:
	case <-c.done:
		return ErrClusterClosed
	}

	if c.config.LockstepCheck && (in.seq != out.seq || in.tag != out.tag || len(in.amps) != len(recv)) {
		errnie.Warn(
			"exchange - lockstep violation between rank %d (%s #%d) and rank %d (%s #%d)",
			e.rank, out.tag, out.seq, partner, in.tag, in.seq,
		)
		return fmt.Errorf(
			"exchange %s #%d between ranks %d and %d met %s #%d: %w",
			out.tag, out.seq, e.rank, partner, in.tag, in.seq, ErrLockstepViolation,
		)
	}

	copy(recv, in.amps)
	return nil
}

func (e *endpoint) AllReduceSum(v complex128) (complex128, error) {
	c := e.cluster

	if c.closed() {
		return 0, ErrClusterClosed
	}

	seq := e.reduceSeq
	e.reduceSeq++

	if c.size == 1 {
		return v, nil
	}

	if e.rank != 0 {
		select {
		case c.reduce <- envelope{from: e.rank, seq: seq, tag: e.tag, value: v}:
		case <-c.done:
			return 0, ErrClusterClosed
		}

		select {
		case res := <-c.results[e.rank]:
			return res.value, res.err
		case <-c.done:
			return 0, ErrClusterClosed
		}
	}

	values := make([]complex128, c.size)
	values[0] = v

	var mismatch error

	for received := 1; received < c.size; received++ {
		var in envelope
		select {
		case in = <-c.reduce:
		case <-c.done:
			return 0, ErrClusterClosed
		}

		if c.config.LockstepCheck && (in.seq != seq || in.tag != e.tag) && mismatch == nil {
			errnie.Warn(
				"allreduce - lockstep violation, rank %d at %s #%d, root at %s #%d",
				in.from, in.tag, in.seq, e.tag, seq,
			)
			mismatch = fmt.Errorf(
				"reduction %s #%d: rank %d issued %s #%d: %w",
				e.tag, seq, in.from, in.tag, in.seq, ErrLockstepViolation,
			)
		}
		values[in.from] = in.value
	}

	// Summed in rank order so every rank sees the same bits.
	var sum complex128
	for _, x := range values {
		sum += x
	}

	if err := c.broadcast(envelope{seq: seq, value: sum, err: mismatch}); err != nil {
		return 0, err
	}

	return sum, mismatch
}
