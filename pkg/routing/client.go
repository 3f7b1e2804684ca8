package routing

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"
)

// DefaultSnapRadius is the snap radius of a new Client, in meters.
const DefaultSnapRadius = 1000

// ErrNotTravelTime is returned by Client.TravelTime when the index weight
// is geo distance.
var ErrNotTravelTime = errors.New("index is not weighted by travel time")

// Client is a goroutine-safe facade over a Service. Each call borrows a
// free query slot for its duration and blocks until one is available.
type Client struct {
	svc   *Service
	slots chan int

	mu         sync.RWMutex
	snapRadius float64
}

// NewClient returns a Client using every slot of svc.
func NewClient(svc *Service) *Client {
	slots := make(chan int, svc.Concurrency())
	for i := 0; i < svc.Concurrency(); i++ {
		slots <- i
	}
	return &Client{svc: svc, slots: slots, snapRadius: DefaultSnapRadius}
}

// Service returns the underlying service.
func (c *Client) Service() *Service { return c.svc }

// SetSnapRadius changes the radius, in meters, used to snap every point.
func (c *Client) SetSnapRadius(meters float64) {
	c.mu.Lock()
	c.snapRadius = meters
	c.mu.Unlock()
}

// SnapRadius returns the current snap radius in meters.
func (c *Client) SnapRadius() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapRadius
}

// withSlot runs fn with a borrowed slot. It gives up when ctx is done
// before a slot frees up; a running fn is never interrupted.
func (c *Client) withSlot(ctx context.Context, fn func(slot int, radius float64) error) error {
	var slot int
	select {
	case slot = <-c.slots:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { c.slots <- slot }()
	return fn(slot, c.SnapRadius())
}

// Route returns the shortest path cost between from and to along with the
// path as points.
func (c *Client) Route(ctx context.Context, from, to Point) (uint32, []Point, error) {
	var resp QueryResponse
	err := c.withSlot(ctx, func(slot int, radius float64) (err error) {
		resp, err = c.svc.Query(slot, radius, from, to, true)
		return err
	})
	return resp.Distance, resp.Waypoints, err
}

// Distance returns the shortest path cost between from and to.
func (c *Client) Distance(ctx context.Context, from, to Point) (uint32, error) {
	var resp QueryResponse
	err := c.withSlot(ctx, func(slot int, radius float64) (err error) {
		resp, err = c.svc.Query(slot, radius, from, to, false)
		return err
	})
	return resp.Distance, err
}

// TravelTime is Distance as a duration. ok is false when the pair is
// unreachable.
func (c *Client) TravelTime(ctx context.Context, from, to Point) (d time.Duration, ok bool, err error) {
	if !c.svc.graph.Profile.UseTravelTime {
		return 0, false, ErrNotTravelTime
	}
	ms, err := c.Distance(ctx, from, to)
	if err != nil || ms == Unreachable {
		return 0, false, err
	}
	return time.Duration(ms) * time.Millisecond, true, nil
}

// Nearest returns the closest road network point within the snap radius.
func (c *Client) Nearest(ctx context.Context, p Point) (Point, bool, error) {
	var (
		sn Snapped
		ok bool
	)
	err := c.withSlot(ctx, func(slot int, radius float64) (err error) {
		sn, ok, err = c.svc.Nearest(slot, radius, p.Lon, p.Lat)
		return err
	})
	return sn.Point, ok, err
}

// Distances returns the cost from source to each target, in target order.
func (c *Client) Distances(ctx context.Context, source Point, targets []Point) ([]uint32, error) {
	var out []uint32
	err := c.withSlot(ctx, func(slot int, radius float64) (err error) {
		out, err = c.svc.Distances(slot, radius, source, targets)
		return err
	})
	return out, err
}

type matrixRow struct {
	i         int
	distances []uint32
	err       error
}

// Matrix returns the costs from every source to every target. Rows are
// computed in parallel, one Distances call each.
func (c *Client) Matrix(ctx context.Context, sources, targets []Point) ([][]uint32, error) {
	matrix := make([][]uint32, len(sources))
	if len(sources) == 0 {
		return matrix, nil
	}

	workers := make(chan struct{}, runtime.GOMAXPROCS(0))
	results := make(chan matrixRow, len(sources))
	go func() {
		for i, source := range sources {
			workers <- struct{}{}
			go func(i int, source Point) {
				defer func() { <-workers }()
				d, err := c.Distances(ctx, source, targets)
				results <- matrixRow{i: i, distances: d, err: err}
			}(i, source)
		}
	}()

	var firstErr error
	for range sources {
		row := <-results
		if row.err != nil && firstErr == nil {
			firstErr = row.err
		}
		matrix[row.i] = row.distances
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return matrix, nil
}
