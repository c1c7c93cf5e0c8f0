package returns

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/pathengine/path"
)

func newPath(id uint16) *path.Path {
	return path.New(id, nil, nil, nil)
}

func TestDrain_EmptyReturnsZero(t *testing.T) {
	p := New(time.Millisecond, 5)
	n := p.Drain(func(*path.Path) {})
	assert.Equal(t, 0, n)
}

func TestDrain_VisitsEveryPushedPath(t *testing.T) {
	p := New(time.Second, 1)
	for i := uint16(1); i <= 10; i++ {
		p.Push(newPath(i))
	}

	var seen []uint16
	n := p.Drain(func(pp *path.Path) { seen = append(seen, pp.ID) })
	assert.Equal(t, 10, n)
	assert.Len(t, seen, 10)
}

func TestDrain_RestoresFIFOOrderDespiteLIFOPush(t *testing.T) {
	p := New(time.Second, 1)
	p.Push(newPath(1))
	p.Push(newPath(2))
	p.Push(newPath(3))

	var order []uint16
	p.Drain(func(pp *path.Path) { order = append(order, pp.ID) })
	assert.Equal(t, []uint16{1, 2, 3}, order)
}

func TestDrain_GuaranteesMinimumReturnsEvenPastBudget(t *testing.T) {
	p := New(time.Nanosecond, 5) // budget expires essentially immediately
	for i := uint16(1); i <= 5; i++ {
		p.Push(newPath(i))
	}
	time.Sleep(time.Millisecond) // make sure the deadline has passed

	n := p.Drain(func(*path.Path) {})
	assert.Equal(t, 5, n, "minReturns must be honored even though the budget already expired")
}

func TestDrain_SuccessiveCallsTogetherVisitEveryPathOnce(t *testing.T) {
	p := New(time.Second, 2)
	for i := uint16(1); i <= 6; i++ {
		p.Push(newPath(i))
	}

	var first []uint16
	n := p.Drain(func(pp *path.Path) {
		first = append(first, pp.ID)
	})
	require.GreaterOrEqual(t, n, 2)

	var second []uint16
	p.Drain(func(pp *path.Path) { second = append(second, pp.ID) })

	all := append(first, second...)
	assert.ElementsMatch(t, []uint16{1, 2, 3, 4, 5, 6}, all)
}

func TestPush_ConcurrentFromManyWorkers(t *testing.T) {
	p := New(time.Second, 1)
	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				p.Push(newPath(uint16(id)))
			}
		}(w)
	}
	wg.Wait()

	total := p.Drain(func(*path.Path) {})
	assert.Equal(t, 16*50, total)
}
