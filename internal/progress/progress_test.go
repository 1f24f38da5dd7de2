package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilProgressIsIgnored(t *testing.T) {
	var p *Progress
	p.SetTotal(10)
	p.Add(3)
	child := p.AddChild(5)
	child.Add(1)
	p.Finish()

	assert.Nil(t, child)
	assert.Equal(t, 0.0, p.Fraction())
}

func TestChildContributesToParent(t *testing.T) {
	root := New(10)
	root.Add(4)
	child := root.AddChild(6)
	child.SetTotal(3)
	child.Add(1)

	assert.InDelta(t, 0.6, root.Fraction(), 1e-9)

	child.Finish()
	assert.InDelta(t, 1.0, root.Fraction(), 1e-9)
	assert.Equal(t, 100, root.Percent())
}

func TestOnChangeFiresOnAncestors(t *testing.T) {
	root := New(2)
	var seen []float64
	root.OnChange(func(f float64) { seen = append(seen, f) })

	child := root.AddChild(2)
	child.SetTotal(4)
	child.Add(2)

	assert.Equal(t, []float64{0, 0.5}, seen)
}

func TestConcurrentUpdates(t *testing.T) {
	root := New(100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			child := root.AddChild(10)
			child.SetTotal(10)
			for j := 0; j < 10; j++ {
				child.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.InDelta(t, 1.0, root.Fraction(), 1e-9)
}
