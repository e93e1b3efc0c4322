package distance

import (
	"sync"

	"github.com/protein-design/predict-antibody/internal/models"
)

// pool fans complexes out to workers; each worker writes into its own slot
// of outcomes, so no result channel or reordering is needed.
type pool struct {
	wg      *sync.WaitGroup
	indices chan int
}

func newPool(numWorkers int, complexes []models.ComplexDistances, outcomes []outcome) pool {
	indices := make(chan int, numWorkers*2)
	wg := &sync.WaitGroup{}
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indices {
				rec, err := Summarize(complexes[idx])
				outcomes[idx] = outcome{rec, err}
			}
		}()
	}
	return pool{wg: wg, indices: indices}
}

func (p pool) enqueue(idx int) {
	p.indices <- idx
}

func (p pool) done() {
	close(p.indices)
	p.wg.Wait()
}
