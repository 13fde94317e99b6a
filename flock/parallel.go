package flock

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/systems"
)

// workChunk is a range of agent handles for one worker.
type workChunk struct {
	start, end int
	params     TickParams
	step       float64
}

// parallelState holds the persistent worker pool for the force phase.
type parallelState struct {
	scratches  []*systems.Scratch
	numWorkers int

	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

// newParallelState sizes the pool. workers <= 0 selects GOMAXPROCS.
// Each worker gets its own random stream derived from seed.
func newParallelState(workers int, seed uint64) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]*systems.Scratch, workers)
	for i := range scratches {
		scratches[i] = systems.NewScratch(seed, uint64(i)+1)
	}
	return &parallelState{
		numWorkers: workers,
		scratches:  scratches,
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker processes chunks until stopped.
func (p *parallelState) worker(s *Simulation, workerID int) {
	defer p.wg.Done()
	scratch := p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end, scratch, chunk.params, chunk.step)
			p.doneChan <- struct{}{}
		}
	}
}

// collisions sums and resets the per-worker coincidence counters.
// Only valid after every worker has reported done.
func (p *parallelState) collisions() int {
	total := 0
	for _, sc := range p.scratches {
		total += sc.Collisions
		sc.Collisions = 0
	}
	return total
}

// runParallel computes pending state for every regular agent and returns once
// all of them are done. Small populations run inline on the caller.
func (s *Simulation) runParallel(params TickParams, step float64) int {
	n := int(s.predator)
	if n == 0 {
		return 0
	}

	if n < s.cfg.Parallel.Threshold || s.parallel.numWorkers == 1 {
		s.computeChunk(0, n, s.parallel.scratches[0], params, step)
	} else {
		s.computeParallel(n, params, step)
	}
	return s.parallel.collisions()
}

// computeParallel dispatches chunks to the worker pool and waits for all of
// them.
func (s *Simulation) computeParallel(n int, params TickParams, step float64) {
	p := s.parallel
	if !p.running {
		p.startWorkers(s)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end, params: params, step: step}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk updates agents [i0, i1).
func (s *Simulation) computeChunk(i0, i1 int, scratch *systems.Scratch, params TickParams, step float64) {
	for i := i0; i < i1; i++ {
		s.updateAgent(components.Handle(i), params, step, scratch)
	}
}
