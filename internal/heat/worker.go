package heat

import "sync"

// stepJob is one stencil application handed to the worker pool.
type stepJob struct {
	dst, src []float32
	table    []uint32
	width    int
	height   int
	scheme   DescriptorScheme
	coeffs   Coefficients
}

// workerPool runs stencil steps on persistent goroutines. A step is handed
// out by bumping the step counter; run returns once every worker has
// finished its rows, which is the full-grid barrier between steps.
type workerPool struct {
	count int

	mu      sync.Mutex
	cond    *sync.Cond
	step    int
	pending int
	quit    bool
	started bool
	job     stepJob
	masks   []workerMask
	wg      sync.WaitGroup
}

func newWorkerPool(count int) *workerPool {
	if count < 1 {
		count = 1
	}
	p := &workerPool{count: count}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// start launches the worker goroutines.
func (p *workerPool) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.wg.Add(p.count)
	for i := 0; i < p.count; i++ {
		go p.loop(i)
	}
}

// stop terminates the workers after any running step.
func (p *workerPool) stop() {
	p.mu.Lock()
	p.quit = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

// run executes job over the given masks and blocks until all rows are done.
func (p *workerPool) run(job stepJob, masks []workerMask) {
	p.mu.Lock()
	p.job = job
	p.masks = masks
	p.pending = p.count
	p.step++
	p.cond.Broadcast()
	for p.pending > 0 {
		p.cond.Wait()
	}
	p.job = stepJob{}
	p.mu.Unlock()
}

func (p *workerPool) loop(index int) {
	defer p.wg.Done()
	lastStep := 0
	p.mu.Lock()
	for {
		for p.step == lastStep && !p.quit {
			p.cond.Wait()
		}
		if p.quit {
			p.mu.Unlock()
			return
		}
		lastStep = p.step
		job := p.job
		var mask workerMask
		if index < len(p.masks) {
			mask = p.masks[index]
		}
		p.mu.Unlock()

		if len(mask.rows) > 0 {
			processMask(&job, &mask)
		}

		p.mu.Lock()
		p.pending--
		if p.pending == 0 {
			p.cond.Broadcast()
		}
	}
}

// processMask applies the stencil to the rows assigned to one worker. Rows
// are first copied so immutable cells carry their value into dst, then the
// mutable spans are evaluated.
func processMask(job *stepJob, mask *workerMask) {
	width := job.width
	_, packed := job.scheme.(PackedScheme)
	for _, row := range mask.rows {
		base := row.y * width
		copy(job.dst[base:base+width], job.src[base:base+width])
		for _, sp := range row.spans {
			for x := sp.start; x <= sp.end; x++ {
				i := base + x
				var desc uint32
				if packed {
					desc = job.table[i]
				} else {
					desc = job.scheme.Descriptor(job.table, width, job.height, i)
				}
				job.dst[i] = EvaluateCell(desc, i, width, job.src, job.coeffs)
			}
		}
	}
}
