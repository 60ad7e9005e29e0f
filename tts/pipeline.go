package tts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charlesneimog/pdftts/tts/segment"
)

// ReadyPhrase is a phrase whose clip is on disk and ready to play.
type ReadyPhrase struct {
	Index int
	Text  string
	Clip  Clip
}

// PageRun is one execution of the synthesis pipeline scoped to a single
// document page. A producer feeds phrase tasks into a bounded queue in index
// order; consumer workers synthesize them through the clip store and merge
// the out-of-order completions into an ordered ready list. Exactly one
// playback run is active per document at a time.
type PageRun struct {
	page   int
	tasks  []segment.Phrase
	opts   SynthesisOptions
	store  ClipStore
	cfg    Config
	notify func(Msg)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	cond    *sync.Cond
	ready   []ReadyPhrase
	skipped map[int]bool
	done    bool
}

// NewPageRun builds a run for one page. notify may be nil for
// generation-only preload runs.
func NewPageRun(page int, tasks []segment.Phrase, opts SynthesisOptions, store ClipStore, cfg Config, notify func(Msg)) *PageRun {
	r := &PageRun{
		page:    page,
		tasks:   tasks,
		opts:    opts,
		store:   store,
		cfg:     cfg,
		notify:  notify,
		skipped: make(map[int]bool),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Page returns the page this run is scoped to.
func (r *PageRun) Page() int {
	return r.page
}

// TotalTasks returns the number of phrases the page segmented into.
func (r *PageRun) TotalTasks() int {
	return len(r.tasks)
}

// Start launches the producer and consumer workers under a context derived
// from ctx.
func (r *PageRun) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	queue := make(chan segment.Phrase, r.cfg.QueueSize)

	r.wg.Add(1)
	go r.produce(queue)

	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.consume(queue)
	}

	go func() {
		r.wg.Wait()
		r.mu.Lock()
		r.done = true
		r.cond.Broadcast()
		r.mu.Unlock()
	}()

	// Wake blocked pulls when the run is canceled.
	go func() {
		<-r.ctx.Done()
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	}()
}

// Stop cancels the run cooperatively and waits up to timeout for the
// producer and workers to exit. Exceeding the timeout degrades rather than
// blocks: stale workers stay inert behind the context check and the next
// run can start regardless. Returns true when the run retired cleanly.
func (r *PageRun) Stop(timeout time.Duration) bool {
	if r.cancel != nil {
		r.cancel()
	}

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Ready returns a snapshot of the ordered ready list.
func (r *PageRun) Ready() []ReadyPhrase {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ReadyPhrase, len(r.ready))
	copy(out, r.ready)
	return out
}

// ReadyCount returns the current length of the ready list.
func (r *PageRun) ReadyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ready)
}

// ReadyAfter returns how many ready phrases have an index greater than idx.
// The playback controller uses this to decide when to preload the next page.
func (r *PageRun) ReadyAfter(idx int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, rp := range r.ready {
		if rp.Index > idx {
			n++
		}
	}
	return n
}

// WaitFirst blocks until at least one phrase is ready, the run drains, or
// either context is canceled. It reports whether a phrase is ready.
func (r *PageRun) WaitFirst(ctx context.Context) bool {
	stop := context.AfterFunc(ctx, func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.ready) == 0 && !r.done && r.ctx.Err() == nil && ctx.Err() == nil {
		r.cond.Wait()
	}
	return len(r.ready) > 0
}

// Next returns the ready phrase with the smallest index at or above from,
// blocking while a gap at that position could still fill. Playback never
// advances past a gap: an index is stepped over only once its synthesis has
// failed for good or the run has drained without producing it. ok is false
// when no phrase at or above from can ever become ready.
func (r *PageRun) Next(ctx context.Context, from int) (ReadyPhrase, bool) {
	stop := context.AfterFunc(ctx, func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := from
	for {
		if idx >= len(r.tasks) {
			return ReadyPhrase{}, false
		}
		if rp, ok := r.readyAtLocked(idx); ok {
			return rp, true
		}
		if r.skipped[idx] || r.done {
			idx++
			continue
		}
		if r.ctx.Err() != nil || ctx.Err() != nil {
			return ReadyPhrase{}, false
		}
		r.cond.Wait()
	}
}

// readyAtLocked finds the ready phrase with exactly the given index.
// Callers must hold r.mu.
func (r *PageRun) readyAtLocked(idx int) (ReadyPhrase, bool) {
	i := sort.Search(len(r.ready), func(i int) bool {
		return r.ready[i].Index >= idx
	})
	if i < len(r.ready) && r.ready[i].Index == idx {
		return r.ready[i], true
	}
	return ReadyPhrase{}, false
}

// produce feeds phrase tasks into the queue in index order. The first
// PreloadNext sends are followed by a brief pause so early consumers get a
// head start before the whole page is queued. Closing the queue is the
// end-of-page sentinel.
func (r *PageRun) produce(queue chan<- segment.Phrase) {
	defer r.wg.Done()
	defer close(queue)

	total := len(r.tasks)
	for i, task := range r.tasks {
		select {
		case <-r.ctx.Done():
			return
		case queue <- task:
		}

		// Progress reflects scheduling, not completion.
		r.emit(ProgressMsg{Page: r.page, Percent: float64(i+1) / float64(total) * 100})

		if i < r.cfg.PreloadNext {
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(r.cfg.ThrottleDelay):
			}
		}
	}
}

// consume drains the queue, synthesizing each task through the clip store.
// A failure after retries skips the phrase without stopping the page.
func (r *PageRun) consume(queue <-chan segment.Phrase) {
	defer r.wg.Done()

	for task := range queue {
		if r.ctx.Err() != nil {
			return
		}

		clip, err := r.store.Ensure(r.ctx, task.Text, r.opts)
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.markSkipped(task.Index)
			r.emit(PhraseSkippedMsg{Page: r.page, Index: task.Index, Text: task.Text, Err: err})
			continue
		}

		if !r.append(task, clip) {
			return
		}
		if task.Index == 0 {
			r.emit(FirstPhraseReadyMsg{Page: r.page})
		}
	}
}

// append merges a completed phrase into the ordered ready list. It re-checks
// cancellation under the lock so no write can land after the run is stopped.
func (r *PageRun) append(task segment.Phrase, clip Clip) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return false
	}

	r.ready = append(r.ready, ReadyPhrase{Index: task.Index, Text: task.Text, Clip: clip})
	sort.Slice(r.ready, func(i, j int) bool {
		return r.ready[i].Index < r.ready[j].Index
	})
	r.cond.Broadcast()
	return true
}

func (r *PageRun) markSkipped(idx int) {
	r.mu.Lock()
	r.skipped[idx] = true
	r.cond.Broadcast()
	r.mu.Unlock()
}

func (r *PageRun) emit(msg Msg) {
	if r.notify != nil {
		r.notify(msg)
	}
}
