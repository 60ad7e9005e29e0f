package tts

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/charlesneimog/pdftts/tts/segment"
)

// Controller drives reading a document aloud: it opens documents, runs the
// synthesis pipeline one page at a time, sequences playback in phrase order,
// preloads the next page near a page boundary, and persists per-document
// resume state. All exported methods are safe for concurrent use.
type Controller struct {
	cfg       Config
	extractor Extractor
	segmenter *segment.Segmenter
	store     ClipStore
	device    Device
	sessions  *SessionStore
	logger    *log.Logger

	events chan Msg

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	machine   *StateMachine
	docPath   string
	page      int
	pageCount int
	cursor    int
	voice     string
	rate      string
	playing   bool
	playGen   int
	run       *PageRun
	closed    bool

	preloadPage   int
	preloadCancel context.CancelFunc
}

// NewController wires a controller from its collaborators. The clip store,
// device, and extractor are interfaces so tests can substitute fakes.
func NewController(cfg Config, extractor Extractor, segmenter *segment.Segmenter, store ClipStore, device Device, sessions *SessionStore, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:         cfg,
		extractor:   extractor,
		segmenter:   segmenter,
		store:       store,
		device:      device,
		sessions:    sessions,
		logger:      logger,
		events:      make(chan Msg, 64),
		ctx:         ctx,
		cancel:      cancel,
		machine:     NewStateMachine(),
		voice:       cfg.Voice,
		rate:        cfg.Rate,
		preloadPage: -1,
	}
}

// Events returns the stream of controller notifications. The channel is
// never closed; a DocumentClosedMsg marks shutdown.
func (c *Controller) Events() <-chan Msg {
	return c.events
}

// State returns the current playback state.
func (c *Controller) State() StateType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

// Page returns the 0-based current page.
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Pages returns the page count of the open document.
func (c *Controller) Pages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageCount
}

// Cursor returns the index of the phrase playback is positioned at.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Open loads a document and starts synthesizing its first page. When a
// saved session exists for the document, reading resumes at the saved page
// with its saved voice and rate.
func (c *Controller) Open(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	pages, err := c.extractor.PageCount(abs)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExtractionFailed, abs, err)
	}
	if pages == 0 {
		return fmt.Errorf("%w: %s has no pages", ErrExtractionFailed, abs)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrRunStopped
	}

	c.docPath = abs
	c.pageCount = pages
	c.page = 0
	c.cursor = 0

	if sess, ok := c.sessions.Get(abs); ok {
		if sess.Page >= 0 && sess.Page < pages {
			c.page = sess.Page
		}
		if sess.Voice != "" {
			c.voice = sess.Voice
		}
		if sess.Rate != "" && rateFormat.MatchString(sess.Rate) {
			c.rate = sess.Rate
		}
		c.logger.Info("resuming document", "path", abs, "page", c.page+1)
	}

	c.emit(PageChangedMsg{Page: c.page, Pages: c.pageCount})
	return c.startRunLocked()
}

// Play starts or resumes playback. Playback begins as soon as the first
// phrase of the current page is ready.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.docPath == "" {
		return ErrNoDocument
	}
	if c.closed {
		return ErrRunStopped
	}
	if c.playing {
		return nil
	}

	if c.run == nil {
		return ErrNothingToPlay
	}
	c.playing = true
	c.startPlaybackLocked()
	return nil
}

// Pause halts playback and keeps the cursor where it is.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.docPath == "" {
		return ErrNoDocument
	}
	if !c.playing {
		return nil
	}

	c.playing = false
	c.playGen++
	if err := c.device.Stop(); err != nil {
		c.logger.Warn("stopping device", "err", err)
	}
	c.transitionLocked(StatePaused)
	return nil
}

// Toggle flips between playing and paused.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()

	if playing {
		return c.Pause()
	}
	return c.Play()
}

// NextPhrase moves playback forward one phrase.
func (c *Controller) NextPhrase() error { return c.seekPhrase(1) }

// PrevPhrase moves playback back one phrase.
func (c *Controller) PrevPhrase() error { return c.seekPhrase(-1) }

func (c *Controller) seekPhrase(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run == nil {
		return ErrNoDocument
	}

	target := c.cursor + delta
	if target < 0 || target >= c.run.TotalTasks() {
		c.logger.Warn("phrase out of range", "target", target, "phrases", c.run.TotalTasks())
		return fmt.Errorf("%w: phrase %d of %d", ErrInvalidNavigation, target, c.run.TotalTasks())
	}

	wasPlaying := c.playing
	c.playGen++
	if err := c.device.Stop(); err != nil {
		c.logger.Warn("stopping device", "err", err)
	}
	c.cursor = target

	if wasPlaying {
		c.startPlaybackLocked()
	}
	return nil
}

// NextPage jumps to the start of the next page.
func (c *Controller) NextPage() error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()
	return c.GoToPage(page + 1)
}

// PrevPage jumps to the start of the previous page.
func (c *Controller) PrevPage() error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()
	return c.GoToPage(page - 1)
}

// GoToPage jumps to the start of a 0-based page. Playback intent survives
// the jump: if audio was playing it resumes once the new page's first
// phrase is ready.
func (c *Controller) GoToPage(page int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.docPath == "" {
		return ErrNoDocument
	}
	if page < 0 || page >= c.pageCount {
		c.logger.Warn("page out of range", "target", page+1, "pages", c.pageCount)
		return fmt.Errorf("%w: page %d of %d", ErrInvalidNavigation, page, c.pageCount)
	}

	c.page = page
	c.cursor = 0
	c.checkpointLocked()
	c.emit(PageChangedMsg{Page: c.page, Pages: c.pageCount})
	return c.startRunLocked()
}

// SetVoice changes the synthesis voice. The change applies from the next
// page run; already cached clips keep their original voice.
func (c *Controller) SetVoice(voice string) error {
	if voice == "" {
		return fmt.Errorf("voice must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.voice = voice
	c.checkpointLocked()
	return nil
}

// SetRate changes the speaking rate, given as a signed percentage like
// "+35%".
func (c *Controller) SetRate(rate string) error {
	if !rateFormat.MatchString(rate) {
		return fmt.Errorf("rate %q must be a signed percentage like +35%%", rate)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = rate
	c.checkpointLocked()
	return nil
}

// Close stops playback, persists the session, and releases the audio
// device. The controller is unusable afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.playing = false
	c.stopRunLocked()
	c.checkpointLocked()
	c.transitionLocked(StateIdle)
	path := c.docPath
	c.mu.Unlock()

	c.cancel()
	err := c.device.Close()
	c.emit(DocumentClosedMsg{Path: path})
	return err
}

// startRunLocked replaces the active page run with one for the current
// page. Callers must hold c.mu.
func (c *Controller) startRunLocked() error {
	c.stopRunLocked()
	c.transitionLocked(StateLoading)

	text, err := c.extractor.PageText(c.docPath, c.page)
	if err != nil {
		c.emit(PageErrorMsg{Page: c.page, Err: err})
		c.transitionLocked(StateIdle)
		return fmt.Errorf("%w: page %d: %v", ErrExtractionFailed, c.page, err)
	}

	phrases, lang := c.segmenter.Segment(text)
	run := NewPageRun(c.page, phrases, c.optsLocked(lang), c.store, c.cfg, c.emit)
	run.Start(c.ctx)
	c.run = run

	go c.watchFirstReady(run)
	return nil
}

// watchFirstReady parks the machine in Paused once the page is ready, or
// starts playback immediately when play intent is already set.
func (c *Controller) watchFirstReady(run *PageRun) {
	run.WaitFirst(c.ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.run != run {
		return
	}
	if c.playing {
		c.startPlaybackLocked()
	} else {
		c.transitionLocked(StatePaused)
	}
}

// startPlaybackLocked retires any previous playback loop and spawns a new
// one at the current cursor. Callers must hold c.mu.
func (c *Controller) startPlaybackLocked() {
	if c.run == nil {
		return
	}
	c.playGen++
	c.transitionLocked(StatePlaying)
	go c.playbackLoop(c.run, c.playGen)
}

// playbackLoop pulls ready phrases in order and plays them back to back.
// gen fences the loop: any navigation or pause bumps the generation and
// this loop exits at its next check.
func (c *Controller) playbackLoop(run *PageRun, gen int) {
	for {
		c.mu.Lock()
		if !c.aliveLocked(run, gen) {
			c.mu.Unlock()
			return
		}
		from := c.cursor
		c.mu.Unlock()

		rp, ok := run.Next(c.ctx, from)

		c.mu.Lock()
		if !c.aliveLocked(run, gen) {
			c.mu.Unlock()
			return
		}
		if !ok {
			c.handlePageEndLocked()
			c.mu.Unlock()
			return
		}
		c.cursor = rp.Index
		c.maybePreloadLocked(run, rp.Index)
		c.mu.Unlock()

		c.emit(PhraseMsg{Page: run.Page(), Index: rp.Index, Text: rp.Text})

		if !c.playClip(run, gen, rp) {
			return
		}

		c.mu.Lock()
		if c.aliveLocked(run, gen) {
			c.cursor = rp.Index + 1
			c.checkpointLocked()
		}
		c.mu.Unlock()
	}
}

// playClip plays one clip and waits for it to finish. It reports whether
// the loop should continue; a load or play failure skips the phrase.
func (c *Controller) playClip(run *PageRun, gen int, rp ReadyPhrase) bool {
	if err := c.device.Load(rp.Clip.Path); err != nil {
		c.logger.Warn("loading clip", "path", rp.Clip.Path, "err", err)
		c.advance(run, gen, rp.Index+1)
		return true
	}
	if err := c.device.Play(); err != nil {
		c.logger.Warn("playing clip", "path", rp.Clip.Path, "err", err)
		c.advance(run, gen, rp.Index+1)
		return true
	}

	for {
		time.Sleep(c.cfg.BusyPoll)

		c.mu.Lock()
		alive := c.aliveLocked(run, gen)
		c.mu.Unlock()
		if !alive {
			return false
		}
		if !c.device.IsBusy() {
			return true
		}
	}
}

// advance moves the cursor past a phrase that will not be played. It
// acquires c.mu itself.
func (c *Controller) advance(run *PageRun, gen, cursor int) {
	c.mu.Lock()
	if c.aliveLocked(run, gen) {
		c.cursor = cursor
	}
	c.mu.Unlock()
}

// handlePageEndLocked runs when the active page has no further playable
// phrases. On the last page playback parks in Paused; otherwise reading
// rolls into the next page. Callers must hold c.mu.
func (c *Controller) handlePageEndLocked() {
	if c.page+1 >= c.pageCount {
		c.playing = false
		c.playGen++
		c.transitionLocked(StatePaused)
		c.checkpointLocked()
		return
	}

	c.page++
	c.cursor = 0
	c.checkpointLocked()
	c.emit(PageChangedMsg{Page: c.page, Pages: c.pageCount})
	if err := c.startRunLocked(); err != nil {
		c.playing = false
		c.logger.Error("advancing page", "page", c.page+1, "err", err)
	}
}

// maybePreloadLocked warms the cache with the next page's phrases once
// playback nears the end of the current one. Callers must hold c.mu.
func (c *Controller) maybePreloadLocked(run *PageRun, idx int) {
	next := c.page + 1
	if next >= c.pageCount || c.preloadPage == next {
		return
	}
	remaining := run.TotalTasks() - idx - 1
	if remaining >= c.cfg.PreloadThreshold {
		return
	}

	c.preloadPage = next
	ctx, cancel := context.WithCancel(c.ctx)
	c.preloadCancel = cancel
	opts := SynthesisOptions{Voice: c.voice, Rate: c.rate}

	go func() {
		text, err := c.extractor.PageText(c.docPath, next)
		if err != nil {
			c.logger.Warn("preloading page", "page", next+1, "err", err)
			return
		}
		phrases, lang := c.segmenter.Segment(text)
		if len(phrases) == 0 {
			return
		}
		opts.Language = lang

		pre := NewPageRun(next, phrases, opts, c.store, c.cfg, nil)
		pre.Start(ctx)
	}()
}

// stopRunLocked retires the active run and any in-flight preload. Callers
// must hold c.mu.
func (c *Controller) stopRunLocked() {
	c.playGen++

	if c.preloadCancel != nil {
		c.preloadCancel()
		c.preloadCancel = nil
	}
	c.preloadPage = -1

	if c.run != nil {
		if !c.run.Stop(c.cfg.StopTimeout) {
			c.logger.Warn("page run did not stop in time", "page", c.run.Page())
		}
		c.run = nil
	}
	if err := c.device.Stop(); err != nil {
		c.logger.Warn("stopping device", "err", err)
	}
}

func (c *Controller) optsLocked(lang string) SynthesisOptions {
	return SynthesisOptions{Voice: c.voice, Rate: c.rate, Language: lang}
}

// checkpointLocked persists page, voice, and rate for the open document.
// Callers must hold c.mu.
func (c *Controller) checkpointLocked() {
	if c.docPath == "" || c.sessions == nil {
		return
	}
	sess := DocumentSession{Page: c.page, Voice: c.voice, Rate: c.rate}
	if err := c.sessions.Put(c.docPath, sess); err != nil {
		c.logger.Warn("saving session", "path", c.docPath, "err", err)
	}
}

func (c *Controller) transitionLocked(to StateType) {
	if c.machine.Transition(to) {
		c.emit(StateChangedMsg{State: to, Page: c.page})
	}
}

// aliveLocked reports whether a playback loop with the given run and
// generation is still the current one. Callers must hold c.mu.
func (c *Controller) aliveLocked(run *PageRun, gen int) bool {
	return !c.closed && c.playing && c.playGen == gen && c.run == run
}

// emit delivers a notification without ever blocking the controller. When
// no consumer keeps up the oldest unread events are simply lost.
func (c *Controller) emit(msg Msg) {
	select {
	case c.events <- msg:
	default:
	}
}
