package tts

// Messages delivered on the controller's event channel. The surrounding
// application consumes these for all user-visible reporting; the pipeline
// never blocks on delivery.

// Msg is the common type of all pipeline events.
type Msg interface{}

// StateChangedMsg reports a playback state transition.
type StateChangedMsg struct {
	State StateType
	Page  int
}

// ProgressMsg reports page scheduling progress. Percent reflects how much of
// the page has been queued for synthesis, not how much has completed.
type ProgressMsg struct {
	Page    int
	Percent float64
}

// FirstPhraseReadyMsg indicates the first phrase of a page can be played.
type FirstPhraseReadyMsg struct {
	Page int
}

// PhraseMsg reports the phrase currently being spoken.
type PhraseMsg struct {
	Page  int
	Index int
	Text  string
}

// PhraseSkippedMsg reports a phrase dropped after synthesis retries ran out.
type PhraseSkippedMsg struct {
	Page  int
	Index int
	Text  string
	Err   error
}

// PageErrorMsg reports a page run aborted by an extraction failure.
type PageErrorMsg struct {
	Page int
	Err  error
}

// PageChangedMsg reports a committed page navigation or crossing.
type PageChangedMsg struct {
	Page  int
	Pages int
}

// DocumentClosedMsg reports that the session has been torn down.
type DocumentClosedMsg struct {
	Path string
}
