package webview

// RendererEvent is a navigation lifecycle notification from the embedded renderer.
// The concrete variants are NavigationStarted, NavigationFinished,
// NavigationFailed and LocationChanged.
type RendererEvent interface {
	rendererEvent()
}

// NavigationStarted is sent when a new document starts loading
type NavigationStarted struct {
	URL string
}

// NavigationFinished is sent once the document has loaded
type NavigationFinished struct {
	URL string
}

// NavigationFailed is sent when a load could not complete
type NavigationFailed struct {
	URL    string
	Reason string
}

// LocationChanged is sent for in-page (history API) navigations that do not reload the document
type LocationChanged struct {
	URL string
}

func (NavigationStarted) rendererEvent()  {}
func (NavigationFinished) rendererEvent() {}
func (NavigationFailed) rendererEvent()   {}
func (LocationChanged) rendererEvent()    {}

// KeyEnter is the DOM key name of the Return key
const KeyEnter = "Enter"

// KeyEvent is a key-down observed in the hosted page
type KeyEvent struct {
	Key       string `json:"key"`
	Shift     bool   `json:"shift"`
	Command   bool   `json:"meta"`
	Control   bool   `json:"ctrl"`
	Option    bool   `json:"alt"`
	Composing bool   `json:"composing"`
}

// hasPrimaryModifier reports whether the event is a command shortcut
func (e KeyEvent) hasPrimaryModifier() bool {
	return e.Command || e.Control
}

// isSubmit reports whether the event is a plain Enter that may submit the prompt
func (e KeyEvent) isSubmit() bool {
	return e.Key == KeyEnter && !e.Shift && !e.hasPrimaryModifier()
}

// LoadPhase is the coarse load state of the hosted document
type LoadPhase string

const (
	PhaseIdle    LoadPhase = "idle"
	PhaseLoading LoadPhase = "loading"
	PhaseLoaded  LoadPhase = "loaded"
	PhaseFailed  LoadPhase = "failed"
)

// LoadState carries the load phase and, for failures, the reason
type LoadState struct {
	Phase  LoadPhase `json:"phase"`
	Reason string    `json:"reason,omitempty"`
}
