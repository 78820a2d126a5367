// browser/dom/page.go
package dom

import "context"

// Element is a handle to one live node. Handles are cheap and short lived: a
// backend may invalidate them between workflow actions, so callers re-resolve
// elements for every action instead of caching them.
type Element interface {
	// Query returns the first descendant matching selector, or nil.
	// A malformed selector yields an error.
	Query(ctx context.Context, selector string) (Element, error)
	// QueryAll returns every descendant matching selector, in document order.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Matches reports whether the element itself matches selector.
	Matches(ctx context.Context, selector string) (bool, error)
	// SameNode reports whether other refers to the same node as the element.
	SameNode(ctx context.Context, other Element) (bool, error)
	// Closest returns the nearest inclusive ancestor matching selector, or nil.
	Closest(ctx context.Context, selector string) (Element, error)
	// State snapshots the properties the automation reads.
	State(ctx context.Context) (State, error)

	// The mutators below change state without emitting any notification.
	SetValue(ctx context.Context, value string) error
	SetChecked(ctx context.Context, checked bool) error
	SelectIndex(ctx context.Context, index int) error
	SetText(ctx context.Context, text string) error

	Focus(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	// Click invokes the element's native activation behavior.
	Click(ctx context.Context) error
	// Dispatch fires a synthetic, bubbling event at the element.
	Dispatch(ctx context.Context, ev Event) error
	// InvokeHandler runs the source of an inline handler attribute (e.g. "onclick")
	// in page scope. It reports false when the attribute is absent.
	InvokeHandler(ctx context.Context, attr string) (bool, error)
}

// Page is the document-level half of a backend.
type Page interface {
	// Document returns the root that unscoped queries run against.
	Document(ctx context.Context) (Element, error)
	// ElementByID looks an element up by its id attribute. A missing element is
	// reported as (nil, nil). This path accepts ids that are not valid CSS.
	ElementByID(ctx context.Context, id string) (Element, error)
	// CallGlobal calls window[name]() when it is a function and reports whether it was.
	CallGlobal(ctx context.Context, name string) (bool, error)
	// InjectScript runs source through an inserted <script> element.
	InjectScript(ctx context.Context, source string) error
}

// HandleReleaser is implemented by backends that pin remote objects and can
// free them once an action completes.
type HandleReleaser interface {
	ReleaseHandles(ctx context.Context) error
}

// Rect is a rendered box in CSS pixels, relative to the viewport.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Option is one entry of a <select>.
type Option struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	Disabled bool   `json:"disabled"`
}

// State is a snapshot of an element. Tag and Type are lower case.
type State struct {
	Tag             string            `json:"tag"`
	Type            string            `json:"type"`
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Value           string            `json:"value"`
	Checked         bool              `json:"checked"`
	Disabled        bool              `json:"disabled"`
	ContentEditable bool              `json:"contentEditable"`
	Text            string            `json:"text"`
	Attrs           map[string]string `json:"attrs"`
	Options         []Option          `json:"options"`
	SelectedIndex   int               `json:"selectedIndex"`
	Box             Rect              `json:"box"`
	Viewport        Rect              `json:"viewport"`
	HasOffsetParent bool              `json:"hasOffsetParent"`
	Display         string            `json:"display"`
	Visibility      string            `json:"visibility"`
	Opacity         string            `json:"opacity"`
	PointerEvents   string            `json:"pointerEvents"`
}

// Attr returns an attribute value and whether it is present.
func (s State) Attr(name string) (string, bool) {
	v, ok := s.Attrs[name]
	return v, ok
}

// EventKind selects the constructor a backend uses for a synthetic event.
type EventKind string

const (
	KindBasic    EventKind = "basic"
	KindMouse    EventKind = "mouse"
	KindPointer  EventKind = "pointer"
	KindKeyboard EventKind = "keyboard"
)

// Event describes a synthetic DOM event. All events bubble.
type Event struct {
	Type    string    `json:"type"`
	Kind    EventKind `json:"kind"`
	ClientX float64   `json:"clientX,omitempty"`
	ClientY float64   `json:"clientY,omitempty"`
	Key     string    `json:"key,omitempty"`
	Code    string    `json:"code,omitempty"`
	KeyCode int       `json:"keyCode,omitempty"`
}
