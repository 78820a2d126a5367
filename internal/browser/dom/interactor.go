// browser/dom/interactor.go
package dom

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Default wait budget and poll interval used when a caller passes zero.
const (
	DefaultTimeout  = 2 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// bareIDPattern matches a selector made of a single id and nothing else.
var bareIDPattern = regexp.MustCompile(`^#([^\s.#\[\]>+~:,()*="'|^$]+)$`)

// BareID returns the id of a selector made of a single #id and nothing else.
func BareID(selector string) (string, bool) {
	m := bareIDPattern.FindStringSubmatch(strings.TrimSpace(selector))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Interactor resolves, waits on and mutates elements of one Page. It holds no
// element state of its own; every call works on the live page.
type Interactor struct {
	page   Page
	logger *zap.Logger
}

// NewInteractor creates an interactor for page.
func NewInteractor(logger *zap.Logger, page Page) *Interactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interactor{page: page, logger: logger.Named("dom")}
}

// Page returns the page this interactor drives.
func (i *Interactor) Page() Page { return i.page }

// -- Selector resolution --

// Find returns the first element matching any candidate, tried in order, within
// scope (the whole document when scope is nil). A candidate that fails to parse
// counts as no-match. The error wraps ErrResolution, or is the context error.
func (i *Interactor) Find(ctx context.Context, candidates []string, scope Element) (Element, error) {
	for _, sel := range candidates {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Ids like "#1" are not valid CSS, so document-level #id lookups go
		// through getElementById first.
		if scope == nil {
			if el := i.byBareID(ctx, sel); el != nil {
				return el, nil
			}
		}

		root, err := i.root(ctx, scope)
		if err != nil {
			return nil, err
		}
		el, err := root.Query(ctx, sel)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			i.logger.Debug("Selector rejected.", zap.String("selector", sel), zap.Error(err))
			continue
		}
		if el != nil {
			return el, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrResolution, strings.Join(candidates, " | "))
}

// Resolve is Find without the error: nil means nothing matched.
func (i *Interactor) Resolve(ctx context.Context, candidates []string, scope Element) Element {
	el, _ := i.Find(ctx, candidates, scope)
	return el
}

// byBareID resolves a document-level #id selector through ElementByID.
func (i *Interactor) byBareID(ctx context.Context, sel string) Element {
	id, ok := BareID(sel)
	if !ok {
		return nil
	}
	el, err := i.page.ElementByID(ctx, id)
	if err != nil {
		return nil
	}
	return el
}

// ResolveAll returns every match of the first candidate that matches anything.
// Document-level #id candidates resolve like Find.
func (i *Interactor) ResolveAll(ctx context.Context, candidates []string, scope Element) []Element {
	root, err := i.root(ctx, scope)
	if err != nil {
		return nil
	}
	for _, sel := range candidates {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if scope == nil {
			if el := i.byBareID(ctx, sel); el != nil {
				return []Element{el}
			}
		}
		els, err := root.QueryAll(ctx, sel)
		if err != nil {
			i.logger.Debug("Selector rejected.", zap.String("selector", sel), zap.Error(err))
			continue
		}
		if len(els) > 0 {
			return els
		}
	}
	return nil
}

// ByID resolves an element by id. Missing elements and transport errors both yield nil.
func (i *Interactor) ByID(ctx context.Context, id string) Element {
	if id == "" {
		return nil
	}
	el, err := i.page.ElementByID(ctx, id)
	if err != nil {
		i.logger.Debug("Id lookup failed.", zap.String("id", id), zap.Error(err))
		return nil
	}
	return el
}

// Matches reports whether el matches selector. Errors count as no match.
func (i *Interactor) Matches(ctx context.Context, el Element, selector string) bool {
	if el == nil || strings.TrimSpace(selector) == "" {
		return false
	}
	ok, err := el.Matches(ctx, selector)
	return err == nil && ok
}

// Text returns the rendered text of el, trimmed. A nil element yields "".
func (i *Interactor) Text(ctx context.Context, el Element) string {
	if el == nil {
		return ""
	}
	st, err := el.State(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(st.Text)
}

func (i *Interactor) root(ctx context.Context, scope Element) (Element, error) {
	if scope != nil {
		return scope, nil
	}
	doc, err := i.page.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to access document: %w", err)
	}
	return doc, nil
}

// CSSString quotes s for use inside a CSS attribute selector.
func CSSString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}
