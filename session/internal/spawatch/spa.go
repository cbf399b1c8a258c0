// Package spawatch detects client-side route changes (pushState,
// replaceState, popstate, hashchange) on a live page via an injected
// binding, adapted from the teacher's __domwatcher_binding idiom.
package spawatch

import (
	_ "embed"
	"encoding/json"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

//go:embed spa.js
var spaJS []byte

const bindingName = "__locate_spawatch_binding"

// Watcher injects route-change detection into a page and invokes
// onNavigate whenever a pushState/replaceState/popstate/hashchange fires.
type Watcher struct {
	page   *rod.Page
	logger *slog.Logger
}

// New sets up the binding and injects the navigation-watching script.
// onNavigate is called with the new URL on every detected route change.
func New(page *rod.Page, logger *slog.Logger, onNavigate func(url string)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		logger.Warn("spawatch: add binding failed (may already exist)", "error", err)
	}

	go page.EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		var payload struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal([]byte(e.Payload), &payload); err != nil {
			logger.Warn("spawatch: parse binding payload", "error", err)
			return
		}
		onNavigate(payload.URL)
	})()

	if _, err := page.Eval(string(spaJS)); err != nil {
		return nil, err
	}

	return &Watcher{page: page, logger: logger}, nil
}
