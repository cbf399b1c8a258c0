package locexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/locatehq/locate/heal"
	"github.com/locatehq/locate/snapshot"
	"github.com/locatehq/locate/verify"
)

// Intent is the action act() dispatches against the resolved element.
type Intent string

const (
	IntentClick   Intent = "click"
	IntentType    Intent = "type"
	IntentSelect  Intent = "select"
	IntentHover   Intent = "hover"
	IntentCheck   Intent = "check"
	IntentUncheck Intent = "uncheck"
	IntentFocus   Intent = "focus"
	IntentClear   Intent = "clear"
	IntentUpload  Intent = "upload"
)

// ActInput is spec.md §6's `{intent, target_phrase, value?}`.
type ActInput struct {
	Intent       Intent
	TargetPhrase string
	Value        string
}

// ActOptions is spec.md §6's `{url?, max_retries?}`.
type ActOptions struct {
	URL        string
	MaxRetries int
	Mode       string // overrides the CoreContext's configured mode when set
}

// Waits records the time spent waiting before and after dispatching the
// action (stability wait, post-action settle).
type Waits struct {
	BeforeMS int64 `json:"before_ms"`
	AfterMS  int64 `json:"after_ms"`
}

// Frame identifies the frame an action ran in.
type Frame struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// PostAction records the before/after state act() compares to report
// what the action actually changed.
type PostAction struct {
	URLBefore     string  `json:"url_before"`
	URLAfter      string  `json:"url_after"`
	DomHashBefore string  `json:"dom_hash_before"`
	DomHashAfter  string  `json:"dom_hash_after"`
	Value         *string `json:"value,omitempty"`
}

// ActionResult mirrors spec.md §6's ActionResult exactly.
type ActionResult struct {
	Success           bool       `json:"success"`
	UsedLocator       string     `json:"used_locator,omitempty"`
	Waits             Waits      `json:"waits"`
	Frame             Frame      `json:"frame"`
	PostAction        PostAction `json:"post_action"`
	Timing            Timing     `json:"timing"`
	Retries           int        `json:"retries"`
	DismissedOverlays []string   `json:"dismissed_overlays,omitempty"`
	Err               *Error     `json:"error,omitempty"`
}

// overlaySelectors is a small fixed list of common dismissible-overlay
// patterns (cookie banners, modal close buttons) tried before acting,
// per spec.md §7's Occluded handling.
var overlaySelectors = []string{
	`[aria-label="Close"]`,
	`[aria-label="Dismiss"]`,
	`.cookie-consent button`,
	`#onetrust-accept-btn-handler`,
}

// Act resolves in.TargetPhrase to a live element the same way Query does,
// dispatches in.Intent against it, and reports the post-action state.
// When initial verification finds no usable candidate it runs heal's
// 5-step protocol before surfacing an error. Failures after that point
// (entering the healed frame, resolving the element, scrolling it into
// view, dispatching the intent) are returned as typed errors without
// healing.
func (p *Pipeline) Act(ctx context.Context, page *rod.Page, pageID string, in ActInput, opts ActOptions) (ActionResult, error) {
	start := time.Now()
	var timing Timing

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = p.cc.Config.MaxRetries
	}

	origin := originOf(opts.URL)
	mode := p.resolveMode(opts.Mode)
	modeKey := string(mode)
	queryNorm := normalizeQuery(in.TargetPhrase)
	requireEnabled := true

	urlBefore := page.MustInfo().URL

	beforeStart := time.Now()
	captureStart := time.Now()
	snap, err := p.capture(ctx, page, pageID)
	if err != nil {
		return ActionResult{Err: newError(KindSessionLost, "snapshotting", err.Error())}, nil
	}
	timing.CaptureMS = time.Since(captureStart).Milliseconds()
	domHashBefore := snap.SnapshotID

	cands, err := p.rank(ctx, origin, in.TargetPhrase, string(in.Intent), snap, mode, &timing)
	if err != nil {
		return ActionResult{Err: newError(KindNotFound, "ranking", err.Error())}, nil
	}

	verifyStart := time.Now()
	res, _, _, verr := p.verifyCandidates(ctx, page, cands, requireEnabled)
	timing.VerifyMS = time.Since(verifyStart).Milliseconds()

	attempt := heal.NewAttempt(maxRetries)
	selector := res.UsedSelector
	framePage := res.FramePage
	framePathLabel := res.FramePath
	retries := 0

	if verr != nil || !res.OK {
		attempt.Advance(heal.StateHealing, "initial verification failed, healing")
		outcome, herr := p.heal(ctx, attempt, page, pageID, origin, in.TargetPhrase, queryNorm, modeKey, string(in.Intent), requireEnabled)
		if herr != nil {
			return ActionResult{Err: newError(KindNotFound, "healing", herr.Error())}, nil
		}
		if !outcome.OK {
			return ActionResult{Err: newError(KindNotFound, "healing", outcome.Reason), Retries: outcome.Attempts}, nil
		}
		selector = outcome.Selector
		retries = outcome.Attempts
		fp, ferr := verify.ResolveFrame(ctx, page, outcome.FramePath)
		if ferr != nil {
			return ActionResult{Err: newError(KindStale, "acting", ferr.Error()), Retries: retries}, nil
		}
		framePage = fp
		framePathLabel = strings.Join(outcome.FramePath, " > ")
	}
	if framePage == nil {
		framePage = page
	}

	dismissed := dismissOverlays(framePage)

	attempt.Advance(heal.StateActing, "dispatching action")
	el, _, err := resolveElement(ctx, framePage, selector)
	if err != nil {
		return ActionResult{Err: newError(KindNotFound, "acting", err.Error()), Retries: retries}, nil
	}

	if err := el.ScrollIntoView(); err != nil {
		return ActionResult{Err: newError(KindOccluded, "acting", err.Error()), Retries: retries}, nil
	}
	beforeMS := time.Since(beforeStart).Milliseconds()

	var valueAfter *string
	if err := dispatch(el, in); err != nil {
		return ActionResult{Err: newError(KindDisabled, "acting", err.Error()), Retries: retries}, nil
	}
	switch in.Intent {
	case IntentType:
		v := in.Value
		valueAfter = &v
	case IntentClear:
		v := ""
		valueAfter = &v
	}

	postStart := time.Now()
	domHashAfter, urlAfter := postActionState(ctx, page)
	afterMS := time.Since(postStart).Milliseconds()
	timing.TotalMS = time.Since(start).Milliseconds()

	result := ActionResult{
		Success:           true,
		UsedLocator:       selector,
		Waits:             Waits{BeforeMS: beforeMS, AfterMS: afterMS},
		Frame:             Frame{Path: framePathLabel, URL: urlAfter},
		PostAction:        PostAction{URLBefore: urlBefore, URLAfter: urlAfter, DomHashBefore: domHashBefore, DomHashAfter: domHashAfter, Value: valueAfter},
		Timing:            timing,
		Retries:           retries,
		DismissedOverlays: dismissed,
	}

	if result.Success {
		p.recordPromotion(ctx, origin, queryNorm, selector, modeKey)
	}
	return result, nil
}

func resolveElement(ctx context.Context, page *rod.Page, selector string) (*rod.Element, bool, error) {
	isXPath := len(selector) > 0 && selector[0] == '/'
	var el *rod.Element
	var err error
	if isXPath {
		el, err = page.Context(ctx).ElementX(selector)
	} else {
		el, err = page.Context(ctx).Element(selector)
	}
	if err != nil {
		return nil, isXPath, fmt.Errorf("resolve %q: %w", selector, err)
	}
	return el, isXPath, nil
}

func dispatch(el *rod.Element, in ActInput) error {
	switch in.Intent {
	case IntentClick:
		return el.Click(proto.InputMouseButtonLeft, 1)
	case IntentHover:
		return el.Hover()
	case IntentFocus:
		return el.Focus()
	case IntentType:
		if err := el.Focus(); err != nil {
			return err
		}
		if err := el.SelectAllText(); err != nil {
			return err
		}
		return el.Input(in.Value)
	case IntentClear:
		if err := el.Focus(); err != nil {
			return err
		}
		if err := el.SelectAllText(); err != nil {
			return err
		}
		return el.Input("")
	case IntentCheck:
		return ensureChecked(el, true)
	case IntentUncheck:
		return ensureChecked(el, false)
	case IntentSelect:
		return el.Select([]string{in.Value}, true, rod.SelectorTypeText)
	case IntentUpload:
		return el.SetFiles(uploadPaths(in.Value))
	default:
		return fmt.Errorf("unknown intent %q", in.Intent)
	}
}

// ensureChecked clicks el only when its current checked state differs from
// want, so repeated check/uncheck calls against an already-correct checkbox
// are idempotent instead of toggling it.
func ensureChecked(el *rod.Element, want bool) error {
	prop, err := el.Property("checked")
	if err != nil {
		return err
	}
	if prop.Bool() == want {
		return nil
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// uploadPaths splits a comma-separated Value into the file paths SetFiles
// expects, trimming whitespace around each.
func uploadPaths(value string) []string {
	parts := strings.Split(value, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// dismissOverlays tries a short fixed list of common overlay-close
// selectors, clicking any that are present and visible, before acting.
func dismissOverlays(page *rod.Page) []string {
	var dismissed []string
	for _, sel := range overlaySelectors {
		has, el, err := page.Has(sel)
		if err != nil || !has {
			continue
		}
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
			dismissed = append(dismissed, sel)
		}
	}
	return dismissed
}

func postActionState(ctx context.Context, page *rod.Page) (domHash, url string) {
	info, err := page.Info()
	if err == nil {
		url = info.URL
	}
	res, err := page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err == nil {
		domHash = snapshot.HashHTML([]byte(res.Value.Str()))
	}
	return domHash, url
}
