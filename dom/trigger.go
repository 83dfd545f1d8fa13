package dom

import (
	"fmt"
	"time"
)

// TriggerOption configures the Datastar attribute rendered by Selection.On.
type TriggerOption interface {
	apply(*triggerOpts)
}

type triggerOpts struct {
	prevent  bool
	window   bool
	debounce time.Duration
}

func (o triggerOpts) modifiers() string {
	var m string
	if o.window {
		m += "__window"
	}
	if o.prevent {
		m += "__prevent"
	}
	if o.debounce > 0 {
		m += fmt.Sprintf("__debounce.%dms", o.debounce.Milliseconds())
	}
	return m
}

type withPreventDefaultOpt struct{}

func (withPreventDefaultOpt) apply(opts *triggerOpts) { opts.prevent = true }

// WithPreventDefault calls preventDefault on the browser event.
func WithPreventDefault() TriggerOption { return withPreventDefaultOpt{} }

type withWindowOpt struct{}

func (withWindowOpt) apply(opts *triggerOpts) { opts.window = true }

// WithWindow scopes the event listener to the window instead of the element.
func WithWindow() TriggerOption { return withWindowOpt{} }

type withDebounceOpt struct{ d time.Duration }

func (o withDebounceOpt) apply(opts *triggerOpts) { opts.debounce = o.d }

// WithDebounce reports at most one event per quiet period d.
func WithDebounce(d time.Duration) TriggerOption { return withDebounceOpt{d} }

func applyOptions(options ...TriggerOption) triggerOpts {
	var opts triggerOpts
	for _, opt := range options {
		if opt != nil {
			opt.apply(&opts)
		}
	}
	return opts
}
