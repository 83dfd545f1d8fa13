package page

import (
	"testing"

	"github.com/ryanhamamura/mvi/dom"
	"github.com/ryanhamamura/mvi/h"
	"github.com/ryanhamamura/mvi/state"
	"github.com/ryanhamamura/mvi/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	src   Sources
	state *stream.Stream[state.Snapshot]
}

func newHarness(count int) *harness {
	return &harness{
		src:   Sources{DOM: dom.NewSource()},
		state: stream.Hold(state.Default().WithCount(count)),
	}
}

func (hs *harness) click(t *testing.T, selector string) {
	t.Helper()
	_, err := hs.src.DOM.Emit(selector, "click")
	require.NoError(t, err)
}

func renderAll(t *testing.T, views []h.H) []string {
	t.Helper()
	out := make([]string, 0, len(views))
	for _, v := range views {
		s, err := h.String(v)
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func subscribeViews(c Component) (*[]h.H, *stream.Subscription) {
	views := &[]h.H{}
	sub := c.View.Subscribe(func(v h.H) { *views = append(*views, v) })
	return views, sub
}

func TestCounterView(t *testing.T) {
	hs := newHarness(3)
	c := Counter(hs.src, Inputs{State: hs.state, Props: stream.Hold(Props{Title: "Page 1"})})
	views, _ := subscribeViews(c)

	out := renderAll(t, *views)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], `<div class="child">`)
	assert.Contains(t, out[0], "<div>Page 1</div>")
	assert.Contains(t, out[0], "<div>Current count: 3</div>")
	assert.Contains(t, out[0], `class="inc"`)
	assert.Contains(t, out[0], "/_event/inc/click")
	assert.Contains(t, out[0], "/_event/dec/click")
	assert.Contains(t, out[0], ">+</button>")
	assert.Contains(t, out[0], ">-</button>")
	assert.Contains(t, out[0], `href="/"`)
	assert.Contains(t, out[0], "Back to root")
}

func TestCounterIntent(t *testing.T) {
	hs := newHarness(0)
	c := Counter(hs.src, Inputs{State: hs.state, Props: stream.Hold(Props{Title: "t"})})
	var deltas []int
	c.Change.Subscribe(func(d int) { deltas = append(deltas, d) })

	hs.click(t, "inc")
	hs.click(t, "inc")
	hs.click(t, "dec")
	_, err := hs.src.DOM.Emit("inc", "keydown")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1, -1}, deltas)
}

func TestCounterRerendersOnEitherInput(t *testing.T) {
	hs := newHarness(0)
	props := stream.Hold(Props{Title: "Page 1"})
	c := Counter(hs.src, Inputs{State: hs.state, Props: props})
	views, _ := subscribeViews(c)

	props.Emit(Props{Title: "Renamed"})
	hs.state.Emit(state.Default().WithCount(7))

	out := renderAll(t, *views)
	require.Len(t, out, 3)
	assert.Contains(t, out[1], "<div>Renamed</div>")
	assert.Contains(t, out[1], "Current count: 0")
	assert.Contains(t, out[2], "<div>Renamed</div>")
	assert.Contains(t, out[2], "Current count: 7")
}

func TestCounterWithoutProps(t *testing.T) {
	hs := newHarness(1)
	views, _ := subscribeViews(Counter(hs.src, Inputs{State: hs.state}))

	out := renderAll(t, *views)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Current count: 1")
}

func TestHomeView(t *testing.T) {
	hs := newHarness(2)
	c := Home(hs.src, Inputs{State: hs.state})
	views, _ := subscribeViews(c)
	hs.state.Emit(state.Default().WithCount(5))

	out := renderAll(t, *views)
	require.Len(t, out, 2)
	assert.Contains(t, out[0], `<div class="root">`)
	assert.Contains(t, out[0], "<div>Root</div>")
	assert.Contains(t, out[0], "Current count: 2")
	assert.Contains(t, out[0], `href="/page1"`)
	assert.Contains(t, out[0], "Go to page 1")
	assert.Contains(t, out[0], `href="/page2"`)
	assert.Contains(t, out[0], "/_nav/page2")
	assert.Contains(t, out[1], "Current count: 5")
}

func TestHomeNeverChanges(t *testing.T) {
	hs := newHarness(0)
	c := Home(hs.src, Inputs{State: hs.state})
	var deltas []int
	c.Change.Subscribe(func(d int) { deltas = append(deltas, d) })

	hs.click(t, "inc")
	assert.Empty(t, deltas)
}

func TestRecreatedComponentRendersIdentically(t *testing.T) {
	hs := newHarness(4)
	props := Props{Title: "Page 2"}

	first := Counter(hs.src, Inputs{State: hs.state, Props: stream.Hold(props)})
	firstViews, sub := subscribeViews(first)
	changeSub := first.Change.Subscribe(func(int) {})
	hs.click(t, "inc")
	hs.click(t, "dec")
	sub.Unsubscribe()
	changeSub.Unsubscribe()

	second := Counter(hs.src, Inputs{State: hs.state, Props: stream.Hold(props)})
	secondViews, _ := subscribeViews(second)

	a := renderAll(t, *firstViews)
	b := renderAll(t, *secondViews)
	require.NotEmpty(t, a)
	require.Len(t, b, 1)
	assert.Equal(t, a[len(a)-1], b[0])
	assert.Equal(t, 0, hs.src.DOM.Listening("inc", "click"))
}
