package dom

import (
	"testing"
	"time"

	"github.com/ryanhamamura/mvi/h"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, n h.H) string {
	t.Helper()
	s, err := h.String(n)
	require.NoError(t, err)
	return s
}

func TestEmitReachesSubscribers(t *testing.T) {
	src := NewSource()
	var got []Event
	src.Select(".inc").Events("click").Subscribe(func(e Event) { got = append(got, e) })

	ok, err := src.Emit("inc", "click")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = src.Emit(".inc", "click")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []Event{{"inc", "click"}, {"inc", "click"}}, got)
}

func TestEmitWithoutListeners(t *testing.T) {
	src := NewSource()

	ok, err := src.Emit("dec", "click")
	require.NoError(t, err)
	assert.False(t, ok)

	sub := src.Select("dec").Events("click").Subscribe(func(Event) {})
	assert.Equal(t, 1, src.Listening("dec", "click"))
	sub.Unsubscribe()

	ok, err = src.Emit("dec", "click")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectionsShareSubject(t *testing.T) {
	src := NewSource()
	calls := 0
	src.Select("inc").Events("click").Subscribe(func(Event) { calls++ })
	src.Select(".inc").Events("click").Subscribe(func(Event) { calls++ })

	_, err := src.Emit("inc", "click")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidSelector(t *testing.T) {
	src := NewSource()

	_, err := src.Emit("in c", "click")
	assert.ErrorIs(t, err, ErrInvalidSelector)
	_, err = src.Emit("inc", "cl'ick")
	assert.ErrorIs(t, err, ErrInvalidSelector)

	sel := src.Select("a/b")
	assert.ErrorIs(t, sel.Err("click"), ErrInvalidSelector)
	assert.Nil(t, sel.On("click"))
	assert.Equal(t, 0, sel.Events("click").Listeners())
}

func TestOnRendersTrigger(t *testing.T) {
	src := NewSource()
	inc := src.Select(".inc")

	body := render(t, h.Button(inc.OnClick()))
	assert.Contains(t, body, "data-on:click=")
	assert.Contains(t, body, "@get(&#39;/_event/inc/click&#39;)")

	body = render(t, h.Div(inc.On("keydown", WithWindow(), WithPreventDefault(), WithDebounce(200*time.Millisecond))))
	assert.Contains(t, body, "data-on:keydown__window__prevent__debounce.200ms=")
	assert.Contains(t, body, "/_event/inc/keydown")
}

func TestEventURL(t *testing.T) {
	assert.Equal(t, "/_event/dec/click", EventURL("dec", "click"))
}
