package animator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stylefx/internal/effect"
	"github.com/roach88/stylefx/internal/render"
	"github.com/roach88/stylefx/internal/testutil"
	"github.com/roach88/stylefx/internal/trace"
)

const box render.Target = "box"

func setup(t *testing.T, opts ...Option) (*Animator, *render.Recorder) {
	t.Helper()
	rec := render.NewRecorder()
	opts = append([]Option{WithLogger(testutil.DiscardLogger())}, opts...)
	return New(box, rec, opts...), rec
}

func timing(t *testing.T, expr string) effect.Timing {
	t.Helper()
	tm, err := effect.ParseTiming(expr)
	require.NoError(t, err)
	return tm
}

func styles(t *testing.T, s map[string]string, expr string) *effect.Effect {
	t.Helper()
	return effect.MustNew(nil, s, timing(t, expr))
}

func add(t *testing.T, a *Animator, e *effect.Effect) *effect.Effect {
	t.Helper()
	require.NoError(t, a.AddEffect(e))
	return e
}

func flush(t *testing.T, a *Animator) {
	t.Helper()
	_, err := a.FlushEffects()
	require.NoError(t, err)
}

func countDone(a *Animator) *int {
	n := new(int)
	a.OnAllEffectsDone(func() { *n++ })
	return n
}

func TestAnimator_AnimatesStyles(t *testing.T) {
	a, rec := setup(t)
	doc := rec.Document()
	add(t, a, styles(t, map[string]string{"width": "100px", "height": "200px"}, "1s"))

	assert.Equal(t, "", doc.Transition(box))
	assert.Equal(t, "", doc.Style(box, "width"))

	started, err := a.FlushEffects()
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, "1000ms all 0ms", doc.Transition(box))
	assert.Equal(t, "100px", doc.Style(box, "width"))
	assert.Equal(t, "200px", doc.Style(box, "height"))
}

func TestAnimator_AnimatesClasses(t *testing.T) {
	a, rec := setup(t)
	doc := rec.Document()
	doc.SetClass(box, "bar", true)

	add(t, a, effect.MustNew(map[string]bool{"foo": true, "bar": false, "baz": true}, nil, timing(t, "2s 1s")))
	flush(t, a)

	assert.Equal(t, "2000ms all 1000ms", doc.Transition(box))
	assert.True(t, doc.HasClass(box, "foo"))
	assert.False(t, doc.HasClass(box, "bar"))
	assert.True(t, doc.HasClass(box, "baz"))
}

func TestAnimator_SequencesEffectsAcrossYields(t *testing.T) {
	a, rec := setup(t)
	doc := rec.Document()
	add(t, a, styles(t, map[string]string{"width": "100px"}, "1234ms"))
	add(t, a, effect.MustNew(map[string]bool{"foo": true}, nil, effect.Millis(5678)))

	flush(t, a)
	assert.Equal(t, "1234ms all 0ms", doc.Transition(box))
	assert.Equal(t, "100px", doc.Style(box, "width"))
	assert.False(t, doc.HasClass(box, "foo"))

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "1234ms all 0ms, 5678ms all 0ms", doc.Transition(box))
	assert.True(t, doc.HasClass(box, "foo"))
}

func TestAnimator_StateTransitions(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"width": "100px"}, "1234ms"))
	add(t, a, styles(t, map[string]string{"height": "100px"}, "1234ms"))
	assert.Equal(t, Idle, a.State())

	flush(t, a)
	assert.Equal(t, ProcessingEffects, a.State())

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, Running, a.State())

	require.NoError(t, a.FinishAll())
	assert.Equal(t, Exiting, a.State())

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, Idle, a.State())

	require.NoError(t, a.Destroy())
	assert.Equal(t, Exiting, a.State())

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, Destroyed, a.State())
}

func TestAnimator_FinishAllClearsTransitionAndNotifies(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"width": "100px"}, "1234ms"))
	add(t, a, styles(t, map[string]string{"height": "200px"}, "5678ms"))
	done := countDone(a)

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "1234ms all 0ms, 5678ms all 0ms", rec.Document().Transition(box))
	assert.Equal(t, 0, *done)

	require.NoError(t, a.FinishAll())
	assert.Equal(t, 0, *done)

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "", rec.Document().Transition(box))
	assert.Equal(t, 1, *done)
}

func TestAnimator_CompletesOnTransitionEnd(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"width": "100px"}, "1000ms"))
	add(t, a, styles(t, map[string]string{"height": "200px"}, "1s 0.5s"))
	done := countDone(a)

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, Running, a.State())
	assert.Equal(t, 1500.0, a.MaxTime())

	require.NoError(t, rec.EndTransition(box, 500))
	assert.Equal(t, 0, *done)

	require.NoError(t, rec.EndTransition(box, 1000))
	assert.Equal(t, 0, *done)

	require.NoError(t, rec.EndTransition(box, 1500))
	assert.Equal(t, 1, *done)
	assert.Equal(t, Idle, a.State())
}

func TestAnimator_CompletesOnFallbackTimer(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"width": "100px"}, "1000ms"))
	add(t, a, styles(t, map[string]string{"height": "200px"}, "1s 0.5s"))
	done := countDone(a)

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, Running, a.State())

	for i := 0; i < 3; i++ {
		require.NoError(t, rec.Advance(500))
		assert.Equal(t, 0, *done, "after %vms", (i+1)*500)
	}

	require.NoError(t, rec.Advance(500))
	assert.Equal(t, 1, *done)
	assert.Equal(t, "", rec.Document().Transition(box))
}

func TestAnimator_FallbackWaitsForQueuedEffects(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"width": "100px"}, "1000ms"))
	done := countDone(a)
	flush(t, a)

	require.NoError(t, rec.Advance(1499))
	add(t, a, styles(t, map[string]string{"height": "200px"}, "100ms"))
	assert.Equal(t, 1599.0, a.MaxTime())
	a.ScheduleFlush()

	require.NoError(t, rec.Advance(1))
	assert.Equal(t, 0, *done, "an unapplied effect holds the batch open")
	assert.Equal(t, Running, a.State())

	require.NoError(t, rec.EndTransition(box, 5000))
	assert.Equal(t, 0, *done)

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "200px", rec.Document().Style(box, "height"))
	assert.Equal(t, 1, rec.PendingTimers())

	require.NoError(t, rec.Advance(2098))
	assert.Equal(t, 0, *done)
	require.NoError(t, rec.Advance(1))
	assert.Equal(t, 1, *done)
	assert.Equal(t, Idle, a.State())
}

func TestAnimator_FallbackBufferOption(t *testing.T) {
	a, rec := setup(t, WithFallbackBuffer(0))
	add(t, a, styles(t, map[string]string{"width": "100px"}, "1000ms"))
	done := countDone(a)
	flush(t, a)

	require.NoError(t, rec.Advance(1000))
	assert.Equal(t, 1, *done)
}

func TestAnimator_SignalAndTimerRace(t *testing.T) {
	t.Run("signal first", func(t *testing.T) {
		a, rec := setup(t)
		add(t, a, styles(t, map[string]string{"width": "100px"}, "1000ms"))
		done := countDone(a)
		flush(t, a)

		require.NoError(t, rec.EndTransition(box, 1000))
		assert.Equal(t, 1, *done)
		assert.Equal(t, 0, rec.PendingTimers(), "finalizing clears the fallback timer")

		require.NoError(t, rec.Advance(5000))
		assert.Equal(t, 1, *done)
	})

	t.Run("timer first", func(t *testing.T) {
		a, rec := setup(t)
		add(t, a, styles(t, map[string]string{"width": "100px"}, "1000ms"))
		done := countDone(a)
		flush(t, a)

		require.NoError(t, rec.Advance(1500))
		assert.Equal(t, 1, *done)

		require.NoError(t, rec.EndTransition(box, 1000))
		assert.Equal(t, 1, *done)
		assert.Equal(t, Idle, a.State())
	})
}

func TestAnimator_MergesIntoRunningBatch(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"width": "100px"}, "1s 100ms"))

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, Running, a.State())
	assert.Equal(t, "1000ms all 100ms", rec.Document().Transition(box))

	add(t, a, styles(t, map[string]string{"height": "100px"}, "2s 200ms"))
	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, Running, a.State())
	assert.Equal(t, "1000ms all 100ms, 2000ms all 200ms", rec.Document().Transition(box))
}

func TestAnimator_MergedEffectExtendsCompletion(t *testing.T) {
	a, rec := setup(t)
	done := countDone(a)
	add(t, a, styles(t, map[string]string{"width": "100px"}, "1s 500ms"))
	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, Running, a.State())

	add(t, a, styles(t, map[string]string{"height": "100px"}, "2s 500ms"))
	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, Running, a.State())

	require.NoError(t, rec.EndTransition(box, 1200))
	assert.Equal(t, 0, *done)

	require.NoError(t, rec.EndTransition(box, 2200))
	assert.Equal(t, 0, *done)

	require.NoError(t, rec.EndTransition(box, 3200))
	assert.Equal(t, 1, *done)
}

func TestAnimator_MaxTimeIncludesElapsed(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"width": "1px"}, "1000ms"))
	add(t, a, styles(t, map[string]string{"width": "2px"}, "500ms 800ms"))
	add(t, a, styles(t, map[string]string{"width": "3px"}, "200ms"))
	assert.Equal(t, 1300.0, a.MaxTime(), "nothing has elapsed before the first flush")

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	require.NoError(t, rec.FlushYields(0))
	require.Equal(t, Running, a.State())

	require.NoError(t, rec.Advance(400))
	add(t, a, styles(t, map[string]string{"height": "1px"}, "2s 500ms"))
	assert.Equal(t, 2900.0, a.MaxTime())

	add(t, a, styles(t, map[string]string{"height": "2px"}, "100ms"))
	assert.Equal(t, 2900.0, a.MaxTime(), "a shorter merged effect does not shrink the batch")
}

func TestAnimator_PrecomputesClearedDimensions(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"width": "100px", "opacity": "0"}, "1000ms"))

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, []string{"1000ms all 0ms"}, rec.TransitionLog())
	assert.Empty(t, rec.ComputedLog())

	add(t, a, styles(t, map[string]string{"width": ""}, "1500ms"))
	assert.Len(t, rec.TransitionLog(), 1)
	assert.Empty(t, rec.ComputedLog())

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))

	assert.Equal(t, []string{
		"1000ms all 0ms",
		"1000ms all 0ms, 1500ms width -1500ms",
		"1000ms all 0ms, 1500ms all 0ms",
	}, rec.TransitionLog())
	assert.Equal(t, []string{"width", "width"}, rec.ComputedLog())
}

func TestAnimator_PrecomputesAutoStyles(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"height": "100px", "opacity": "1", "color": "red"}, "1000ms"))

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, []string{"1000ms all 0ms"}, rec.TransitionLog())
	assert.Empty(t, rec.ComputedLog())

	add(t, a, styles(t, map[string]string{"height": "", "opacity": effect.Auto}, "2000ms 500ms"))
	flush(t, a)
	require.NoError(t, rec.FlushYields(0))

	assert.Equal(t, []string{
		"1000ms all 0ms",
		"1000ms all 0ms, 2000ms all -2000ms",
		"1000ms all 0ms, 2000ms all 500ms",
	}, rec.TransitionLog())
	assert.Equal(t, []string{"height", "opacity", "height", "opacity"}, rec.ComputedLog())
}

func TestAnimator_NoYieldForSingleEffect(t *testing.T) {
	a, rec := setup(t)
	add(t, a, effect.MustNew(map[string]bool{"active": true},
		map[string]string{"height": "100px", "width": "200px"}, effect.Millis(1000)))

	assert.Equal(t, 0, rec.QueuedYields())
	assert.Equal(t, 0, rec.FlushedReflows())

	flush(t, a)
	assert.Equal(t, 0, rec.QueuedYields())
	assert.Equal(t, 0, rec.FlushedReflows())

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, 0, rec.QueuedYields())
	assert.Equal(t, 0, rec.FlushedReflows())
}

func TestAnimator_OneYieldBetweenEffects(t *testing.T) {
	a, rec := setup(t)
	add(t, a, effect.MustNew(map[string]bool{"active": true},
		map[string]string{"height": "100px", "width": "200px"}, effect.Millis(1000)))
	add(t, a, effect.MustNew(map[string]bool{"active": true},
		map[string]string{"height": "200px", "width": "300px"}, effect.Millis(1000)))

	flush(t, a)
	assert.Equal(t, 1, rec.QueuedYields())
	assert.Equal(t, 0, rec.FlushedReflows())

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, 0, rec.QueuedYields())
	assert.Equal(t, 1, rec.FlushedReflows())
}

func TestAnimator_ScheduleFlushIsIdempotent(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"height": "100px", "width": "200px"}, "1000ms"))

	a.ScheduleFlush()
	assert.Equal(t, 1, rec.QueuedYields())
	assert.Equal(t, 0, rec.FlushedReflows())

	a.ScheduleFlush()
	assert.Equal(t, 1, rec.QueuedYields())
	assert.Equal(t, 1, a.PendingFrames())

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, 0, rec.QueuedYields())
	assert.Equal(t, 1, rec.FlushedReflows())
	assert.Equal(t, []string{"1000ms all 0ms"}, rec.TransitionLog(), "exactly one flush")
	assert.Equal(t, 1, trace.Count(rec.Events(), trace.KindTimerSet))

	a.ScheduleFlush()
	assert.Equal(t, 1, rec.QueuedYields(), "a new flush can be scheduled after the last one ran")
}

func TestAnimator_PrecomputeReflows(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"height": "100px", "width": "200px"}, "1000ms"))

	flush(t, a)
	assert.Equal(t, 0, rec.QueuedYields())
	assert.Equal(t, 0, rec.FlushedReflows())

	add(t, a, styles(t, map[string]string{"height": "", "width": ""}, "1000ms"))
	add(t, a, styles(t, map[string]string{"opacity": "1"}, "1000ms"))
	assert.Equal(t, 0, rec.QueuedYields())

	flush(t, a)
	assert.Equal(t, 1, rec.QueuedYields())
	// two measurements before the seek, two after, one forced reflow
	assert.Equal(t, 5, rec.FlushedReflows())

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, 0, rec.QueuedYields())
	assert.Equal(t, 6, rec.FlushedReflows())
}

func TestAnimator_FinishAllSingleYield(t *testing.T) {
	a, rec := setup(t)
	doc := rec.Document()
	add(t, a, styles(t, map[string]string{"height": "100px", "width": "200px"}, "1000ms ease-out"))
	add(t, a, styles(t, map[string]string{"opacity": "1"}, "1234ms 5s ease-in"))

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, 0, rec.QueuedYields())
	assert.Equal(t, 1, rec.FlushedReflows())
	assert.Equal(t, "1000ms all 0ms ease-out, 1234ms all 5000ms ease-in", doc.Transition(box))

	require.NoError(t, a.FinishAll())
	assert.Equal(t, 1, rec.QueuedYields())
	assert.Equal(t, 1, rec.FlushedReflows())
	assert.Equal(t, CancelAll, doc.Transition(box))
	assert.Equal(t, map[string]string{"height": "100px", "width": "200px", "opacity": "1"}, doc.Styles(box))

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, 0, rec.QueuedYields())
	assert.Equal(t, 2, rec.FlushedReflows())
	assert.Equal(t, "", doc.Transition(box))
	assert.Equal(t, map[string]string{"height": "100px", "width": "200px", "opacity": "1"}, doc.Styles(box))
}

func TestAnimator_FinishAllIsNoopWhileExiting(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"width": "1px"}, "1000ms"))
	flush(t, a)

	require.NoError(t, a.FinishAll())
	require.NoError(t, a.FinishAll())
	assert.Equal(t, 1, a.PendingFrames())
	assert.Equal(t, []string{"1000ms all 0ms", CancelAll}, rec.TransitionLog())
}

func TestAnimator_FinishEffect(t *testing.T) {
	a, rec := setup(t)
	doc := rec.Document()
	e1 := add(t, a, styles(t, map[string]string{"height": "100px", "width": "200px"}, "1000ms ease-out"))
	add(t, a, styles(t, map[string]string{"opacity": "1"}, "1234ms 5s ease-in"))

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, 1, rec.FlushedReflows())
	assert.Equal(t, "200px", doc.Style(box, "width"))

	a.FinishEffect(e1)
	assert.Equal(t, 1, rec.QueuedYields())
	assert.Equal(t, 1, rec.FlushedReflows())
	assert.Equal(t, "1000ms all 0ms ease-out, 1234ms all 5000ms ease-in", doc.Transition(box))

	require.NoError(t, rec.FlushYields(1))
	assert.Equal(t, "1000ms all 0ms ease-out, 1234ms all 5000ms ease-in, 0s all", doc.Transition(box))
	assert.Equal(t, "", doc.Style(box, "width"))
	assert.Equal(t, "", doc.Style(box, "height"))
	assert.Equal(t, "1", doc.Style(box, "opacity"))
	assert.Equal(t, 1, rec.QueuedYields())
	assert.Equal(t, 2, rec.FlushedReflows())

	require.NoError(t, rec.FlushYields(1))
	assert.Equal(t, "200px", doc.Style(box, "width"))
	assert.Equal(t, "100px", doc.Style(box, "height"))
	assert.Equal(t, "1", doc.Style(box, "opacity"))
	assert.Equal(t, 1, rec.QueuedYields())
	assert.Equal(t, 3, rec.FlushedReflows())
	assert.Equal(t, "1000ms all 0ms ease-out, 1234ms all 5000ms ease-in, 0s all", doc.Transition(box))

	require.NoError(t, rec.FlushYields(1))
	assert.Equal(t, 1, a.ActiveEffects(), "finished effect leaves the batch")
	assert.Equal(t, Running, a.State(), "the longer effect keeps the batch running")
}

func TestAnimator_FinishLongestEffectFinalizes(t *testing.T) {
	a, rec := setup(t)
	done := countDone(a)
	e := add(t, a, styles(t, map[string]string{"width": "200px"}, "1000ms"))
	flush(t, a)

	a.FinishEffect(e)
	for rec.QueuedYields() > 0 {
		require.NoError(t, rec.FlushYields(0))
	}
	assert.Equal(t, 1, *done)
	assert.Equal(t, Idle, a.State())
	assert.Equal(t, "200px", rec.Document().Style(box, "width"))
}

func TestAnimator_DestroyEffect(t *testing.T) {
	a, rec := setup(t)
	doc := rec.Document()
	done := countDone(a)
	e := add(t, a, effect.MustNew(map[string]bool{"open": true}, map[string]string{"width": "200px"}, effect.Millis(1000)))
	flush(t, a)
	assert.True(t, doc.HasClass(box, "open"))

	a.DestroyEffect(e)
	require.NoError(t, rec.FlushYields(0))
	assert.False(t, doc.HasClass(box, "open"))
	assert.Equal(t, "", doc.Style(box, "width"))
	assert.Equal(t, 1, rec.QueuedYields(), "removal waits one more yield")

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, 0, rec.QueuedYields())
	assert.Equal(t, 1, *done)
	assert.False(t, doc.HasClass(box, "open"), "destroyed effect is not re-applied")
}

func TestAnimator_DestroyWithTracking(t *testing.T) {
	a, rec := setup(t, WithStylingTracking())
	doc := rec.Document()
	add(t, a, styles(t, map[string]string{"height": "100px", "width": "200px"}, "1000ms ease-out"))

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "200px", doc.Style(box, "width"))
	assert.Equal(t, "100px", doc.Style(box, "height"))
	assert.Equal(t, "1000ms all 0ms ease-out", doc.Transition(box))

	require.NoError(t, a.Destroy())
	assert.Equal(t, CancelAll, doc.Transition(box))
	assert.Equal(t, "200px", doc.Style(box, "width"))
	assert.Equal(t, "100px", doc.Style(box, "height"))

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "", doc.Transition(box))
	assert.Equal(t, "", doc.Style(box, "width"))
	assert.Equal(t, "", doc.Style(box, "height"))
	assert.Equal(t, Destroyed, a.State())
}

func TestAnimator_DestroyTrackingRevertsClasses(t *testing.T) {
	a, rec := setup(t, WithStylingTracking())
	doc := rec.Document()
	doc.SetClass(box, "closed", true)
	add(t, a, effect.MustNew(map[string]bool{"open": true, "closed": false}, nil, effect.Millis(100)))
	flush(t, a)
	assert.Equal(t, []string{"open"}, doc.Classes(box))

	require.NoError(t, a.Destroy())
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, []string{"closed"}, doc.Classes(box))
}

func TestAnimator_DestroyWithoutTrackingKeepsStyling(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"width": "200px"}, "1000ms"))
	flush(t, a)

	require.NoError(t, a.Destroy())
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "200px", rec.Document().Style(box, "width"))
}

func TestAnimator_DestroyAlwaysClearsTransition(t *testing.T) {
	a, rec := setup(t)
	done := countDone(a)
	add(t, a, styles(t, map[string]string{"width": "1px"}, "100ms"))
	add(t, a, styles(t, map[string]string{"height": "1px"}, "200ms"))
	add(t, a, styles(t, map[string]string{"opacity": "1"}, "300ms"))
	flush(t, a)
	require.NoError(t, rec.FlushYields(0))

	require.NoError(t, a.Destroy())
	require.NoError(t, rec.FlushYields(0))
	require.NoError(t, rec.FlushYields(0))

	assert.Equal(t, "", rec.Document().Transition(box))
	assert.Equal(t, Destroyed, a.State())
	assert.Equal(t, 1, *done, "waiting listeners are released on destroy")
	assert.Equal(t, 0, rec.PendingTimers())
	assert.Equal(t, 0, a.QueuedEffects())
}

func TestAnimator_DestroyedRejectsWork(t *testing.T) {
	a, rec := setup(t)
	require.NoError(t, a.Destroy())

	err := a.AddEffect(styles(t, map[string]string{"width": "1px"}, "1s"))
	assert.True(t, IsDestroyed(err))

	require.NoError(t, rec.FlushYields(0))
	err = a.AddEffect(styles(t, map[string]string{"width": "1px"}, "1s"))
	assert.True(t, IsDestroyed(err))

	started, err := a.FlushEffects()
	require.NoError(t, err)
	assert.False(t, started)

	a.ScheduleFlush()
	a.FinishEffect(styles(t, map[string]string{"width": "1px"}, "1s"))
	assert.Equal(t, 0, rec.QueuedYields())
	require.NoError(t, a.Destroy(), "second destroy is a no-op")
	assert.Equal(t, 1, trace.Count(rec.Events(), trace.KindUnlisten))
}

func TestAnimator_MemoizesIdenticalTokens(t *testing.T) {
	a, rec := setup(t)
	add(t, a, styles(t, map[string]string{"height": "100px", "width": "200px"}, "1000ms ease-out"))
	add(t, a, styles(t, map[string]string{"height": "100px", "width": "200px"}, "1s ease-out"))

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "1000ms all 0ms ease-out", rec.Document().Transition(box))
	assert.Equal(t, []string{"1000ms all 0ms ease-out"}, rec.TransitionLog())
}

func TestAnimator_AutoStyleRemovedAfterFinish(t *testing.T) {
	a, rec := setup(t)
	doc := rec.Document()
	e := add(t, a, styles(t, map[string]string{"height": effect.Auto, "width": "200px"}, "1000ms ease-out"))
	rec.SetComputed(box, "height", "456px")

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "456px", doc.Style(box, "height"))

	a.FinishEffect(e)
	assert.Equal(t, "456px", doc.Style(box, "height"))

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "", doc.Style(box, "height"))

	for rec.QueuedYields() > 0 {
		require.NoError(t, rec.FlushYields(0))
	}
	assert.Equal(t, "", doc.Style(box, "height"))
	assert.Equal(t, "200px", doc.Style(box, "width"))
	assert.Equal(t, Idle, a.State())
}

func TestAnimator_OnlyUnchangedAutoStylesAreRemoved(t *testing.T) {
	a, rec := setup(t)
	doc := rec.Document()
	add(t, a, styles(t, map[string]string{"height": effect.Auto, "width": effect.Auto}, "1000ms ease-out"))
	add(t, a, styles(t, map[string]string{"height": "555px", "width": effect.Auto}, "1000ms ease-out"))
	rec.SetComputed(box, "width", "333px")
	rec.SetComputed(box, "height", "999px")

	flush(t, a)
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "333px", doc.Style(box, "width"))
	assert.Equal(t, "555px", doc.Style(box, "height"))

	require.NoError(t, a.FinishAll())
	assert.Equal(t, "333px", doc.Style(box, "width"))
	assert.Equal(t, "555px", doc.Style(box, "height"))

	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, "", doc.Style(box, "width"))
	assert.Equal(t, "555px", doc.Style(box, "height"))
}

func TestAnimator_ZeroDurationIsValid(t *testing.T) {
	a, rec := setup(t)
	done := countDone(a)
	add(t, a, styles(t, map[string]string{"width": "1px"}, "0ms"))
	flush(t, a)
	assert.Equal(t, "0ms all 0ms", rec.Document().Transition(box))

	require.NoError(t, rec.EndTransition(box, 0))
	assert.Equal(t, 1, *done)
}

func TestAnimator_OnAllEffectsDoneUnsubscribe(t *testing.T) {
	a, rec := setup(t)
	calls := 0
	unsubscribe := a.OnAllEffectsDone(func() { calls++ })
	unsubscribe()
	unsubscribe()

	add(t, a, styles(t, map[string]string{"width": "1px"}, "10ms"))
	flush(t, a)
	require.NoError(t, rec.EndTransition(box, 10))
	assert.Equal(t, 0, calls)
}

func TestAnimator_ListenersFireOncePerBatch(t *testing.T) {
	a, rec := setup(t)
	done := countDone(a)

	add(t, a, styles(t, map[string]string{"width": "1px"}, "10ms"))
	flush(t, a)
	require.NoError(t, rec.EndTransition(box, 10))
	assert.Equal(t, 1, *done)

	add(t, a, styles(t, map[string]string{"width": "2px"}, "10ms"))
	flush(t, a)
	require.NoError(t, rec.EndTransition(box, 10))
	assert.Equal(t, 1, *done, "listeners are cleared after they fire")
}

func TestAnimator_RemoveQueued(t *testing.T) {
	a, rec := setup(t)
	e := add(t, a, styles(t, map[string]string{"width": "1px"}, "10ms"))
	assert.True(t, a.RemoveQueued(e))
	assert.False(t, a.RemoveQueued(e))
	assert.Equal(t, 0.0, a.MaxTime())

	started, err := a.FlushEffects()
	require.NoError(t, err)
	assert.False(t, started)
	assert.Empty(t, rec.TransitionLog())
}

func TestAnimator_PortFailurePropagates(t *testing.T) {
	a, rec := setup(t)
	boom := errors.New("detached")
	add(t, a, styles(t, map[string]string{"width": "1px"}, "10ms"))
	rec.FailOn(render.OpApplyStyle, boom)

	started, err := a.FlushEffects()
	assert.True(t, started)
	require.Error(t, err)
	assert.True(t, IsPortFailure(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ProcessingEffects, a.State(), "no rollback")
	assert.Equal(t, 1, rec.PendingTimers(), "fallback timer is still armed")

	rec.FailOn(render.OpApplyStyle, nil)
	done := countDone(a)
	require.NoError(t, a.FinishAll())
	require.NoError(t, rec.FlushYields(0))
	assert.Equal(t, Idle, a.State())
	assert.Equal(t, 1, *done)
}

func TestAnimator_FailedFrameKeepsLaterCallbacks(t *testing.T) {
	a, rec := setup(t)
	e1 := add(t, a, styles(t, map[string]string{"width": "1px"}, "10ms"))
	e2 := add(t, a, styles(t, map[string]string{"height": "1px"}, "10ms"))

	rec.FailOn(render.OpSetTransition, errors.New("boom"))
	a.FinishEffect(e1)
	a.FinishEffect(e2)

	err := rec.FlushYields(0)
	assert.True(t, IsPortFailure(err))
	assert.Equal(t, 1, a.PendingFrames())
	assert.Equal(t, 1, rec.QueuedYields())

	rec.FailOn(render.OpSetTransition, nil)
	for rec.QueuedYields() > 0 {
		require.NoError(t, rec.FlushYields(0))
	}
	assert.Equal(t, "1px", rec.Document().Style(box, "height"), "second finish reached its revert and re-apply")
}

func TestState_String(t *testing.T) {
	for _, s := range []State{Idle, ProcessingEffects, Running, Exiting, Destroyed} {
		parsed, ok := ParseState(s.String())
		require.True(t, ok)
		assert.Equal(t, s, parsed)
	}
	assert.Equal(t, "unknown", State(42).String())

	_, ok := ParseState("paused")
	assert.False(t, ok)
}
