package overlay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifier_TapStaysWithinThreshold(t *testing.T) {
	c := NewClassifier(10)

	c.Down(Position{X: 100, Y: 100})
	_, dragging := c.Move(Position{X: 104, Y: 103}) // displacement 5
	require.False(t, dragging)
	_, dragging = c.Move(Position{X: 100, Y: 100})
	require.False(t, dragging)
	require.Equal(t, OutcomeTap, c.Up())
}

func TestClassifier_ExactThresholdIsStillATap(t *testing.T) {
	c := NewClassifier(10)

	c.Down(Position{X: 0, Y: 0})
	_, dragging := c.Move(Position{X: 10, Y: 0})
	require.False(t, dragging)
	require.Equal(t, OutcomeTap, c.Up())
}

func TestClassifier_DragCatchesUpWithPointer(t *testing.T) {
	c := NewClassifier(10)

	c.Down(Position{X: 0, Y: 0})
	_, dragging := c.Move(Position{X: 6, Y: 0})
	require.False(t, dragging)

	// Crossing the threshold: the first drag delta covers the whole
	// displacement from touch-down, not just since the last event.
	delta, dragging := c.Move(Position{X: 15, Y: 0})
	require.True(t, dragging)
	require.Equal(t, Position{X: 15, Y: 0}, delta)

	delta, dragging = c.Move(Position{X: 20, Y: 5})
	require.True(t, dragging)
	require.Equal(t, Position{X: 5, Y: 5}, delta)

	require.Equal(t, OutcomeDrag, c.Up())
}

func TestClassifier_DragDoesNotRevertToTap(t *testing.T) {
	c := NewClassifier(10)

	c.Down(Position{X: 0, Y: 0})
	_, dragging := c.Move(Position{X: 30, Y: 0})
	require.True(t, dragging)

	// Returning to the origin before release is still a drag.
	_, dragging = c.Move(Position{X: 1, Y: 0})
	require.True(t, dragging)
	require.Equal(t, OutcomeDrag, c.Up())
}

func TestClassifier_UpWithoutDown(t *testing.T) {
	c := NewClassifier(10)
	require.Equal(t, OutcomeNone, c.Up())

	_, dragging := c.Move(Position{X: 50, Y: 50})
	require.False(t, dragging)
}
