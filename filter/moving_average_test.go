package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMovingAverage6DWindowOneIsPassthrough(t *testing.T) {
	m := NewMovingAverage6D(1)
	assert.Equal(t, [6]float64{1, 2, 3, 4, 5, 6}, m.Filter([6]float64{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, [6]float64{7, 8, 9, 10, 11, 12}, m.Filter([6]float64{7, 8, 9, 10, 11, 12}))
}

func TestMovingAverage6DAveragesOverWindow(t *testing.T) {
	m := NewMovingAverage6D(3)
	m.Filter([6]float64{3, 0, 0, 0, 0, 0})
	m.Filter([6]float64{6, 0, 0, 0, 0, 0})
	out := m.Filter([6]float64{9, 0, 0, 0, 0, 0})
	assert.InDelta(t, 6.0, out[0], 1e-9)
}

func TestMovingAverage6DBeforeFullNotBiasedByZeros(t *testing.T) {
	m := NewMovingAverage6D(3)
	out := m.Filter([6]float64{9, 0, 0, 0, 0, 0})
	assert.InDelta(t, 9.0, out[0], 1e-9)
}

func TestMovingAverage6DPrefill(t *testing.T) {
	m := NewMovingAverage6D(3)
	m.Prefill([6]float64{5, 5, 5, 5, 5, 5})
	out := m.Filter([6]float64{5, 5, 5, 5, 5, 5})
	assert.InDelta(t, 5.0, out[0], 1e-9)
}

func TestMovingAverage6DReset(t *testing.T) {
	m := NewMovingAverage6D(2)
	m.Filter([6]float64{100, 0, 0, 0, 0, 0})
	m.Reset()
	out := m.Filter([6]float64{1, 0, 0, 0, 0, 0})
	assert.InDelta(t, 1.0, out[0], 1e-9)
}

func TestNewMovingAverage6DClampsWindow(t *testing.T) {
	m := NewMovingAverage6D(0)
	assert.Equal(t, [6]float64{1, 1, 1, 1, 1, 1}, m.Filter([6]float64{1, 1, 1, 1, 1, 1}))
}
