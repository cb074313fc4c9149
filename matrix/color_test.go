package matrix_test

import (
	"image/color"
	"strconv"
	"testing"

	"github.com/coreman2200/funtimes-directmatrix/matrix"
	"github.com/stretchr/testify/assert"
)

var planePackingCases = []struct {
	plane  int
	value  uint8
	expect matrix.Color
}{
	{0, 0xF, 0x000F},
	{1, 0xA, 0x00A0},
	{2, 0x3, 0x0300},
	{3, 0x7, 0x7000},
}

func TestColorPlanePacking(t *testing.T) {
	for k, c := range planePackingCases {
		t.Run("Plane"+strconv.Itoa(k), func(t *testing.T) {
			col := matrix.Color(0).WithPlane(c.plane, c.value)
			assert.Equal(t, c.expect, col, "packed word")
			assert.Equal(t, c.value, col.Plane(c.plane), "round trip")
		})
	}
}

func TestColorWithPlaneKeepsOtherPlanes(t *testing.T) {
	col := matrix.RGB(0x1, 0x2, 0x3)
	assert.Equal(t, matrix.Color(0x0321), col)

	col = col.WithPlane(1, 0xF)
	assert.Equal(t, uint8(0x1), col.Plane(0))
	assert.Equal(t, uint8(0xF), col.Plane(1))
	assert.Equal(t, uint8(0x3), col.Plane(2))
}

func TestColorOutOfRangePlane(t *testing.T) {
	col := matrix.Gray(0xF)
	assert.Equal(t, col, col.WithPlane(4, 0x5))
	assert.Equal(t, col, col.WithPlane(-1, 0x5))
	assert.Equal(t, uint8(0), col.Plane(4))
}

func TestColorToNRGBA(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		matrix.Gray(0xF).ToNRGBA(1))
	assert.Equal(t, color.NRGBA{R: 17, G: 34, B: 51, A: 255},
		matrix.RGB(0x1, 0x2, 0x3).ToNRGBA(3))
	// Plane 2 is ignored on a two-plane matrix.
	assert.Equal(t, color.NRGBA{R: 17, G: 34, B: 0, A: 255},
		matrix.RGB(0x1, 0x2, 0x3).ToNRGBA(2))
}
