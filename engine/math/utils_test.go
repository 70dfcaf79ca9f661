package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShareCoversRangeExactly(t *testing.T) {
	for parts := 1; parts <= 9; parts++ {
		for total := 0; total <= 64; total++ {
			next := 0
			for idx := 0; idx < parts; idx++ {
				offset, size := Share(total, parts, idx)
				assert.Equal(t, next, offset, "total=%d parts=%d idx=%d", total, parts, idx)
				assert.GreaterOrEqual(t, size, 0)
				next = offset + size
			}
			assert.Equal(t, total, next, "total=%d parts=%d", total, parts)
		}
	}
}

func TestShareScenarios(t *testing.T) {
	cases := []struct {
		total   int
		offsets []int
		sizes   []int
	}{
		{1000, []int{0, 250, 500, 750}, []int{250, 250, 250, 250}},
		{1003, []int{0, 251, 502, 753}, []int{251, 251, 251, 250}},
	}
	for _, c := range cases {
		for i := 0; i < 4; i++ {
			offset, size := Share(c.total, 4, i)
			assert.Equal(t, c.offsets[i], offset)
			assert.Equal(t, c.sizes[i], size)
		}
	}
}

func TestClampMinMax(t *testing.T) {
	assert.Equal(t, 3, Clamp(7, 0, 3))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
	assert.Equal(t, 2, Min(2, 5))
	assert.Equal(t, uint32(5), Max(uint32(2), 5))
}

func TestMat4Mul(t *testing.T) {
	tr := NewMat4Translation(NewVec3(1, 2, 3))
	assert.Equal(t, tr, NewMat4Identity().Mul(tr))
	assert.Equal(t, tr, tr.Mul(NewMat4Identity()))

	r := NewMat4EulerY(K_PI_2)
	assert.True(t, r.Compare(NewMat4Identity(), 1e-5))
}

func TestLookAtOrthonormal(t *testing.T) {
	view := NewMat4LookAt(NewVec3(0, 0, 10), NewVec3(0, 0, 0), NewVec3(0, 1, 0))
	// looking down -Z from +10 on the Z axis is the identity rotation
	expected := NewMat4Identity()
	expected.Data[14] = -10
	assert.True(t, view.Compare(expected, 1e-5), "%v", view.Data)
}
