package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	m := make([]float32, 16)
	for i := range m {
		m[i] = 7
	}
	Identity(m)

	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			want := float32(0)
			if col == row {
				want = 1
			}
			assert.Equal(t, want, m[col*4+row])
		}
	}
}

func TestMul4IdentityIsNeutral(t *testing.T) {
	id := make([]float32, 16)
	Identity(id)

	a := make([]float32, 16)
	ComposeTRS(a, [3]float32{1, 2, 3}, [4]float32{0, 0, 0, 1}, [3]float32{2, 2, 2})

	out := make([]float32, 16)
	Mul4(out, id, a)
	assert.Equal(t, a, out)

	Mul4(out, a, id)
	assert.Equal(t, a, out)
}

func TestMul4ComposesTranslations(t *testing.T) {
	a := make([]float32, 16)
	b := make([]float32, 16)
	ComposeTRS(a, [3]float32{1, 0, 0}, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1})
	ComposeTRS(b, [3]float32{0, 2, 0}, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1})

	out := make([]float32, 16)
	Mul4(out, a, b)

	p := TransformPoint(out, [3]float32{0, 0, 0})
	assert.Equal(t, [3]float32{1, 2, 0}, p)
}

func TestMul4AliasedOutput(t *testing.T) {
	a := make([]float32, 16)
	b := make([]float32, 16)
	ComposeTRS(a, [3]float32{5, 0, 0}, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1})
	ComposeTRS(b, [3]float32{0, 0, 3}, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1})

	want := make([]float32, 16)
	Mul4(want, a, b)

	// out aliasing a must still produce the correct product.
	Mul4(a, a, b)
	assert.Equal(t, want, a)
}

func TestComposeTRSTranslationAndScale(t *testing.T) {
	m := make([]float32, 16)
	ComposeTRS(m, [3]float32{10, 20, 30}, [4]float32{0, 0, 0, 1}, [3]float32{2, 3, 4})

	p := TransformPoint(m, [3]float32{1, 1, 1})
	assert.InDelta(t, 12, p[0], 1e-5)
	assert.InDelta(t, 23, p[1], 1e-5)
	assert.InDelta(t, 34, p[2], 1e-5)
}

func TestComposeTRSQuarterTurnY(t *testing.T) {
	// 90 degrees around Y: quaternion (0, sin45, 0, cos45). Maps +X to -Z.
	const s = 0.70710678
	m := make([]float32, 16)
	ComposeTRS(m, [3]float32{}, [4]float32{0, s, 0, s}, [3]float32{1, 1, 1})

	p := TransformPoint(m, [3]float32{1, 0, 0})
	assert.InDelta(t, 0, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)
	assert.InDelta(t, -1, p[2], 1e-5)
}

func TestComposeTRSNormalizesQuaternion(t *testing.T) {
	// Same rotation, scaled quaternion. Results must match the unit version.
	const s = 0.70710678
	unit := make([]float32, 16)
	scaled := make([]float32, 16)
	ComposeTRS(unit, [3]float32{}, [4]float32{0, s, 0, s}, [3]float32{1, 1, 1})
	ComposeTRS(scaled, [3]float32{}, [4]float32{0, 3 * s, 0, 3 * s}, [3]float32{1, 1, 1})

	for i := range unit {
		assert.InDelta(t, unit[i], scaled[i], 1e-5)
	}
}

func TestComposeTRSZeroQuaternionFallsBackToIdentityRotation(t *testing.T) {
	m := make([]float32, 16)
	ComposeTRS(m, [3]float32{}, [4]float32{}, [3]float32{1, 1, 1})

	p := TransformPoint(m, [3]float32{1, 2, 3})
	assert.Equal(t, [3]float32{1, 2, 3}, p)
}
