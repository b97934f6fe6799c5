package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)))
	if math.Abs(float64(length-1.0)) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatToMat4Identity(t *testing.T) {
	m := QuatIdentity().ToMat4()
	if !m.ApproxEqual(Identity(), 1e-6) {
		t.Errorf("Identity quat should produce identity matrix, got %v", m)
	}
}

func TestQuatFromMat4RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		axis  Vec3
		angle float32
	}{
		{"x small", Vec3{1, 0, 0}, 0.3},
		{"y half turn", Vec3{0, 1, 0}, float32(math.Pi)},
		{"z near half turn", Vec3{0, 0, 1}, 3.0},
		{"diagonal", Vec3{1, 1, 1}.Normalize(), 2.2},
		{"negative", Vec3{0, -1, 0}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := QuatFromAxisAngle(tt.axis, tt.angle)
			got := QuatFromMat4(want.ToMat4())
			if !got.SameRotation(want, 1e-5) {
				t.Errorf("got %+v, want %+v", got, want)
			}
			if got.W < 0 {
				t.Errorf("W should be non-negative, got %v", got.W)
			}
		})
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	expectedW := float32(math.Cos(math.Pi / 4))
	expectedY := float32(math.Sin(math.Pi / 4))

	if math.Abs(float64(q.W-expectedW)) > 0.001 {
		t.Errorf("QuatFromAxisAngle W: expected %v, got %v", expectedW, q.W)
	}
	if math.Abs(float64(q.Y-expectedY)) > 0.001 {
		t.Errorf("QuatFromAxisAngle Y: expected %v, got %v", expectedY, q.Y)
	}
}

func TestQuatMulMatchesMatrixProduct(t *testing.T) {
	a := QuatFromAxisAngle(Vec3{1, 0, 0}, 0.5)
	b := QuatFromAxisAngle(Vec3{0, 0, 1}, 1.2)

	got := a.Mul(b).ToMat4()
	want := a.ToMat4().Mul(b.ToMat4())
	if !got.ApproxEqual(want, 1e-5) {
		t.Errorf("(a*b).ToMat4() = %v, want %v", got, want)
	}
}

func TestQuatSlerp(t *testing.T) {
	z := Vec3{Z: 1}
	a := QuatIdentity()
	b := QuatFromAxisAngle(z, math.Pi/2)

	tests := []struct {
		t     float32
		angle float64
	}{
		{0, 0},
		{0.5, math.Pi / 4},
		{1, math.Pi / 2},
	}
	for _, tt := range tests {
		got := a.Slerp(b, tt.t)
		want := QuatFromAxisAngle(z, float32(tt.angle))
		if !got.SameRotation(want, 1e-5) {
			t.Errorf("Slerp(%v) = %v, want %v", tt.t, got, want)
		}
	}
}

func TestQuatSlerpShortArc(t *testing.T) {
	a := QuatIdentity()
	b := Quat{W: -1} // identity with the opposite sign
	if got := a.Slerp(b, 0.5); !got.SameRotation(QuatIdentity(), 1e-6) {
		t.Errorf("expected identity, got %v", got)
	}
}
