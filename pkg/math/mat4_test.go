package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestMulOrder(t *testing.T) {
	// Scale first, then translate.
	m := Translate(10, 0, 0).Mul(Scale(2, 2, 2))
	got := m.TransformPoint(Vec3{1, 1, 1})
	want := Vec3{12, 2, 2}
	if got != want {
		t.Errorf("T*S applied to (1,1,1): got %v, want %v", got, want)
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	got := m.TransformPoint(Vec3{1, 2, 3})
	want := Vec3{11, 22, 33}
	if got != want {
		t.Errorf("TransformPoint: got %v, want %v", got, want)
	}
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(10, 20, 30)
	got := m.TransformDirection(Vec3{0, 1, 0})
	if got != (Vec3{0, 1, 0}) {
		t.Errorf("TransformDirection: got %v, want (0,1,0)", got)
	}
}

func TestRotateZ90(t *testing.T) {
	m := RotateZ(float32(math.Pi / 2))
	got := m.TransformPoint(Vec3{1, 0, 0})
	if !got.ApproxEqual(Vec3{0, 1, 0}, 1e-5) {
		t.Errorf("RotateZ 90: got %v, want (0, 1, 0)", got)
	}
}

func TestRotateAxisMatchesRotateX(t *testing.T) {
	a := RotateAxis(Vec3{1, 0, 0}, 0.7)
	b := RotateX(0.7)
	if !a.ApproxEqual(b, 1e-5) {
		t.Errorf("RotateAxis(X) = %v, want %v", a, b)
	}
}

func TestInverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
	}{
		{"translation", Translate(1, -2, 3)},
		{"scale", Scale(2, 4, 0.5)},
		{"rotation", RotateAxis(Vec3{1, 1, 0}, 1.1)},
		{"trs", FromTRS(Vec3{3, 2, 1}, QuatFromAxisAngle(Vec3{0, 0, 1}, 0.4), Vec3{1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := tt.m.Invert()
			if !ok {
				t.Fatal("Invert reported singular matrix")
			}
			if got := tt.m.Mul(inv); !got.ApproxEqual(Identity(), 1e-5) {
				t.Errorf("M * M^-1 = %v, want identity", got)
			}
		})
	}
}

func TestInverseSingular(t *testing.T) {
	m := Scale(1, 0, 1)
	if _, ok := m.Invert(); ok {
		t.Error("Invert of singular matrix should report false")
	}
	if m.Inverse() != Identity() {
		t.Error("Inverse of singular matrix should return identity")
	}
}

func TestDecompose(t *testing.T) {
	wantR := QuatFromAxisAngle(Vec3{0, 1, 0}, 0.9)
	wantT := Vec3{4, 5, 6}
	wantS := Vec3{1, 2, 3}

	r, tr, s := FromTRS(wantT, wantR, wantS).Decompose()

	if !r.SameRotation(wantR, 1e-5) {
		t.Errorf("rotation: got %+v, want %+v", r, wantR)
	}
	if !tr.ApproxEqual(wantT, 1e-5) {
		t.Errorf("translation: got %v, want %v", tr, wantT)
	}
	if !s.ApproxEqual(wantS, 1e-4) {
		t.Errorf("scale: got %v, want %v", s, wantS)
	}
}

func TestDecomposeIdentity(t *testing.T) {
	r, tr, s := Identity().Decompose()
	if r != QuatIdentity() {
		t.Errorf("rotation: got %+v, want identity", r)
	}
	if tr != (Vec3{}) {
		t.Errorf("translation: got %v, want zero", tr)
	}
	if s != Vec3One {
		t.Errorf("scale: got %v, want (1,1,1)", s)
	}
}

func TestFromMat3x3(t *testing.T) {
	m := FromMat3x3([9]float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	for col := 0; col < 3; col++ {
		got := m.Column(col)
		want := Vec3{float32(col*3 + 1), float32(col*3 + 2), float32(col*3 + 3)}
		if got != want {
			t.Errorf("column %d: got %v, want %v", col, got, want)
		}
	}
	if m.Translation() != (Vec3{}) || m[15] != 1 {
		t.Errorf("expected no translation and m[15]=1, got %v", m)
	}
}
