package gltfscene

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// track is one animation channel. Vector values leave the fourth component
// unused. Cubic spline samplers store in-tangent, value and out-tangent per key.
type track struct {
	path   gltf.TRSProperty
	interp gltf.Interpolation
	times  []float32
	values [][4]float32
}

func (s *Scene) loadAnimation() error {
	if len(s.doc.Animations) == 0 {
		if s.opts.Animation != "" {
			return errors.Wrapf(ErrAnimationNotFound, "%s", s.opts.Animation)
		}
		return nil
	}

	anim := s.doc.Animations[0]
	if s.opts.Animation != "" {
		anim = nil
		for _, a := range s.doc.Animations {
			if a.Name == s.opts.Animation {
				anim = a
				break
			}
		}
		if anim == nil {
			return errors.Wrapf(ErrAnimationNotFound, "%s", s.opts.Animation)
		}
	}

	s.tracks = make(map[int][]*track)
	for ci, ch := range anim.Channels {
		node, ok := index(ch.Target.Node)
		if !ok || node >= len(s.doc.Nodes) {
			s.log.Debug("skipping channel without target node", zap.Int("channel", ci))
			continue
		}
		if ch.Target.Path == gltf.TRSWeights {
			continue
		}
		si, ok := index(ch.Sampler)
		if !ok || si >= len(anim.Samplers) {
			return errors.Errorf("channel %d: sampler out of range", ci)
		}
		tr, err := s.readTrack(anim.Samplers[si], ch.Target.Path)
		if err != nil {
			return errors.Wrapf(err, "channel %d", ci)
		}
		s.tracks[node] = append(s.tracks[node], tr)
	}
	return nil
}

func (s *Scene) readTrack(sampler *gltf.AnimationSampler, path gltf.TRSProperty) (*track, error) {
	in, ok := index(sampler.Input)
	if !ok {
		return nil, errors.New("sampler has no input")
	}
	out, ok := index(sampler.Output)
	if !ok {
		return nil, errors.New("sampler has no output")
	}
	inAcr, err := s.accessor(in)
	if err != nil {
		return nil, err
	}
	outAcr, err := s.accessor(out)
	if err != nil {
		return nil, err
	}

	data, err := modeler.ReadAccessor(s.doc, inAcr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sampler input")
	}
	times, ok := data.([]float32)
	if !ok || len(times) == 0 {
		return nil, errors.Errorf("sampler input is %T, want non-empty []float32", data)
	}

	data, err = modeler.ReadAccessor(s.doc, outAcr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sampler output")
	}
	tr := &track{path: path, interp: sampler.Interpolation, times: times}
	switch v := data.(type) {
	case [][4]float32:
		tr.values = v
	case [][3]float32:
		tr.values = make([][4]float32, len(v))
		for i, x := range v {
			tr.values[i] = [4]float32{x[0], x[1], x[2], 0}
		}
	default:
		return nil, errors.Errorf("unsupported sampler output %T", data)
	}

	want := len(times)
	if tr.interp == gltf.InterpolationCubicSpline {
		want *= 3
	}
	if len(tr.values) < want {
		return nil, errors.Errorf("sampler has %d values for %d keys", len(tr.values), len(times))
	}
	return tr, nil
}

// evaluate poses every node at time t seconds.
func (s *Scene) evaluate(t float32) {
	s.scale = make(map[int]mgl32.Vec3)
	for _, i := range s.order {
		local := s.restLocal[i]
		if tracks, ok := s.tracks[i]; ok {
			local = s.animatedLocal(i, tracks, t)
		}
		s.evaluated[i] = s.parentWorld(s.evaluated, i).Mul4(local)
	}
}

func (s *Scene) animatedLocal(i int, tracks []*track, t float32) mgl32.Mat4 {
	n := s.doc.Nodes[i]
	tr, rot, sc := n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault()
	rest := sc

	for _, k := range tracks {
		v := k.sample(t)
		switch k.path {
		case gltf.TRSTranslation:
			tr = [3]float32{v[0], v[1], v[2]}
		case gltf.TRSRotation:
			rot = v
		case gltf.TRSScale:
			sc = [3]float32{v[0], v[1], v[2]}
			s.scale[i] = mgl32.Vec3{ratio(sc[0], rest[0]), ratio(sc[1], rest[1]), ratio(sc[2], rest[2])}
		}
	}
	return compose(tr, rot, sc)
}

func ratio(v, rest float32) float32 {
	if rest == 0 {
		return v
	}
	return v / rest
}

// sample returns the channel value at time t, holding the end keys outside
// the keyed range.
func (k *track) sample(t float32) [4]float32 {
	n := len(k.times)
	if t <= k.times[0] {
		return k.value(0)
	}
	if t >= k.times[n-1] {
		return k.value(n - 1)
	}

	// times[i] <= t < times[i+1]
	i := sort.Search(n, func(j int) bool { return k.times[j] > t }) - 1
	dt := k.times[i+1] - k.times[i]
	u := (t - k.times[i]) / dt

	switch k.interp {
	case gltf.InterpolationStep:
		return k.value(i)
	case gltf.InterpolationCubicSpline:
		return k.hermite(i, u, dt)
	}

	a, b := k.value(i), k.value(i+1)
	if k.path == gltf.TRSRotation {
		return slerp(a, b, u)
	}
	var out [4]float32
	for c := range out {
		out[c] = a[c] + (b[c]-a[c])*u
	}
	return out
}

func (k *track) value(i int) [4]float32 {
	if k.interp == gltf.InterpolationCubicSpline {
		return k.values[3*i+1]
	}
	return k.values[i]
}

// hermite evaluates the cubic spline segment starting at key i.
func (k *track) hermite(i int, u, dt float32) [4]float32 {
	p0, m0 := k.values[3*i+1], k.values[3*i+2]
	p1, m1 := k.values[3*(i+1)+1], k.values[3*(i+1)]

	u2, u3 := u*u, u*u*u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2

	var out [4]float32
	for c := range out {
		out[c] = h00*p0[c] + h10*dt*m0[c] + h01*p1[c] + h11*dt*m1[c]
	}
	if k.path == gltf.TRSRotation {
		q := toQuat(out).Normalize()
		return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
	}
	return out
}

func toQuat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

// slerp interpolates along the shorter arc.
func slerp(a, b [4]float32, u float32) [4]float32 {
	qa, qb := toQuat(a).Normalize(), toQuat(b).Normalize()
	if qa.Dot(qb) < 0 {
		qb = qb.Scale(-1)
	}
	q := mgl32.QuatSlerp(qa, qb, u).Normalize()
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}
