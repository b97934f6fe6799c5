package gltfscene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Faultbox/avatara-export/internal/scene"
)

// leafLength is the length given to a bone when neither it nor any ancestor
// has a child joint to measure against.
const leafLength = 1

// armature is a skin. node is the parent of its root joint, or -1.
type armature struct {
	node   int
	joints []int
	joint  map[string]int // bone name -> node
	bones  []scene.BoneInfo
}

func (a *armature) restWorld(s *Scene) mgl32.Mat4 {
	if a.node < 0 {
		return mgl32.Ident4()
	}
	return s.restWorld[a.node]
}

func (s *Scene) loadArmatures() error {
	for i, skin := range s.doc.Skins {
		name := skin.Name
		if name == "" {
			name = fmt.Sprintf("skin%d", i)
		}
		if _, dup := s.armatures[name]; dup {
			return errors.Errorf("duplicate skin name %q", name)
		}
		a, err := s.buildArmature(skin.Joints)
		if err != nil {
			return errors.Wrapf(err, "skin %s", name)
		}
		s.armatures[name] = a
		s.armatureNames = append(s.armatureNames, name)
	}
	return nil
}

func (s *Scene) buildArmature(joints []uint32) (*armature, error) {
	a := &armature{node: -1, joint: make(map[string]int, len(joints))}
	isJoint := make(map[int]bool, len(joints))
	for _, j := range joints {
		node := int(j)
		if node >= len(s.doc.Nodes) {
			return nil, errors.Errorf("joint node %d out of range", node)
		}
		name := s.nodeName(node)
		if _, dup := a.joint[name]; dup {
			return nil, errors.Errorf("duplicate joint name %q", name)
		}
		isJoint[node] = true
		a.joints = append(a.joints, node)
		a.joint[name] = node
	}

	// The bone parent is the closest ancestor that is also a joint.
	jointParent := func(node int) int {
		for p := s.parents[node]; p >= 0; p = s.parents[p] {
			if isJoint[p] {
				return p
			}
		}
		return -1
	}
	for _, node := range a.joints {
		if jointParent(node) == -1 {
			a.node = s.parents[node]
			break
		}
	}

	space := a.restWorld(s).Inv()
	heads := make(map[int]mgl32.Vec3, len(a.joints))
	rests := make(map[int]mgl32.Mat4, len(a.joints))
	for _, node := range a.joints {
		rests[node] = space.Mul4(s.restWorld[node])
		heads[node] = rests[node].Col(3).Vec3()
	}

	// A bone reaches to its first child joint; leaves inherit the length of
	// the nearest measured ancestor.
	lengths := make(map[int]float32, len(a.joints))
	for _, node := range a.joints {
		if p := jointParent(node); p >= 0 {
			if _, set := lengths[p]; !set {
				lengths[p] = heads[node].Sub(heads[p]).Len()
			}
		}
	}
	length := func(node int) float32 {
		for n := node; n >= 0; n = jointParent(n) {
			if l, ok := lengths[n]; ok && l > 0 {
				return l
			}
		}
		return leafLength
	}

	for _, node := range a.joints {
		info := scene.BoneInfo{
			Name:   s.nodeName(node),
			Rest:   toMat4(rests[node]),
			Length: length(node),
		}
		if p := jointParent(node); p >= 0 {
			info.Parent = s.nodeName(p)
		}
		a.bones = append(a.bones, info)
	}
	return a, nil
}
