// Package skeleton turns a host bone list into an indexed hierarchy and derives
// the parent-relative rest and pose transforms written to Avatara files.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/Faultbox/avatara-export/internal/scene"
)

// Hierarchy errors.
var (
	ErrBoneNotFound = errors.New("bone not found")
	ErrUnknownBone  = errors.New("unknown bone")
	ErrBoneCycle    = errors.New("bone reached twice")

	// ErrSingularMatrix marks a rest or pose transform with no inverse.
	ErrSingularMatrix = errors.New("singular matrix")
)

// Bone is a bone of the exported subtree.
type Bone struct {
	scene.BoneInfo
	Index       int32
	ParentIndex int32 // -1 for the root
}

// Hierarchy is the pre-order indexed subtree below a chosen root.
// It is immutable once built.
type Hierarchy struct {
	bones []Bone
	index map[string]int32
}

// Build indexes the subtree rooted at root. Children are visited in host order,
// so identical host data always yields identical indices.
func Build(root string, bones []scene.BoneInfo) (*Hierarchy, error) {
	byName := make(map[string]int, len(bones))
	for i, b := range bones {
		if _, dup := byName[b.Name]; !dup {
			byName[b.Name] = i
		}
	}
	if _, ok := byName[root]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrBoneNotFound, root)
	}

	h := &Hierarchy{index: make(map[string]int32)}

	type item struct {
		name   string
		parent int32
	}
	stack := []item{{name: root, parent: -1}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		src, ok := byName[it.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s (child of %s)", ErrUnknownBone, it.name, h.bones[it.parent].Name)
		}
		if _, seen := h.index[it.name]; seen {
			return nil, fmt.Errorf("%w: %s", ErrBoneCycle, it.name)
		}

		idx := int32(len(h.bones))
		h.index[it.name] = idx
		h.bones = append(h.bones, Bone{BoneInfo: bones[src], Index: idx, ParentIndex: it.parent})

		children := childrenOf(bones, src)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, item{name: children[i], parent: idx})
		}
	}
	return h, nil
}

func childrenOf(bones []scene.BoneInfo, i int) []string {
	if bones[i].Children != nil {
		return bones[i].Children
	}
	var out []string
	for _, b := range bones {
		if b.Parent == bones[i].Name {
			out = append(out, b.Name)
		}
	}
	return out
}

// Roots returns the parentless bones of a host bone list, in listing order.
func Roots(bones []scene.BoneInfo) []string {
	var roots []string
	for _, b := range bones {
		if b.Parent == "" {
			roots = append(roots, b.Name)
		}
	}
	return roots
}

// IndexOf returns the index of a bone in the hierarchy.
func (h *Hierarchy) IndexOf(name string) (int32, error) {
	i, ok := h.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrUnknownBone, name)
	}
	return i, nil
}

// Len returns the number of bones.
func (h *Hierarchy) Len() int { return len(h.bones) }

// Bone returns the bone at index i.
func (h *Hierarchy) Bone(i int) Bone { return h.bones[i] }

// Bones returns the bones in index order. The slice must not be modified.
func (h *Hierarchy) Bones() []Bone { return h.bones }

// Root returns the root bone.
func (h *Hierarchy) Root() Bone { return h.bones[0] }

// Parent returns the parent of bone i and false for the root.
func (h *Hierarchy) Parent(i int) (Bone, bool) {
	p := h.bones[i].ParentIndex
	if p < 0 {
		return Bone{}, false
	}
	return h.bones[p], true
}
