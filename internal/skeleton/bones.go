package skeleton

import (
	"fmt"
	"strconv"
	"strings"

	"tubegen/internal/mathutil"
)

// Root picks the joint with the most bones, ties broken by lowest index.
func (s *Skeleton) Root() int {
	if len(s.Joints) == 0 {
		return -1
	}
	deg := make([]int, len(s.Joints))
	for _, b := range s.Bones {
		deg[b[0]]++
		deg[b[1]]++
	}
	root := 0
	for j, d := range deg {
		if d > deg[root] {
			root = j
		}
	}
	return root
}

// Hierarchy roots the skeleton at root and returns each joint's parent
// (-1 for the root and for joints it cannot reach) and a breadth-first order
// in which parents always precede children.
func (s *Skeleton) Hierarchy(root int) (parents, order []int) {
	parents = make([]int, len(s.Joints))
	for i := range parents {
		parents[i] = -1
	}
	if root < 0 || root >= len(s.Joints) {
		return parents, nil
	}
	adj := make([][]int, len(s.Joints))
	for _, b := range s.Bones {
		adj[b[0]] = append(adj[b[0]], b[1])
		adj[b[1]] = append(adj[b[1]], b[0])
	}
	seen := make([]bool, len(s.Joints))
	seen[root] = true
	order = []int{root}
	for i := 0; i < len(order); i++ {
		j := order[i]
		for _, k := range adj[j] {
			if !seen[k] {
				seen[k] = true
				parents[k] = j
				order = append(order, k)
			}
		}
	}
	return parents, order
}

// Pose holds a local rotation per joint, pivoting on the joint position.
// Joints without an entry stay at rest.
type Pose map[int]mathutil.Mat3

// Bend returns a pose rotating joint by degrees about axis.
func Bend(joint int, axis mathutil.Vec3, degrees float64) Pose {
	q := mathutil.AxisAngleQuat(axis, mathutil.Deg2Rad(degrees))
	return Pose{joint: mathutil.QuatToMat3(q)}
}

// Euler returns a pose rotating joint by XYZ Euler angles in degrees.
func Euler(joint int, rx, ry, rz float64) Pose {
	q := mathutil.EulerToQuat(mathutil.Deg2Rad(rx), mathutil.Deg2Rad(ry), mathutil.Deg2Rad(rz))
	return Pose{joint: mathutil.QuatToMat3(q)}
}

// Merge returns the union of poses; later entries win on shared joints.
func Merge(poses ...Pose) Pose {
	out := Pose{}
	for _, p := range poses {
		for j, r := range p {
			out[j] = r
		}
	}
	return out
}

// ParseBends reads a comma separated list of joint:degrees bends about the
// outline normal, for example "1:30,4:-45". An empty string is the rest pose.
func ParseBends(spec string) (Pose, error) {
	pose := Pose{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		js, ds, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("skeleton: bend %q: want joint:degrees", part)
		}
		j, err := strconv.Atoi(strings.TrimSpace(js))
		if err != nil {
			return nil, fmt.Errorf("skeleton: bend %q: %w", part, err)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(ds), 64)
		if err != nil {
			return nil, fmt.Errorf("skeleton: bend %q: %w", part, err)
		}
		pose = Merge(pose, Bend(j, mathutil.Vec3{0, 0, 1}, d))
	}
	return pose, nil
}

// WorldMatrices chains each joint's rotation with its parent's world
// transform. A rotation at joint j moves every descendant of j.
func (s *Skeleton) WorldMatrices(root int, pose Pose) ([]mathutil.Mat4, error) {
	for j := range pose {
		if j < 0 || j >= len(s.Joints) {
			return nil, fmt.Errorf("skeleton: pose joint %d out of range [0,%d)", j, len(s.Joints))
		}
	}
	parents, order := s.Hierarchy(root)
	worlds := make([]mathutil.Mat4, len(s.Joints))
	for i := range worlds {
		worlds[i] = mathutil.Mat4Identity()
	}
	for _, j := range order {
		local := mathutil.Mat4Identity()
		if r, ok := pose[j]; ok {
			local = mathutil.RotateAbout(r, s.Joints[j])
		}
		if p := parents[j]; p >= 0 {
			worlds[j] = mathutil.Mat4Mul(worlds[p], local)
		} else {
			worlds[j] = local
		}
	}
	return worlds, nil
}

// BoneMatrices returns one transform per bone: the world matrix of the
// bone's parent-side joint, so a bone swings with the joint it hangs from.
func (s *Skeleton) BoneMatrices(root int, pose Pose) ([]mathutil.Mat4, error) {
	worlds, err := s.WorldMatrices(root, pose)
	if err != nil {
		return nil, err
	}
	parents, _ := s.Hierarchy(root)
	out := make([]mathutil.Mat4, len(s.Bones))
	for i, b := range s.Bones {
		head := b[0]
		if parents[b[0]] == b[1] {
			head = b[1]
		}
		out[i] = worlds[head]
	}
	return out, nil
}

// AtRest reports whether every matrix is the identity, in which case
// deformation can be skipped.
func AtRest(ms []mathutil.Mat4) bool {
	for _, m := range ms {
		if !m.IsIdentity() {
			return false
		}
	}
	return true
}

// Length returns the length of bone i.
func (s *Skeleton) Length(i int) float64 {
	b := s.Bones[i]
	return s.Joints[b[0]].Dist(s.Joints[b[1]])
}

// Nearest returns the bone closest to p, or -1 when there are none.
func (s *Skeleton) Nearest(p mathutil.Vec3) int {
	best, bestD := -1, 0.0
	for i, b := range s.Bones {
		d, _ := mathutil.SegmentDist(p, s.Joints[b[0]], s.Joints[b[1]])
		if best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}
