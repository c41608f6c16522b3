// Command inspect prints a summary of a rig JSON file: counts, bounds,
// surface area by facing direction, manifold status and skin weight
// statistics.
package main

import (
	"fmt"
	"math"
	"os"

	"tubegen/internal/mathutil"
	"tubegen/internal/rig"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: inspect <file.rig.json>")
		os.Exit(2)
	}
	doc, err := rig.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	m := doc.Mesh()
	s := doc.Skeleton()

	fmt.Printf("Vertices: %d, Faces: %d, Joints: %d, Bones: %d\n", len(m.Verts), len(m.Faces), len(s.Joints), len(s.Bones))
	lo, hi := m.Bounds()
	fmt.Printf("  BBox: X[%.1f, %.1f] Y[%.1f, %.1f] Z[%.1f, %.1f]\n", lo[0], hi[0], lo[1], hi[1], lo[2], hi[2])
	fmt.Printf("  Size: %.1f x %.1f x %.1f\n", hi[0]-lo[0], hi[1]-lo[1], hi[2]-lo[2])

	st := m.Stats()
	manifold := "ok"
	if err := m.CheckManifold(); err != nil {
		manifold = err.Error()
	}
	fmt.Printf("  Edges: %d, boundary: %d, over-shared: %d, closed: %v\n", st.Edges, st.Boundary, st.Over, st.Closed())
	fmt.Printf("  Manifold: %s\n", manifold)
	fmt.Printf("  Volume: %.1f, mean edge: %.3f\n", m.SignedVolume(), m.MeanEdgeLength())

	// Surface area by dominant normal direction
	areaByDir := map[string]float64{}
	for f := range m.Faces {
		t := m.Faces[f]
		n := mathutil.TriangleNormal(m.Verts[t[0]], m.Verts[t[1]], m.Verts[t[2]])
		area := 0.5 * n.Len()
		an := mathutil.Vec3{math.Abs(n[0]), math.Abs(n[1]), math.Abs(n[2])}
		var dir string
		switch {
		case an[0] >= an[1] && an[0] >= an[2]:
			dir = signed(n[0], "+X", "-X")
		case an[1] >= an[2]:
			dir = signed(n[1], "+Y", "-Y")
		default:
			dir = signed(n[2], "+Z(top)", "-Z(bottom)")
		}
		areaByDir[dir] += area
	}
	fmt.Println("  --- Surface area by direction ---")
	for _, d := range []string{"+X", "-X", "+Y", "-Y", "+Z(top)", "-Z(bottom)"} {
		fmt.Printf("  %s: %.1f sq units\n", d, areaByDir[d])
	}

	fmt.Println("  --- Bones ---")
	for i, b := range s.Bones {
		fmt.Printf("  Bone[%d]: joints %d-%d, length %.2f\n", i, b[0], b[1], s.Length(i))
	}

	// Skin weights
	table := doc.Skin()
	minSum, maxSum := math.Inf(1), math.Inf(-1)
	var hist [5]int
	perBone := make([]int, len(s.Bones))
	for _, inf := range table {
		var sum float64
		for _, x := range inf {
			sum += x.Weight
		}
		minSum = math.Min(minSum, sum)
		maxSum = math.Max(maxSum, sum)
		hist[len(inf)]++
		if len(inf) > 0 && inf[0].Bone < len(perBone) {
			perBone[inf[0].Bone]++
		}
	}
	fmt.Println("  --- Skin ---")
	if len(table) == 0 {
		fmt.Println("  no weights")
		return
	}
	fmt.Printf("  Weight sums: min %.6f, max %.6f\n", minSum, maxSum)
	for k := 1; k < len(hist); k++ {
		fmt.Printf("  %d influence(s): %d vertices\n", k, hist[k])
	}
	for b, n := range perBone {
		fmt.Printf("  Bone[%d] dominates %d vertices\n", b, n)
	}
}

func signed(v float64, pos, neg string) string {
	if v > 0 {
		return pos
	}
	return neg
}
