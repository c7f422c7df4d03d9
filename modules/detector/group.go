package detector

// GroupRectangles clusters similar boxes and replaces each cluster with its
// mean box (non-maximum suppression).
//
// Two boxes are similar when every edge differs by at most
// eps*(min(w1,w2)+min(h1,h2))/2. Clusters with <= threshold members are
// dropped. A surviving cluster is also dropped when its mean box lies inside
// another surviving cluster's box (expanded by eps) and that cluster has
// more than max(3, n) members, or the cluster itself has fewer than 3.
//
// A threshold <= 0 returns the input unchanged. Output order follows the
// first member of each cluster in the input.
func GroupRectangles(boxes []BoundingBox, threshold int, eps float64) []BoundingBox {
	if threshold <= 0 || len(boxes) == 0 {
		return boxes
	}

	labels, nclasses := partition(boxes, eps)

	sums := make([]BoundingBox, nclasses)
	counts := make([]int, nclasses)
	for i, b := range boxes {
		c := labels[i]
		sums[c].X += b.X
		sums[c].Y += b.Y
		sums[c].Width += b.Width
		sums[c].Height += b.Height
		counts[c]++
	}

	means := make([]BoundingBox, nclasses)
	for i, sum := range sums {
		s := 1 / float64(counts[i])
		means[i] = BoundingBox{
			X:      roundInt(float64(sum.X) * s),
			Y:      roundInt(float64(sum.Y) * s),
			Width:  roundInt(float64(sum.Width) * s),
			Height: roundInt(float64(sum.Height) * s),
		}
	}

	out := make([]BoundingBox, 0, nclasses)
	for i, r1 := range means {
		if counts[i] <= threshold {
			continue
		}
		if nestedInStronger(i, means, counts, threshold, eps) {
			continue
		}
		out = append(out, r1)
	}
	return out
}

// nestedInStronger filters small clusters lying inside a larger one.
func nestedInStronger(i int, means []BoundingBox, counts []int, threshold int, eps float64) bool {
	r1, n1 := means[i], counts[i]
	for j, r2 := range means {
		n2 := counts[j]
		if j == i || n2 <= threshold {
			continue
		}
		dx := roundInt(float64(r2.Width) * eps)
		dy := roundInt(float64(r2.Height) * eps)
		if r1.X >= r2.X-dx &&
			r1.Y >= r2.Y-dy &&
			r1.X+r1.Width <= r2.X+r2.Width+dx &&
			r1.Y+r1.Height <= r2.Y+r2.Height+dy &&
			(n2 > max(3, n1) || n1 < 3) {
			return true
		}
	}
	return false
}

// similar reports whether two boxes belong to the same cluster.
func similar(a, b BoundingBox, eps float64) bool {
	delta := eps * float64(min(a.Width, b.Width)+min(a.Height, b.Height)) * 0.5
	return absf(a.X-b.X) <= delta &&
		absf(a.Y-b.Y) <= delta &&
		absf(a.X+a.Width-b.X-b.Width) <= delta &&
		absf(a.Y+a.Height-b.Y-b.Height) <= delta
}

// partition splits boxes into equivalence classes of the similar relation
// using union-find. Labels are numbered in order of first appearance.
func partition(boxes []BoundingBox, eps float64) (labels []int, nclasses int) {
	parent := make([]int, len(boxes))
	for i := range parent {
		parent[i] = i
	}

	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if !similar(boxes[i], boxes[j], eps) {
				continue
			}
			ri, rj := find(i), find(j)
			if ri != rj {
				parent[rj] = ri
			}
		}
	}

	labels = make([]int, len(boxes))
	classOf := make(map[int]int)
	for i := range boxes {
		root := find(i)
		label, ok := classOf[root]
		if !ok {
			label = nclasses
			classOf[root] = label
			nclasses++
		}
		labels[i] = label
	}
	return labels, nclasses
}

func absf(v int) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}
