package engine

// Bounding-volume hierarchy over leaf AABBs, rebuilt from scratch every
// collision tick. Construction is binned top-down: at every node the leaves
// are partitioned by an SAH-scored split over fixed-width bins along the
// longest centroid axis. Nodes live in one flat slice; leaves carry the index
// of the corresponding entry in the caller's parallel arrays.

const bvhBinCount = 8

type bvhNode struct {
	aabb  AABB
	left  int32
	right int32
	// leaf index into the build input; -1 for interior nodes.
	leaf int32
}

type BVH struct {
	nodes []bvhNode
	root  int32
}

// BuildBVH constructs the hierarchy over the given leaf boxes. The returned
// tree references leaves by their index in aabbs.
func BuildBVH(aabbs []AABB) *BVH {
	bvh := &BVH{root: -1}
	if len(aabbs) == 0 {
		return bvh
	}

	indices := make([]int32, len(aabbs))
	for i := range indices {
		indices[i] = int32(i)
	}
	bvh.nodes = make([]bvhNode, 0, 2*len(aabbs))
	bvh.root = bvh.build(aabbs, indices)
	return bvh
}

func (b *BVH) build(aabbs []AABB, indices []int32) int32 {
	if len(indices) == 1 {
		b.nodes = append(b.nodes, bvhNode{
			aabb: aabbs[indices[0]],
			leaf: indices[0],
		})
		return int32(len(b.nodes) - 1)
	}

	bounds := aabbs[indices[0]]
	centroidBounds := AABB{Min: aabbs[indices[0]].Center(), Max: aabbs[indices[0]].Center()}
	for _, idx := range indices[1:] {
		bounds = bounds.Union(aabbs[idx])
		c := aabbs[idx].Center()
		centroidBounds = centroidBounds.Union(AABB{Min: c, Max: c})
	}

	axis := 0
	extent := centroidBounds.Max.Sub(centroidBounds.Min)
	if extent.Y() > extent.X() {
		axis = 1
	}
	if extent.Z() > extent[axis] {
		axis = 2
	}

	mid := len(indices) / 2
	if extent[axis] > 1e-7 {
		if split, ok := b.binnedSplit(aabbs, indices, centroidBounds, axis); ok {
			mid = split
		}
	}

	left := b.build(aabbs, indices[:mid])
	right := b.build(aabbs, indices[mid:])
	b.nodes = append(b.nodes, bvhNode{
		aabb:  bounds,
		left:  left,
		right: right,
		leaf:  -1,
	})
	return int32(len(b.nodes) - 1)
}

// binnedSplit partitions indices in place around the cheapest SAH bin
// boundary and returns the partition point. Degenerate splits (everything in
// one bin) report false, and the caller splits the index list in half.
func (b *BVH) binnedSplit(aabbs []AABB, indices []int32, centroidBounds AABB, axis int) (int, bool) {
	minC := centroidBounds.Min[axis]
	extent := centroidBounds.Max[axis] - centroidBounds.Min[axis]
	scale := float32(bvhBinCount) / extent

	binOf := func(idx int32) int {
		bin := int((aabbs[idx].Center()[axis] - minC) * scale)
		if bin >= bvhBinCount {
			bin = bvhBinCount - 1
		}
		return bin
	}

	var binCounts [bvhBinCount]int
	var binBounds [bvhBinCount]AABB
	var binUsed [bvhBinCount]bool
	for _, idx := range indices {
		bin := binOf(idx)
		binCounts[bin]++
		if binUsed[bin] {
			binBounds[bin] = binBounds[bin].Union(aabbs[idx])
		} else {
			binBounds[bin] = aabbs[idx]
			binUsed[bin] = true
		}
	}

	bestBoundary := -1
	bestCost := float32(0)
	for boundary := 1; boundary < bvhBinCount; boundary++ {
		leftCount, rightCount := 0, 0
		var leftBounds, rightBounds AABB
		leftInit, rightInit := false, false
		for bin := 0; bin < bvhBinCount; bin++ {
			if !binUsed[bin] {
				continue
			}
			if bin < boundary {
				leftCount += binCounts[bin]
				if leftInit {
					leftBounds = leftBounds.Union(binBounds[bin])
				} else {
					leftBounds, leftInit = binBounds[bin], true
				}
			} else {
				rightCount += binCounts[bin]
				if rightInit {
					rightBounds = rightBounds.Union(binBounds[bin])
				} else {
					rightBounds, rightInit = binBounds[bin], true
				}
			}
		}
		if leftCount == 0 || rightCount == 0 {
			continue
		}
		cost := surfaceArea(leftBounds)*float32(leftCount) + surfaceArea(rightBounds)*float32(rightCount)
		if bestBoundary == -1 || cost < bestCost {
			bestBoundary = boundary
			bestCost = cost
		}
	}
	if bestBoundary == -1 {
		return 0, false
	}

	// Stable partition keeps the build deterministic for identical input.
	left := make([]int32, 0, len(indices))
	right := make([]int32, 0, len(indices))
	for _, idx := range indices {
		if binOf(idx) < bestBoundary {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	copy(indices, left)
	copy(indices[len(left):], right)
	return len(left), true
}

func surfaceArea(a AABB) float32 {
	e := a.Max.Sub(a.Min)
	return 2 * (e.X()*e.Y() + e.Y()*e.Z() + e.Z()*e.X())
}

// TraverseRay walks the tree in pre-order, pruning subtrees whose AABB the
// ray misses within maxDistance, and calls visit with every surviving leaf
// index.
func (b *BVH) TraverseRay(ray Ray, maxDistance float32, visit func(leaf int)) {
	if b.root < 0 {
		return
	}
	stack := make([]int32, 0, 64)
	stack = append(stack, b.root)
	for len(stack) > 0 {
		nodeIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &b.nodes[nodeIdx]

		if _, hit := node.aabb.CastRay(ray, maxDistance); !hit {
			continue
		}
		if node.leaf >= 0 {
			visit(int(node.leaf))
			continue
		}
		// Right first so the left child pops first.
		stack = append(stack, node.right, node.left)
	}
}

// IntersectAABB calls visit with every leaf whose AABB overlaps the query
// box.
func (b *BVH) IntersectAABB(query AABB, visit func(leaf int)) {
	if b.root < 0 {
		return
	}
	stack := make([]int32, 0, 64)
	stack = append(stack, b.root)
	for len(stack) > 0 {
		nodeIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &b.nodes[nodeIdx]

		if !node.aabb.Overlaps(query) {
			continue
		}
		if node.leaf >= 0 {
			visit(int(node.leaf))
			continue
		}
		stack = append(stack, node.right, node.left)
	}
}
