package merge

// unionFind is an arena of integer tokens with union by rank and path
// compression. The alias relation between advisory identifiers is an
// arbitrary, potentially dense graph, so grouping works over interned
// indices instead of pointer-linked nodes.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind() *unionFind {
	return &unionFind{}
}

// add interns a new element and returns its index.
func (u *unionFind) add() int {
	idx := len(u.parent)
	u.parent = append(u.parent, idx)
	u.rank = append(u.rank, 0)
	return idx
}

func (u *unionFind) find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}
