package dedup

// unionFind is a lazily-populated disjoint-set keyed by asset identifier.
// It lives only for the duration of one clustering run.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: map[string]string{},
		rank:   map[string]int{},
	}
}

// find resolves the root of id with iterative path compression. Large
// collections can chain thousands of assets, so recursion is avoided.
func (u *unionFind) find(id string) string {
	if _, ok := u.parent[id]; !ok {
		u.parent[id] = id
		u.rank[id] = 0
		return id
	}

	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[id] != root {
		id, u.parent[id] = u.parent[id], root
	}
	return root
}

// union links the sets of a and b by rank.
func (u *unionFind) union(a, b string) {
	rootA := u.find(a)
	rootB := u.find(b)
	if rootA == rootB {
		return
	}

	switch {
	case u.rank[rootA] < u.rank[rootB]:
		u.parent[rootA] = rootB
	case u.rank[rootA] > u.rank[rootB]:
		u.parent[rootB] = rootA
	default:
		u.parent[rootB] = rootA
		u.rank[rootA]++
	}
}
