package dedup

// unionFind is a disjoint-set forest over 0..n-1 with path halving.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(x, y int) {
	px, py := u.find(x), u.find(y)
	if px != py {
		u.parent[px] = py
	}
}

// groups partitions 0..n-1 by root. Groups are ordered by their lowest
// member and members are ascending.
func (u *unionFind) groups() [][]int {
	index := make(map[int]int)
	var out [][]int
	for i := range u.parent {
		root := u.find(i)
		g, ok := index[root]
		if !ok {
			g = len(out)
			index[root] = g
			out = append(out, nil)
		}
		out[g] = append(out[g], i)
	}
	return out
}
