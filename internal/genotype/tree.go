package genotype

// PreOrder lists the nodes reachable from the root, parents before children.
func (g *Genotype) PreOrder() []NodeID {
	return g.Subtree(g.Root)
}

// Subtree lists id and its descendants in pre-order.
func (g *Genotype) Subtree(id NodeID) []NodeID {
	if id == NoNode {
		return nil
	}
	out := make([]NodeID, 0, len(g.Nodes))
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		children := g.Nodes[cur].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

func (g *Genotype) NodeCount() int {
	return len(g.PreOrder())
}

func (g *Genotype) IsLeaf(id NodeID) bool {
	return len(g.Nodes[id].Children) == 0
}

// Depth returns the number of edges between the root and id.
func (g *Genotype) Depth(id NodeID) int {
	depth := 0
	for cur := g.Nodes[id].Parent; cur != NoNode; cur = g.Nodes[cur].Parent {
		depth++
	}
	return depth
}

// AddChild appends n as the last child of parent and returns its id.
func (g *Genotype) AddChild(parent NodeID, n Node) NodeID {
	n.Parent = parent
	n.Children = nil
	g.Nodes = append(g.Nodes, n)
	id := NodeID(len(g.Nodes) - 1)
	g.Nodes[parent].Children = append(g.Nodes[parent].Children, id)
	return id
}

// childSlot returns the position of id among its parent's children.
func (g *Genotype) childSlot(id NodeID) int {
	parent := g.Nodes[id].Parent
	for i, c := range g.Nodes[parent].Children {
		if c == id {
			return i
		}
	}
	return -1
}

// detach unlinks a non-root node from its parent. The arena slots of the
// subtree stay allocated until Compact.
func (g *Genotype) detach(id NodeID) {
	parent := g.Nodes[id].Parent
	slot := g.childSlot(id)
	children := g.Nodes[parent].Children
	g.Nodes[parent].Children = append(children[:slot:slot], children[slot+1:]...)
	g.Nodes[id].Parent = NoNode
}

// Compact rebuilds the arena in pre-order, dropping unreachable nodes.
// After compaction NodeID equals the pre-order position and the root is 0.
func (g *Genotype) Compact() {
	order := g.PreOrder()
	remap := make(map[NodeID]NodeID, len(order))
	for i, id := range order {
		remap[id] = NodeID(i)
	}
	nodes := make([]Node, len(order))
	for i, id := range order {
		n := g.Nodes[id]
		if n.Parent != NoNode {
			n.Parent = remap[n.Parent]
		}
		children := make([]NodeID, len(n.Children))
		for j, c := range n.Children {
			children[j] = remap[c]
		}
		n.Children = children
		nodes[i] = n
	}
	g.Nodes = nodes
	g.Root = 0
}

// copySubtree appends a copy of src's subtree rooted at srcID to g, leaving
// it unattached, and returns the id of the copied root. Neuron inputs of the
// copies are cleared because they index src's neuron space.
func (g *Genotype) copySubtree(src *Genotype, srcID NodeID) NodeID {
	var copyNode func(id NodeID, parent NodeID) NodeID
	copyNode = func(id NodeID, parent NodeID) NodeID {
		n := src.Nodes[id].clone()
		n.Parent = parent
		n.Children = nil
		n.Span = Substring{Start: -1}
		for i := range n.Neurons {
			n.Neurons[i].Inputs = nil
		}
		g.Nodes = append(g.Nodes, n)
		newID := NodeID(len(g.Nodes) - 1)
		for _, c := range src.Nodes[id].Children {
			child := copyNode(c, newID)
			g.Nodes[newID].Children = append(g.Nodes[newID].Children, child)
		}
		return newID
	}
	return copyNode(srcID, NoNode)
}
