package extractor

// TarjanSCC computes strongly connected components over an adjacency list,
// iteratively to survive deep road chains. Returns the component id per
// node and the size per component id.
func TarjanSCC(adjacency [][]int32) ([]int32, []int) {
	n := len(adjacency)
	index := make([]int32, n)
	lowlink := make([]int32, n)
	onStack := make([]bool, n)
	componentOf := make([]int32, n)
	for i := range index {
		index[i] = -1
		componentOf[i] = -1
	}

	var sizes []int
	stack := make([]int32, 0, n)
	counter := int32(0)

	type frame struct {
		node  int32
		child int
	}

	for start := int32(0); start < int32(n); start++ {
		if index[start] != -1 {
			continue
		}

		callStack := []frame{{node: start}}
		index[start] = counter
		lowlink[start] = counter
		counter++
		stack = append(stack, start)
		onStack[start] = true

		for len(callStack) > 0 {
			top := &callStack[len(callStack)-1]
			v := top.node

			if top.child < len(adjacency[v]) {
				w := adjacency[v][top.child]
				top.child++
				if index[w] == -1 {
					index[w] = counter
					lowlink[w] = counter
					counter++
					stack = append(stack, w)
					onStack[w] = true
					callStack = append(callStack, frame{node: w})
				} else if onStack[w] && index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
				continue
			}

			callStack = callStack[:len(callStack)-1]
			if len(callStack) > 0 {
				parent := callStack[len(callStack)-1].node
				if lowlink[v] < lowlink[parent] {
					lowlink[parent] = lowlink[v]
				}
			}

			if lowlink[v] == index[v] {
				componentID := int32(len(sizes))
				size := 0
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					componentOf[w] = componentID
					size++
					if w == v {
						break
					}
				}
				sizes = append(sizes, size)
			}
		}
	}

	return componentOf, sizes
}
