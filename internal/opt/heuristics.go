package opt

// ImproveTwoOpt applies 2-opt segment reversals to an open path, keeping
// order[0] fixed at the origin. It stops after passes sweeps or the first
// sweep without an improvement, and returns a new slice.
func ImproveTwoOpt(mx Matrix, order []int, passes int) []int {
	if passes <= 0 {
		passes = 1
	}
	best := append([]int(nil), order...)
	bestDist := mx.PathLength(best)
	n := len(order)
	for it := 0; it < passes; it++ {
		improved := false
		for i := 1; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := twoOptSwap(best, i, k)
				if d := mx.PathLength(cand); d+1e-9 < bestDist {
					best, bestDist = cand, d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	// reverse i..k
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}
