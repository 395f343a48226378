// SPDX-License-Identifier: EPL-2.0

package models

// ArgMax returns the index of the largest value in every row. Ties go to
// the lowest index; an empty row yields -1.
func ArgMax(logits [][]float32) []int {
	ids := make([]int, len(logits))
	for i, row := range logits {
		best := -1
		for j, v := range row {
			if best < 0 || v > row[best] {
				best = j
			}
		}
		ids[i] = best
	}

	return ids
}

// CollapseCTC applies the CTC decoding rule to frame-level ids: runs of the
// same id become one, then blank ids are dropped. A blank between two
// equal ids keeps both.
func CollapseCTC(ids []int, blank int) []int {
	out := make([]int, 0, len(ids))
	prev := blank
	for _, id := range ids {
		if id != prev && id != blank {
			out = append(out, id)
		}
		prev = id
	}

	return out
}
