// Package zsort implements a stable least-significant-digit radix sort over
// an index permutation.
//
// The sorter never moves the caller's records. It returns the order in which
// they should be visited, so records of any size sort in O(N) time with O(N)
// scratch space that is reused across calls.
package zsort

// digitBits is the radix width. 8 bits keeps the counting table in L1.
const digitBits = 8

const buckets = 1 << digitBits

// Sorter holds scratch buffers between sorts. The zero value is ready to use.
// A Sorter is not safe for concurrent use.
type Sorter struct {
	keys    []uint32
	perm    []uint32
	tmpKeys []uint32
	tmpPerm []uint32
}

// Sort returns the permutation that orders n records by ascending key.
// Records with equal keys keep their relative order. bits is the number of
// significant key bits; keys must be below 1<<bits.
//
// The returned slice is owned by the Sorter and is valid until the next call.
func (s *Sorter) Sort(n int, bits uint, key func(i int) uint32) []uint32 {
	s.grow(n)
	keys, perm := s.keys[:n], s.perm[:n]
	for i := range keys {
		keys[i] = key(i)
		perm[i] = uint32(i) //nolint:gosec // n is bounded by the frame length
	}
	if n < 2 {
		return perm
	}

	tmpKeys, tmpPerm := s.tmpKeys[:n], s.tmpPerm[:n]
	var count [buckets]int
	for shift := uint(0); shift < bits; shift += digitBits {
		count = [buckets]int{}
		for _, k := range keys {
			count[(k>>shift)&(buckets-1)]++
		}
		// Skip passes where every key lands in one bucket.
		if count[(keys[0]>>shift)&(buckets-1)] == n {
			continue
		}
		sum := 0
		for b := range count {
			c := count[b]
			count[b] = sum
			sum += c
		}
		for i, k := range keys {
			d := (k >> shift) & (buckets - 1)
			tmpKeys[count[d]] = k
			tmpPerm[count[d]] = perm[i]
			count[d]++
		}
		keys, tmpKeys = tmpKeys, keys
		perm, tmpPerm = tmpPerm, perm
	}
	return perm
}

func (s *Sorter) grow(n int) {
	if cap(s.keys) >= n {
		return
	}
	s.keys = make([]uint32, n)
	s.perm = make([]uint32, n)
	s.tmpKeys = make([]uint32, n)
	s.tmpPerm = make([]uint32, n)
}
