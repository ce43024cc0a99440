package quantum

// basisKey is one classical occupancy pattern: one bit per board
// square plus one bit per live ancilla. It is comparable, so it can
// serve directly as an amplitude map key.
type basisKey struct {
	board uint64
	anc   uint64
}

func (k basisKey) bit(i int) uint64 {
	if i < 64 {
		return k.board >> uint(i) & 1
	}
	return k.anc >> uint(i-64) & 1
}

func (k basisKey) flip(i int) basisKey {
	if i < 64 {
		k.board ^= 1 << uint(i)
	} else {
		k.anc ^= 1 << uint(i-64)
	}
	return k
}

func (k basisKey) swap(i, j int) basisKey {
	if k.bit(i) != k.bit(j) {
		k = k.flip(i).flip(j)
	}
	return k
}

// dropAnc removes ancilla bit j (zero based within the ancilla
// register), shifting the higher ancilla bits down.
func (k basisKey) dropAnc(j int) basisKey {
	low := k.anc & (1<<uint(j) - 1)
	high := k.anc >> uint(j+1) << uint(j)
	k.anc = low | high
	return k
}

// String renders the key as a little-endian bit string: character i
// is the occupancy of qubit i. n is the total qubit count.
func (k basisKey) String(n int) string {
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = byte('0' + k.bit(i))
	}
	return string(buf)
}
