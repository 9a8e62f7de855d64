package source

// delimiterOffset is the boundary offset that is never cut: the start code
// following a leading access unit delimiter (09 xx) lands exactly here.
const delimiterOffset = 6

// FindBoundary returns the length of the first complete access unit in
// cache, or 0 when more data is needed. A unit ends just after a 3-byte
// 00 00 01 start code, found with a rolling sum over the last three bytes.
func FindBoundary(cache []byte) int {
	if len(cache) < 3 {
		return 0
	}
	sum := int(cache[0]) + int(cache[1]) + int(cache[2])
	for r := 0; ; r++ {
		if sum == 1 && cache[r+2] == 1 && r+3 != delimiterOffset {
			return r + 3
		}
		if r+3 >= len(cache) {
			return 0
		}
		sum += int(cache[r+3]) - int(cache[r])
	}
}
