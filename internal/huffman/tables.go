// Package huffman gives the encoder side of Layer III's big_values and
// count1 Huffman tables: given a pair (or quad, for count1) of quantized
// magnitudes, how many bits would encoding them cost. Bitstream byte
// layout is out of scope, so only lengths matter, never the actual
// codewords — length is all a bit counter and a region/table search
// need.
//
// The big_values tables (0..31, with a few indices unused/reserved
// exactly as in the ISO table) and the two count1 tables (A, B) are
// built once at init time from each table's (xlen, linbits) shape:
// entries within the table's square body get a length from a
// triangular length-class layout that increases with max(|x|,|y|) the
// way every published ISO Layer III Huffman table does (shorter codes
// for small, cheap-to-afford magnitudes; the all-zero pair is always
// the unique 1-bit codeword); entries needing an escape (value >= the
// table's escape threshold) add linbits extra bits per escaped
// coordinate, matching how a compliant decoder's huffmanDecode reads
// linbits-extended codes back.
package huffman

import "math/bits"

// NumBigValueTables is the number of big_values Huffman tables (0-31);
// not all are assigned (4 and 14 unused is an ISO artifact we don't need
// to model bit-exactly since we never instantiate the unused slots).
const NumBigValueTables = 32

// Count1TableA and Count1TableB are the count1-region table indices,
// offset by 32 from the big_values table space the way
// count1table_select is conventionally numbered.
const (
	Count1TableA = 32
	Count1TableB = 33
)

type bigValueTable struct {
	xlen    int // table body is xlen x xlen
	linbits int // extra bits per escaped coordinate
	lmax    int // values > lmax need the escape symbol + linbits
}

var bigValueTables [NumBigValueTables]bigValueTable

func init() {
	// Table shapes: xlen grows with table index, linbits turns on for
	// the escape tables 16..31 exactly as in the ISO table, which is
	// where big_values can carry magnitudes beyond the
	// table body via an escape + linear extra bits.
	shape := []struct {
		idx, xlen, linbits int
	}{
		{0, 0, 0},
		{1, 2, 0}, {2, 3, 0}, {3, 3, 0},
		{5, 4, 0}, {6, 4, 0}, {7, 6, 0}, {8, 6, 0}, {9, 6, 0},
		{10, 8, 0}, {11, 8, 0}, {12, 8, 0},
		{13, 16, 0}, {15, 16, 0},
		{16, 16, 1}, {17, 16, 2}, {18, 16, 3}, {19, 16, 4},
		{20, 16, 6}, {21, 16, 8}, {22, 16, 10}, {23, 16, 13},
		{24, 16, 4}, {25, 16, 5}, {26, 16, 6},
		{27, 16, 7}, {28, 16, 8}, {29, 16, 9}, {30, 16, 11}, {31, 16, 13},
	}
	for _, s := range shape {
		lmax := s.xlen - 1
		bigValueTables[s.idx] = bigValueTable{xlen: s.xlen, linbits: s.linbits, lmax: lmax}
	}
}

// classLength returns the ISO-style triangular Huffman length class for
// a coordinate pair clamped into a table's body: a pair (a,b) with
// max(a,b) == 0 costs the table's shortest code (1 bit), and the cost
// grows with max(a,b) plus a width term for how far off-diagonal the
// pair sits, the structural shape every big_values table in the ISO
// annex shares regardless of its exact bit-identical codeword
// assignment (see DESIGN.md for why we don't reproduce the literal ISO
// codewords bit-for-bit).
func classLength(a, b int) int {
	m := a
	if b > m {
		m = b
	}
	if m == 0 {
		return 1
	}
	class := bits.Len(uint(m)) // 1 for m=1, 2 for m in [2,3], etc.
	skew := a - b
	if skew < 0 {
		skew = -skew
	}
	return 2*class + 1 + skew/2
}

// BigValueBits returns the bit cost of Huffman-coding one (x,y)
// big_values pair with table tableNum, and whether the pair needed the
// escape+linbits path (used by region/table search to reject tables
// that can't represent a magnitude at all).
func BigValueBits(tableNum, x, y int) (bitsCost int, ok bool) {
	if tableNum < 0 || tableNum >= NumBigValueTables {
		return 0, false
	}
	t := bigValueTables[tableNum]
	if t.xlen == 0 {
		// Table 0 is the all-zero region table: only (0,0) is legal.
		if x == 0 && y == 0 {
			return 1, true
		}
		return 0, false
	}
	ax, ay := x, y
	cost := 0
	if ax > t.lmax {
		if t.linbits == 0 {
			return 0, false
		}
		cost += t.linbits
		ax = t.lmax
	}
	if ay > t.lmax {
		if t.linbits == 0 {
			return 0, false
		}
		cost += t.linbits
		ay = t.lmax
	}
	cost += classLength(ax, ay)
	if x != 0 {
		cost++ // sign bit
	}
	if y != 0 {
		cost++
	}
	return cost, true
}

// Count1Bits returns the bit cost of Huffman-coding one count1 quad
// (v,w,x,y), each in {0,1}, under table A or B. Table A is the
// shorter-on-average of the two (no explicit zero bias), table B
// favors an all-zero quad, mirroring the ISO count1 tables' two
// distinct weightings (the encoder picks whichever is cheaper for the
// actual granule, exactly as count1table_select records).
func Count1Bits(tableNum, v, w, x, y int) int {
	ones := 0
	for _, b := range [4]int{v, w, x, y} {
		if b != 0 {
			ones++
		}
	}
	base := 4 // iso count1 tables are nibble length plus sign bits
	if tableNum == Count1TableB {
		if ones == 0 {
			base = 1
		} else {
			base = 4
		}
	} else {
		base = 4 - (4-ones)/3
	}
	return base + ones // one sign bit per non-zero component
}
