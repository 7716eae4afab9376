package tle

// LineLength is the fixed width of a TLE data line.
const LineLength = 69

// checksumColumn is the 0-based column holding a line's checksum digit.
const checksumColumn = LineLength - 1

// Checksum computes the NORAD modulo-10 checksum: the sum of all digits plus
// one for every '-', modulo 10. Letters, spaces, '.' and '+' count as zero.
// Only columns 0..67 are summed; the checksum column never feeds itself, so
// Checksum(line) == Checksum(line[:68]) for a full line.
func Checksum(line string) int {
	n := len(line)
	if n > checksumColumn {
		n = checksumColumn
	}
	sum := 0
	for i := 0; i < n; i++ {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// ChecksumResult is the outcome of VerifyChecksum.
type ChecksumResult struct {
	Expected int  `json:"expected"` // computed from columns 0..67
	Actual   int  `json:"actual"`   // digit in column 68, -1 if not a digit
	OK       bool `json:"ok"`
	Length   int  `json:"length"`
	LengthOK bool `json:"lengthOk"`
}

// VerifyChecksum compares the computed checksum of a full-width line with the
// digit in its last column. A line that is not exactly LineLength long is a
// length failure: LengthOK is false and no checksum comparison is made.
func VerifyChecksum(line string) ChecksumResult {
	res := ChecksumResult{Expected: -1, Actual: -1, Length: len(line)}
	if len(line) != LineLength {
		return res
	}
	res.LengthOK = true
	res.Expected = Checksum(line)
	if c := line[checksumColumn]; c >= '0' && c <= '9' {
		res.Actual = int(c - '0')
	}
	res.OK = res.Actual == res.Expected
	return res
}
