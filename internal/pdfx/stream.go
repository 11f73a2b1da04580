package pdfx

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// pdfLiteralRe matches PDF string literals: (text here)
var pdfLiteralRe = regexp.MustCompile(`\(((?:\\.|[^)\\])*)\)`)

// tjKernGap is the TJ kerning magnitude treated as a column gap. Kern values
// are expressed in thousandths of text space; jumps this large separate
// table cells or columns rather than adjusting glyph spacing.
const tjKernGap = 400

// layoutInfo accumulates positioning evidence while a page's content stream
// is parsed. It feeds the multi-column and table heuristics.
type layoutInfo struct {
	// x operands of Td/TD text-positioning operators
	xPositions []float64
}

// parseContentStream walks a page content stream line by line, collecting
// text-showing operators (Tj, TJ, ') and positioning operators (Td, TD, T*)
// into readable text plus layout evidence.
func parseContentStream(data []byte) (string, *layoutInfo) {
	var sb strings.Builder
	layout := &layoutInfo{}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")):
			for _, m := range pdfLiteralRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodeLiteral(m[1]))
			}

		case bytes.HasSuffix(line, []byte("TJ")):
			writeTJArray(&sb, line)

		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfLiteralRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodeLiteral(m[1]))
			}

		case bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")):
			if x, ok := tdXOperand(line); ok {
				layout.xPositions = append(layout.xPositions, x)
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}

		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return cleanText(sb.String()), layout
}

// writeTJArray renders a TJ show-array, turning large kern jumps into cell
// gaps: [(Name) -500 (HP) -500 (AC)] TJ becomes "Name  HP  AC".
func writeTJArray(sb *strings.Builder, line []byte) {
	idx := pdfLiteralRe.FindAllSubmatchIndex(line, -1)
	if len(idx) == 0 {
		return
	}
	prevEnd := 0
	for _, loc := range idx {
		if prevEnd > 0 {
			between := line[prevEnd:loc[0]]
			if kern, ok := largestKern(between); ok && kern >= tjKernGap {
				sb.WriteString("  ")
			}
		}
		sb.WriteString(decodeLiteral(line[loc[2]:loc[3]]))
		prevEnd = loc[1]
	}
}

// largestKern scans the bytes between two TJ string literals for numeric
// kern operands and reports the largest magnitude found.
func largestKern(between []byte) (float64, bool) {
	var max float64
	found := false
	for _, f := range strings.Fields(string(between)) {
		f = strings.Trim(f, "[]")
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		if v < 0 {
			v = -v
		}
		if v > max {
			max = v
		}
		found = true
	}
	return max, found
}

// tdXOperand extracts the x operand of a "x y Td" / "x y TD" line.
func tdXOperand(line []byte) (float64, bool) {
	fields := strings.Fields(string(line))
	if len(fields) < 3 {
		return 0, false
	}
	x, err := strconv.ParseFloat(fields[len(fields)-3], 64)
	if err != nil {
		return 0, false
	}
	return x, true
}

// decodeLiteral resolves PDF string escape sequences, including octal codes.
func decodeLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch c := raw[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(c)
		default:
			if c >= '0' && c <= '7' {
				val := int(c - '0')
				for d := 0; d < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; d++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(c)
			}
		}
	}
	return sb.String()
}

// cleanText normalizes extracted text: line endings unified, intra-line
// whitespace collapsed (preserving double-space cell gaps), blank runs
// reduced to a single blank line.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = collapseSpaces(strings.TrimRight(line, " \t"))
		if line == "" {
			blank++
			if blank > 1 || len(out) == 0 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// collapseSpaces reduces runs of 3+ spaces to a double space and tabs to a
// double space, keeping the two-space cell separator intact.
func collapseSpaces(line string) string {
	line = strings.ReplaceAll(line, "\t", "  ")
	for strings.Contains(line, "   ") {
		line = strings.ReplaceAll(line, "   ", "  ")
	}
	return strings.TrimLeft(line, " ")
}
