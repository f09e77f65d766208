package token

// Indent is the readability post-pass applied after writing. For every
// matched pair of structural delimiters ({} [] <>), a block whose compacted
// span is under 80 bytes is collapsed onto one line; everything still
// multi-line is re-indented two spaces per nesting depth. Quoted strings and
// ';' comments are never rewritten. The pass is idempotent: block width is
// measured on the compacted form, which both phases leave unchanged.
func Indent(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	cls := classify(src)
	pairs, balanced := matchPairs(src, cls)
	if !balanced {
		// Cosmetic pass only: never rewrite a structurally broken document.
		out := make([]byte, len(src))
		copy(out, src)
		return out
	}
	mid := collapse(src, cls, pairs)
	return reindent(mid)
}

const collapseLimit = 80

type byteClass uint8

const (
	classNormal byteClass = iota
	classQuote            // inside a quoted string, delimiters included
	classComment
)

// classify labels every byte as normal, quoted-string or comment content.
func classify(src []byte) []byteClass {
	cls := make([]byteClass, len(src))
	inQuote := false
	inComment := false
	for i, c := range src {
		switch {
		case inQuote:
			cls[i] = classQuote
			if c == '"' {
				inQuote = false
			}
		case inComment:
			if c == '\n' {
				inComment = false
				cls[i] = classNormal
			} else {
				cls[i] = classComment
			}
		case c == '"':
			cls[i] = classQuote
			inQuote = true
		case c == ';':
			cls[i] = classComment
			inComment = true
		default:
			cls[i] = classNormal
		}
	}
	return cls
}

type pair struct {
	open, close int
}

func matchPairs(src []byte, cls []byteClass) ([]pair, bool) {
	var stack []int
	var pairs []pair
	for i, c := range src {
		if cls[i] != classNormal {
			continue
		}
		switch c {
		case '{', '[', '<':
			stack = append(stack, i)
		case '}', ']', '>':
			if len(stack) == 0 {
				return nil, false
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if closerFor(src[open]) != c {
				return nil, false
			}
			pairs = append(pairs, pair{open: open, close: i})
		}
	}
	return pairs, len(stack) == 0
}

func closerFor(open byte) byte {
	switch open {
	case '{':
		return '}'
	case '[':
		return ']'
	default:
		return '>'
	}
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f'
}

// compactPrefix returns prefix sums of the compacted width: a run of normal
// whitespace containing a newline counts as one byte, everything else counts
// as written. The measure is invariant under both collapse and reindent,
// which is what makes the whole pass idempotent.
func compactPrefix(src []byte, cls []byteClass) []int {
	pre := make([]int, len(src)+1)
	i := 0
	for i < len(src) {
		if cls[i] == classNormal && isSpaceByte(src[i]) {
			j := i
			hasNL := false
			for j < len(src) && cls[j] == classNormal && isSpaceByte(src[j]) {
				if src[j] == '\n' {
					hasNL = true
				}
				j++
			}
			w := j - i
			if hasNL {
				w = 1
			}
			// Spread the run's weight onto its first byte.
			pre[i+1] = pre[i] + w
			for k := i + 1; k < j; k++ {
				pre[k+1] = pre[k]
			}
			i = j
			continue
		}
		pre[i+1] = pre[i] + 1
		i++
	}
	return pre
}

// collapse rewrites newline runs inside short blocks into single spaces.
// Outside collapsed blocks, whitespace runs containing a newline normalize to
// a bare newline so reindent starts from a clean slate.
func collapse(src []byte, cls []byteClass, pairs []pair) []byte {
	pre := compactPrefix(src, cls)
	commentAt := make([]int, len(src)+1)
	for i := range src {
		commentAt[i+1] = commentAt[i]
		if cls[i] == classComment {
			commentAt[i+1]++
		}
	}

	// Mark the interior of every block that compacts under the limit. A block
	// holding a comment is never collapsed, the comment would swallow the
	// rest of the line.
	inCollapsed := make([]bool, len(src))
	for _, p := range pairs {
		if pre[p.close+1]-pre[p.open] >= collapseLimit {
			continue
		}
		if commentAt[p.close+1]-commentAt[p.open] > 0 {
			continue
		}
		for i := p.open; i <= p.close; i++ {
			inCollapsed[i] = true
		}
	}

	out := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		if cls[i] == classNormal && isSpaceByte(src[i]) {
			j := i
			hasNL := false
			for j < len(src) && cls[j] == classNormal && isSpaceByte(src[j]) {
				if src[j] == '\n' {
					hasNL = true
				}
				j++
			}
			switch {
			case !hasNL:
				out = append(out, src[i:j]...)
			case inCollapsed[i] && (j >= len(src) || inCollapsed[j]):
				out = append(out, ' ')
			default:
				out = append(out, '\n')
			}
			i = j
			continue
		}
		out = append(out, src[i])
		i++
	}
	return out
}

// reindent rewrites leading whitespace of every line to two spaces per
// nesting depth, dedenting lines that begin with closing delimiters.
func reindent(src []byte) []byte {
	cls := classify(src)
	out := make([]byte, 0, len(src)+len(src)/4)
	depth := 0
	i := 0
	for i < len(src) {
		// Line start: find the end of this line (quote-aware, a newline
		// inside a quoted string does not break the line).
		end := i
		for end < len(src) && !(src[end] == '\n' && cls[end] == classNormal) {
			end++
		}
		line := src[i:end]
		lineCls := cls[i:end]

		// Strip existing leading whitespace.
		s := 0
		for s < len(line) && lineCls[s] == classNormal && isSpaceByte(line[s]) {
			s++
		}
		line = line[s:]
		lineCls = lineCls[s:]

		if len(line) > 0 {
			indent := depth - leadingClosers(line, lineCls)
			if indent < 0 {
				indent = 0
			}
			for k := 0; k < indent*2; k++ {
				out = append(out, ' ')
			}
			out = append(out, line...)
			out = append(out, '\n')
			depth += depthDelta(line, lineCls)
		}
		i = end + 1
	}
	return out
}

func leadingClosers(line []byte, cls []byteClass) int {
	n := 0
	for i, c := range line {
		if cls[i] != classNormal {
			break
		}
		switch c {
		case '}', ']', '>':
			n++
		case ' ', '\t':
			continue
		default:
			return n
		}
	}
	return n
}

func depthDelta(line []byte, cls []byteClass) int {
	d := 0
	for i, c := range line {
		if cls[i] != classNormal {
			continue
		}
		switch c {
		case '{', '[', '<':
			d++
		case '}', ']', '>':
			d--
		}
	}
	return d
}
