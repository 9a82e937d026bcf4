package address

import "strings"

// Tree is an ordered sequence of tokens over a single address. The
// sequence lives in an arena (a slice of token, referenced by pointer so
// detached sub-ranges can keep sharing it) with head/tail indices into
// that arena; -1 means empty. A Tree always represents at most one
// address: the peeling loop mutates it in place, detaching and
// reattaching whole domain suffixes rather than building new trees.
type Tree struct {
	nodes *[]token
	head  int
	tail  int
}

// NewTree returns an empty tree with a fresh arena.
func NewTree() *Tree {
	nodes := make([]token, 0, 8)
	return &Tree{nodes: &nodes, head: nilIdx, tail: nilIdx}
}

func (t *Tree) at(i int) *token { return &(*t.nodes)[i] }

// Empty reports whether the tree holds no tokens.
func (t *Tree) Empty() bool { return t.head == nilIdx }

func (t *Tree) push(k Kind, text string) int {
	idx := len(*t.nodes)
	*t.nodes = append(*t.nodes, token{kind: k, text: text, prev: t.tail, next: nilIdx})
	if t.tail != nilIdx {
		t.at(t.tail).next = idx
	}
	if t.head == nilIdx {
		t.head = idx
	}
	t.tail = idx
	return idx
}

func (t *Tree) pushAtom(s string) int          { return t.push(TAtom, s) }
func (t *Tree) pushQuoted(s string) int        { return t.push(TQuoted, s) }
func (t *Tree) pushComment(s string) int       { return t.push(TComment, s) }
func (t *Tree) pushDomainLiteral(s string) int { return t.push(TDomainLiteral, s) }
func (t *Tree) pushSpecial(r byte) int         { return t.push(TSpecial, string(r)) }

// Token is the read-only view of a single tree position, returned by
// Tokens for inspection and tests.
type Token struct {
	Kind Kind
	Text string
}

// Tokens returns the tree's tokens head to tail, in order.
func (t *Tree) Tokens() []Token {
	var out []Token
	for i := t.head; i != nilIdx; i = t.at(i).next {
		out = append(out, Token{t.at(i).kind, t.at(i).text})
	}
	return out
}

// TrimSafeTrailingDot drops a single trailing '.' special token when
// doing so is unambiguous: the token preceding it must be '@' or a
// plain atom. This never touches "a..b", since the token before the
// second dot is itself a dot, not an atom or '@'.
func (t *Tree) TrimSafeTrailingDot() {
	if t.tail == nilIdx {
		return
	}
	tail := t.at(t.tail)
	if tail.kind != TSpecial || tail.text != "." {
		return
	}
	p := tail.prev
	if p == nilIdx {
		return
	}
	prev := t.at(p)
	safe := prev.kind == TAtom || (prev.kind == TSpecial && prev.text == "@")
	if !safe {
		return
	}
	t.tail = p
	t.at(p).next = nilIdx
}

// StripTrailingBareAt drops a trailing '@' special with nothing after
// it (an address submitted with no domain at all), reporting whether
// it found one to drop.
func (t *Tree) StripTrailingBareAt() bool {
	if t.tail == nilIdx {
		return false
	}
	tail := t.at(t.tail)
	if tail.kind != TSpecial || tail.text != "@" {
		return false
	}
	p := tail.prev
	t.tail = p
	if p == nilIdx {
		t.head = nilIdx
	} else {
		t.at(p).next = nilIdx
	}
	return true
}

// SetSingleAtom replaces the tree's entire contents with one atom
// token, used to substitute "postmaster" for a collapsed address.
func (t *Tree) SetSingleAtom(s string) {
	nodes := make([]token, 0, 1)
	t.nodes = &nodes
	t.head, t.tail = nilIdx, nilIdx
	t.pushAtom(s)
}

// SuffixAfter renders, without mutating the tree, the tokens strictly
// after idx as a plain string (domain literal brackets restored,
// comments dropped since they carry no semantic content in a domain).
// Used to read a candidate domain ahead of a '@' before committing to
// detach it.
func (t *Tree) SuffixAfter(idx int) string {
	var b strings.Builder
	for i := t.at(idx).next; i != nilIdx; i = t.at(i).next {
		tok := t.at(i)
		switch tok.kind {
		case TAtom, TSpecial:
			b.WriteString(tok.text)
		case TDomainLiteral:
			b.WriteByte('[')
			b.WriteString(tok.text)
			b.WriteByte(']')
		}
	}
	return b.String()
}

// HasSpecialBefore reports whether any TSpecial token whose text is one
// of the given runes occurs strictly before idx.
func (t *Tree) HasSpecialBefore(idx int, runes ...byte) bool {
	for i := t.head; i != nilIdx && i != idx; i = t.at(i).next {
		tok := t.at(i)
		if tok.kind != TSpecial {
			continue
		}
		for _, r := range runes {
			if tok.text == string(r) {
				return true
			}
		}
	}
	return false
}

// RightmostSpecial locates the rightmost TSpecial token whose text is
// the single rune r, returning its arena index. ok is false if none is
// present in the tree's current range.
func (t *Tree) RightmostSpecial(r byte) (idx int, ok bool) {
	want := string(r)
	for i := t.tail; i != nilIdx; i = t.at(i).prev {
		tok := t.at(i)
		if tok.kind == TSpecial && tok.text == want {
			return i, true
		}
	}
	return nilIdx, false
}

// HasSpecial reports whether any of the given special runes occurs
// anywhere in the tree's current range.
func (t *Tree) HasSpecial(runes ...byte) bool {
	for i := t.head; i != nilIdx; i = t.at(i).next {
		tok := t.at(i)
		if tok.kind != TSpecial {
			continue
		}
		for _, r := range runes {
			if tok.text == string(r) {
				return true
			}
		}
	}
	return false
}

// SubKeepBefore detaches the tokens at and after idx (which must be a
// valid index in this tree's current range) from t, which is left
// holding everything strictly before idx, and returns the detached
// suffix as a free-standing Tree sharing the same arena.
func (t *Tree) SubKeepBefore(idx int) *Tree {
	before := t.at(idx).prev
	rest := &Tree{nodes: t.nodes, head: idx, tail: t.tail}

	if before == nilIdx {
		t.head, t.tail = nilIdx, nilIdx
	} else {
		t.at(before).next = nilIdx
		t.tail = before
	}
	t.at(idx).prev = nilIdx
	return rest
}

// Append attaches other's tokens onto t's tail in order. If other
// shares t's arena (it was produced by a SubKeepBefore on t, possibly
// several generations back), the ranges are relinked directly with no
// copying; otherwise other's tokens are copied into t's arena, because
// a Tree's indices are only meaningful within their own arena.
func (t *Tree) Append(other *Tree) {
	if other == nil || other.Empty() {
		return
	}
	if other.nodes == t.nodes {
		if t.tail == nilIdx {
			t.head = other.head
		} else {
			t.at(t.tail).next = other.head
			t.at(other.head).prev = t.tail
		}
		t.tail = other.tail
		return
	}
	for i := other.head; i != nilIdx; i = other.at(i).next {
		tok := other.at(i)
		t.push(tok.kind, tok.text)
	}
}

// ReplaceSpecial overwrites the token at idx (which must be a
// TSpecial) with the special rune r, used by the canonical rewriter to
// turn a '%' or '!' into '@' in place.
func (t *Tree) ReplaceSpecial(idx int, r byte) {
	tok := t.at(idx)
	tok.kind = TSpecial
	tok.text = string(r)
}

// SwapAroundSpecial exchanges the token range before idx with the
// token range after idx, leaving idx itself in place; the rewriter
// uses it to turn "site!user" into "user!site" before relabeling the
// '!' as '@'.
func (t *Tree) SwapAroundSpecial(idx int) {
	tok := t.at(idx)
	prefixHead, prefixTail := t.head, tok.prev
	suffixHead, suffixTail := tok.next, t.tail

	tok.prev, tok.next = nilIdx, nilIdx
	newHead, newTail := idx, idx

	if suffixHead != nilIdx {
		t.at(suffixHead).prev = nilIdx
		t.at(suffixTail).next = idx
		tok.prev = suffixTail
		newHead = suffixHead
	}
	if prefixHead != nilIdx {
		t.at(prefixTail).next = nilIdx
		t.at(prefixHead).prev = idx
		tok.next = prefixHead
		newTail = prefixTail
	}
	t.head = newHead
	t.tail = newTail
}

// IsSingleEmptyQuoted reports whether the tree consists of exactly one
// token, a quoted string with empty content — the degenerate address
// the peeling loop substitutes "postmaster" for.
func (t *Tree) IsSingleEmptyQuoted() bool {
	return t.head != nilIdx && t.head == t.tail && t.at(t.head).kind == TQuoted && t.at(t.head).text == ""
}

// Internalize re-emits the tree in internal (unquoted) form: quoting is
// dropped from local parts where it is unambiguous to do so, domain
// literal brackets and comment parens are restored, and tokens are
// joined with no additional whitespace.
func (t *Tree) Internalize() string {
	var b strings.Builder
	for i := t.head; i != nilIdx; i = t.at(i).next {
		tok := t.at(i)
		switch tok.kind {
		case TAtom, TSpecial:
			b.WriteString(tok.text)
		case TQuoted:
			b.WriteString(quoteLocalpart(tok.text))
		case TDomainLiteral:
			b.WriteByte('[')
			b.WriteString(tok.text)
			b.WriteByte(']')
		case TComment:
			b.WriteByte('(')
			b.WriteString(tok.text)
			b.WriteByte(')')
		}
	}
	return b.String()
}

func (t *Tree) String() string { return t.Internalize() }

// quoteLocalpart renders s as a bare dot-atom-ish run when that is
// possible without loss, and as a quoted, escaped string otherwise. The
// same two-way choice smtp.Localpart.String makes when packing an
// address for the wire.
func quoteLocalpart(s string) string {
	dotstr := len(s) > 0
	for _, part := range strings.Split(s, ".") {
		if len(part) == 0 {
			dotstr = false
			break
		}
		for _, c := range part {
			if isAtext(c) {
				continue
			}
			dotstr = false
			break
		}
		if !dotstr {
			break
		}
	}
	if dotstr {
		return s
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, c := range s {
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	b.WriteByte('"')
	return b.String()
}
