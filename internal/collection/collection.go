// Package collection derives the hierarchical storage path that namespaces
// everything written for one document. Derivation is pure and
// deterministic: equivalent inputs always produce byte-identical paths,
// which is what makes re-imports idempotent.
package collection

import (
	"errors"
	"strings"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/detect"
)

// DefaultNamespace prefixes every path unless overridden.
const DefaultNamespace = "rpger"

// ErrInvalidIdentifier means a collection name had no usable characters
// left after sanitization.
var ErrInvalidIdentifier = errors.New("invalid collection identifier")

// Path is a fully-derived collection path. All segments are sanitized.
type Path struct {
	Namespace  string
	GameType   string
	Edition    string
	BookType   string
	Collection string
}

// Derive builds a Path from detection metadata and a caller-chosen
// collection name, using the default namespace.
func Derive(meta *detect.GameMetadata, collectionName string) (Path, error) {
	return DeriveIn(DefaultNamespace, meta, collectionName)
}

// DeriveIn is Derive with an explicit namespace.
func DeriveIn(namespace string, meta *detect.GameMetadata, collectionName string) (Path, error) {
	coll := Sanitize(collectionName)
	if coll == "" {
		return Path{}, ErrInvalidIdentifier
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	p := Path{
		Namespace:  Sanitize(namespace),
		Collection: coll,
	}
	if meta != nil {
		p.GameType = Sanitize(meta.GameType)
		p.Edition = Sanitize(meta.Edition)
		p.BookType = Sanitize(meta.BookType)
	}
	if p.GameType == "" {
		p.GameType = "unknown"
	}
	return p, nil
}

// Segments returns the non-empty path segments in order. Edition and book
// type are omitted when detection produced none.
func (p Path) Segments() []string {
	segs := make([]string, 0, 5)
	for _, s := range []string{p.Namespace, p.GameType, p.Edition, p.BookType, p.Collection} {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// String renders the canonical dotted path key. Segments are already
// restricted to [a-z0-9_], so the dot is unambiguous.
func (p Path) String() string {
	return strings.Join(p.Segments(), ".")
}

// Name renders the path as a flat identifier safe for store collection and
// table names.
func (p Path) Name() string {
	return strings.Join(p.Segments(), "_")
}

// segmentAliases maps well-known spellings to their canonical segment
// before the character rules run.
var segmentAliases = map[string]string{
	"d&d":                "dnd",
	"dungeons & dragons": "dnd",
	"ad&d":               "add",
}

// Sanitize normalizes one path segment: lower-case, known aliases applied,
// ampersands spelled out, apostrophes and dots removed, every other
// disallowed character replaced with underscore, runs collapsed, edges
// trimmed. "D&D" and "5th Edition" become "dnd" and "5th_edition".
func Sanitize(segment string) string {
	lower := strings.ToLower(strings.TrimSpace(segment))
	if alias, ok := segmentAliases[lower]; ok {
		return alias
	}
	lower = strings.ReplaceAll(lower, "&", " and ")

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_':
			b.WriteRune(r)
		case r == '\'' || r == '.':
			// Joining punctuation drops out entirely.
		default:
			b.WriteByte('_')
		}
	}

	out := collapseUnderscores(b.String())
	return strings.Trim(out, "_")
}

func collapseUnderscores(s string) string {
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}
