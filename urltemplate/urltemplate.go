// Package urltemplate compiles WMTS RESTful resource URL templates once and builds tile
// URLs from them without parsing the template again.
package urltemplate

import (
	"errors"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/pdok/wmtstiles/logging"
	"github.com/pdok/wmtstiles/mapslicehelp"
)

const (
	TileMatrix = "{TileMatrix}"
	TileCol    = "{TileCol}"
	TileRow    = "{TileRow}"
)

var ErrEmptyTemplate = errors.New("url template must not be empty")

var placeholders = []struct {
	slot    slot
	name    string
	pattern *regexp.Regexp
}{
	{tileMatrixSlot, TileMatrix, placeholderPattern(TileMatrix)},
	{tileColSlot, TileCol, placeholderPattern(TileCol)},
	{tileRowSlot, TileRow, placeholderPattern(TileRow)},
}

// placeholderPattern matches placeholder case-insensitively. Positions are taken in the
// original string since lowercasing may change the byte length of other characters.
func placeholderPattern(placeholder string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(placeholder))
}

type slot int

const (
	literal slot = iota
	tileMatrixSlot
	tileColSlot
	tileRowSlot
)

type segment struct {
	slot    slot
	literal string
}

// Template is a compiled URL template. It is safe for concurrent use.
type Template struct {
	raw      string
	segments []segment
	longest  atomic.Int64
}

// Compile splits template into literal parts and substitution slots. Placeholders match
// case-insensitively; a missing placeholder is logged and never substituted.
func Compile(template string, logger logging.Logger) (*Template, error) {
	if template == "" {
		return nil, ErrEmptyTemplate
	}
	if logger == nil {
		logger = logging.Nop()
	}
	type found struct {
		slot slot
		pos  int
		len  int
	}
	var present []found
	for _, p := range placeholders {
		loc := p.pattern.FindStringIndex(template)
		if loc == nil {
			logger.Debug("placeholder missing from url template", "placeholder", p.name, "template", logging.Short(template))
			continue
		}
		present = append(present, found{slot: p.slot, pos: loc[0], len: loc[1] - loc[0]})
	}
	sort.Slice(present, func(i, j int) bool { return present[i].pos < present[j].pos })

	t := &Template{raw: template}
	start := 0
	for _, p := range present {
		if p.pos > start {
			t.segments = append(t.segments, segment{slot: literal, literal: template[start:p.pos]})
		}
		t.segments = append(t.segments, segment{slot: p.slot})
		start = p.pos + p.len
	}
	if start < len(template) {
		t.segments = append(t.segments, segment{slot: literal, literal: template[start:]})
	}
	return t, nil
}

// MustCompile is like Compile but panics on an empty template.
func MustCompile(template string) *Template {
	t, err := Compile(template, nil)
	if err != nil {
		panic(err)
	}
	return t
}

// Build substitutes the URL-encoded tile matrix id and the decimal column and row.
func (t *Template) Build(tileMatrixID string, col, row int) string {
	var sb strings.Builder
	sb.Grow(int(t.longest.Load()))
	encoded := url.QueryEscape(tileMatrixID)
	for _, s := range t.segments {
		switch s.slot {
		case literal:
			sb.WriteString(s.literal)
		case tileMatrixSlot:
			sb.WriteString(encoded)
		case tileColSlot:
			sb.WriteString(strconv.Itoa(col))
		case tileRowSlot:
			sb.WriteString(strconv.Itoa(row))
		}
	}
	n := int64(sb.Len())
	for {
		cur := t.longest.Load()
		if n <= cur || t.longest.CompareAndSwap(cur, n) {
			break
		}
	}
	return sb.String()
}

func (t *Template) String() string {
	return t.raw
}

// Substitute replaces every occurrence of each {key}, matched case-insensitively, with its
// value. It is used for placeholders that are fixed per service, like {Style}.
func Substitute(template string, values map[string]string) string {
	for _, k := range mapslicehelp.SortedKeys(values) {
		template = placeholderPattern("{"+k+"}").ReplaceAllLiteralString(template, values[k])
	}
	return template
}
