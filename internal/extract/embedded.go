package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/titanous/json5"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
)

// MaxWalkDepth bounds the embedded-state traversal.
const MaxWalkDepth = 32

// EmbeddedMarkers label the inline state objects searched, in order.
var EmbeddedMarkers = []string{
	"window.__INITIAL_STATE__",
	"window.pageConfig",
	"__INITIAL_DATA__",
	"window.__APOLLO_STATE__",
}

// CollectionKeys name the mapping keys whose sequence values hold records.
var CollectionKeys = []string{"shops", "list", "data", "results", "items"}

var (
	idAliases          = []string{"id", "shopId"}
	ratingAliases      = []string{"rating", "avgRating"}
	addressAliases     = []string{"address"}
	categoryAliases    = []string{"category", "categoryName"}
	priceAliases       = []string{"avgPrice", "price", "price_per_person"}
	reviewCountAliases = []string{"reviewCount", "review_count"}
)

var markerPatterns = compileMarkers(EmbeddedMarkers)

func compileMarkers(markers []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(markers))
	for _, m := range markers {
		out = append(out, regexp.MustCompile(regexp.QuoteMeta(m)+`\s*=\s*\{`))
	}
	return out
}

// Embedded searches the raw body for inline state objects and walks the first
// one that parses and yields candidates.
func Embedded(body []byte) []crawler.RecordCandidate {
	text := string(body)
	out, _ := FirstOf(markerPatterns, func(re *regexp.Regexp) ([]crawler.RecordCandidate, bool) {
		literal, ok := captureObject(text, re)
		if !ok {
			return nil, false
		}
		var tree any
		if err := json5.Unmarshal([]byte(literal), &tree); err != nil {
			return nil, false
		}
		found := walk(tree)
		return found, len(found) > 0
	})
	return out
}

// captureObject returns the object literal starting at the brace that ends the
// marker match, up to its balanced closing brace.
func captureObject(text string, re *regexp.Regexp) (string, bool) {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	start := loc[1] - 1
	end, ok := balancedEnd(text, start)
	if !ok {
		return "", false
	}
	return text[start : end+1], true
}

// balancedEnd scans from an opening brace and returns the index of its match.
// Braces inside single- or double-quoted strings are ignored.
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	var quote byte
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

type frame struct {
	node  any
	depth int
}

// walk visits the tree with an explicit stack. Mapping keys are visited in
// sorted order so output is deterministic.
func walk(root any) []crawler.RecordCandidate {
	var out []crawler.RecordCandidate
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > MaxWalkDepth {
			continue
		}

		var children []any
		switch node := f.node.(type) {
		case map[string]any:
			for _, key := range sortedKeys(node) {
				value := node[key]
				items, isList := value.([]any)
				if !isList || !isCollectionKey(key) {
					children = append(children, value)
					continue
				}
				for _, item := range items {
					if c, ok := candidateFromMap(item); ok {
						out = append(out, c)
						continue
					}
					children = append(children, item)
				}
			}
		case []any:
			children = node
		}
		// Push in reverse so the first child is visited first.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], depth: f.depth + 1})
		}
	}
	return out
}

func isCollectionKey(key string) bool {
	for _, k := range CollectionKeys {
		if k == key {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func candidateFromMap(item any) (crawler.RecordCandidate, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return crawler.RecordCandidate{}, false
	}
	rawName, ok := m["name"]
	if !ok {
		return crawler.RecordCandidate{}, false
	}
	name, _ := asText(rawName)
	if name == "" {
		return crawler.RecordCandidate{}, false
	}
	c := crawler.RecordCandidate{Name: name}
	c.ShopID = optional(aliasValue(m, idAliases, asID))
	c.Rating = optional(aliasValue(m, ratingAliases, asFloat))
	c.Address = optional(aliasValue(m, addressAliases, asText))
	c.Category = optional(aliasValue(m, categoryAliases, asText))
	c.PricePerPerson = optional(aliasValue(m, priceAliases, asInt))
	c.ReviewCount = optional(aliasValue(m, reviewCountAliases, asInt))
	return c, true
}

// aliasValue returns the first alias present in m whose value converts.
func aliasValue[T any](m map[string]any, aliases []string, convert func(any) (T, bool)) (T, bool) {
	return FirstOf(aliases, func(key string) (T, bool) {
		v, ok := m[key]
		if !ok {
			var zero T
			return zero, false
		}
		return convert(v)
	})
}

func asText(v any) (string, bool) {
	s, ok := v.(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func asID(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return asText(t)
	case float64:
		if _, ok := finite(t); !ok {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return finite(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return storableInt(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return storableInt(f)
	default:
		return 0, false
	}
}
