package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
)

// ContainerSelectors are tried most to least specific. The first selector with
// any match decides the container set.
var ContainerSelectors = []string{
	".shop-list .shop-item",
	".shoplist .shopitem",
	".shop-wrap",
	".list-item",
	"[data-shopid]",
	".shop-info",
	".poi-item",
	".shop-card",
}

// Field selector cascades, first non-empty text wins.
var (
	NameSelectors        = []string{".shop-name", ".shopname", "h3", ".title", "a[title]", ".poi-name"}
	RatingSelectors      = []string{".shop-star", ".star", ".rating", `[class*="star"]`, ".score"}
	AddressSelectors     = []string{".shop-addr", ".address", ".addr", ".location"}
	PriceSelectors       = []string{".shop-price", ".price", ".avgprice", ".per-price"}
	CategorySelectors    = []string{".tag", ".category", ".shop-tag"}
	ReviewCountSelectors = []string{".review-num", ".comment-count", ".reviews"}
)

var idAttributes = []string{"data-shopid", "data-id"}

// Structural runs the container cascade over an HTML document.
func Structural(body []byte) []crawler.RecordCandidate {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	containers, ok := FirstOf(ContainerSelectors, func(sel string) (*goquery.Selection, bool) {
		found := doc.Find(sel)
		return found, found.Length() > 0
	})
	if !ok {
		return nil
	}

	var out []crawler.RecordCandidate
	containers.Each(func(_ int, item *goquery.Selection) {
		if c, ok := candidateFromContainer(item); ok {
			out = append(out, c)
		}
	})
	return out
}

func candidateFromContainer(item *goquery.Selection) (crawler.RecordCandidate, bool) {
	name, ok := fieldText(item, NameSelectors)
	if !ok {
		return crawler.RecordCandidate{}, false
	}
	c := crawler.RecordCandidate{Name: name}

	if text, ok := fieldText(item, RatingSelectors); ok {
		c.Rating = optional(parseRating(text))
	}
	if text, ok := fieldText(item, AddressSelectors); ok {
		c.Address = ptr(text)
	}
	if text, ok := fieldText(item, PriceSelectors); ok {
		c.PricePerPerson = optional(parseInt(text))
	}
	if text, ok := fieldText(item, CategorySelectors); ok {
		c.Category = ptr(text)
	}
	if text, ok := fieldText(item, ReviewCountSelectors); ok {
		c.ReviewCount = optional(parseInt(text))
	}
	if id, ok := FirstOf(idAttributes, func(attr string) (string, bool) {
		v, exists := item.Attr(attr)
		v = strings.TrimSpace(v)
		return v, exists && v != ""
	}); ok {
		c.ShopID = ptr(id)
	}
	return c, true
}

// fieldText returns the first non-empty text among selectors. For anchors the
// title attribute stands in for empty text.
func fieldText(item *goquery.Selection, selectors []string) (string, bool) {
	return FirstOf(selectors, func(sel string) (string, bool) {
		node := item.Find(sel).First()
		if node.Length() == 0 {
			return "", false
		}
		text := cleanText(node.Text())
		if text == "" && goquery.NodeName(node) == "a" {
			title, _ := node.Attr("title")
			text = cleanText(title)
		}
		return text, text != ""
	})
}
