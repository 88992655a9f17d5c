package gfin

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"quotebot/internal/quote"
)

// Extracted is the structured quote data pulled out of a rendered page.
type Extracted struct {
	Symbol        string
	Exchange      string
	Name          string
	Currency      string
	Price         float64
	PreviousClose float64
	At            time.Time
}

var errNoData = errors.New("no quote data in page")

// Marker text shown on the provider's "no results" page.
const notFoundMarker = "couldn't find any match"

// Extract pulls a quote out of a rendered quote page. Strategies run in
// order: inline data attributes on the quote header, then the embedded JSON
// blob in the page scripts. The first strategy yielding a price wins; the
// canonical link supplies the symbol when the winning strategy doesn't.
func Extract(doc *goquery.Document) (Extracted, error) {
	if IsNotFoundPage(doc) {
		return Extracted{}, quote.ErrSymbolNotFound
	}

	ex, ok := fromDataAttrs(doc)
	if !ok {
		ex, ok = fromEmbeddedJSON(doc)
	}
	if !ok {
		return Extracted{}, errNoData
	}

	if ex.Symbol == "" {
		if sym, exch, found := CanonicalSymbol(doc); found {
			ex.Symbol = sym
			ex.Exchange = exch
		}
	}
	if ex.Name == "" {
		ex.Name = pageTitleName(doc)
	}
	return ex, nil
}

// IsNotFoundPage detects the provider's "no results" page. Quote pages always
// carry a priced header element, so the marker is only trusted in its absence.
func IsNotFoundPage(doc *goquery.Document) bool {
	if doc.Find("[data-last-price]").Length() > 0 {
		return false
	}
	body := strings.ToLower(doc.Find("main").Text())
	if body == "" {
		body = strings.ToLower(doc.Find("body").Text())
	}
	return strings.Contains(body, notFoundMarker)
}

// fromDataAttrs reads the inline data attributes the provider renders on the
// quote header element.
func fromDataAttrs(doc *goquery.Document) (Extracted, bool) {
	sel := doc.Find("[data-last-price]").First()
	if sel.Length() == 0 {
		return Extracted{}, false
	}
	price, err := attrFloat(sel, "data-last-price")
	if err != nil {
		return Extracted{}, false
	}
	ex := Extracted{Price: price}
	if prev, err := attrFloat(sel, "data-previous-close-price"); err == nil {
		ex.PreviousClose = prev
	}
	if cur, ok := sel.Attr("data-currency-code"); ok {
		ex.Currency = cur
	}
	if ts, err := attrFloat(sel, "data-last-normal-market-timestamp"); err == nil && ts > 0 {
		ex.At = time.Unix(int64(ts), 0).UTC()
	}
	return ex, true
}

var embeddedDataRe = regexp.MustCompile(`data:(\[.*?\]), sideChannel`)

// fromEmbeddedJSON scans script tags for the framework's embedded data blobs
// and walks the nested arrays for a quote node: an array whose head is the
// [symbol, exchange] pair followed by numeric price data.
func fromEmbeddedJSON(doc *goquery.Document) (Extracted, bool) {
	var ex Extracted
	var found bool
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "AF_initDataCallback") {
			return true
		}
		for _, m := range embeddedDataRe.FindAllStringSubmatch(text, -1) {
			var data any
			if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
				continue
			}
			if node, ok := findQuoteNode(data, 0); ok {
				ex = node
				found = true
				return false
			}
		}
		return true
	})
	return ex, found
}

// findQuoteNode walks nested arrays looking for
// [[symbol, exchange], ..., price, previousClose, ...] shapes.
func findQuoteNode(v any, depth int) (Extracted, bool) {
	if depth > 12 {
		return Extracted{}, false
	}
	arr, ok := v.([]any)
	if !ok {
		return Extracted{}, false
	}
	if ex, ok := asQuoteNode(arr); ok {
		return ex, true
	}
	for _, item := range arr {
		if ex, ok := findQuoteNode(item, depth+1); ok {
			return ex, true
		}
	}
	return Extracted{}, false
}

func asQuoteNode(arr []any) (Extracted, bool) {
	if len(arr) < 3 {
		return Extracted{}, false
	}
	head, ok := arr[0].([]any)
	if !ok || len(head) < 2 {
		return Extracted{}, false
	}
	sym, okSym := head[0].(string)
	exch, okExch := head[1].(string)
	if !okSym || !okExch || sym == "" {
		return Extracted{}, false
	}
	// Collect the numeric tail: price first, previous close second.
	var nums []float64
	var currency string
	for _, item := range arr[1:] {
		switch t := item.(type) {
		case float64:
			nums = append(nums, t)
		case string:
			if currency == "" && len(t) == 3 && strings.ToUpper(t) == t {
				currency = t
			}
		}
	}
	if len(nums) == 0 || nums[0] <= 0 {
		return Extracted{}, false
	}
	ex := Extracted{Symbol: sym, Exchange: exch, Price: nums[0], Currency: currency}
	if len(nums) > 1 {
		ex.PreviousClose = nums[1]
	}
	return ex, true
}

// CanonicalSymbol resolves the page's symbol from its canonical link, e.g.
// <link rel="canonical" href=".../quote/AAPL:NASDAQ"> -> ("AAPL", "NASDAQ").
func CanonicalSymbol(doc *goquery.Document) (symbol, exchange string, ok bool) {
	href, found := doc.Find(`link[rel="canonical"]`).Attr("href")
	if !found {
		return "", "", false
	}
	idx := strings.LastIndex(href, "/quote/")
	if idx < 0 {
		return "", "", false
	}
	slug := strings.Trim(href[idx+len("/quote/"):], "/")
	if q := strings.IndexAny(slug, "?#"); q >= 0 {
		slug = slug[:q]
	}
	if slug == "" {
		return "", "", false
	}
	if sep := strings.Index(slug, ":"); sep >= 0 {
		return slug[:sep], slug[sep+1:], true
	}
	return slug, "", true
}

func pageTitleName(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").Text())
	// Titles look like "Apple Inc (AAPL) Stock Price & News - ...".
	if idx := strings.Index(title, " ("); idx > 0 {
		return title[:idx]
	}
	return ""
}

func attrFloat(sel *goquery.Selection, name string) (float64, error) {
	raw, ok := sel.Attr(name)
	if !ok {
		return 0, errors.New("missing attribute " + name)
	}
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
