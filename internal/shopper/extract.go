package shopper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default frontier bounds applied by the extractors.
const (
	DefaultSearchResultLimit = 5
	DefaultRecommendedLimit  = 5
)

// Session carries the per-task context an extractor needs beyond the markup:
// the URL the content was fetched from and the search URL recorded at task
// start (the target of BackToSearchResults).
type Session struct {
	PageURL   string
	SearchURL string
}

// Extractor turns raw page markup into an ordered frontier of candidate
// actions. Extraction order follows document order; the limits truncate
// after the validity filter, they never reorder.
type Extractor struct {
	site             Site
	searchLimit      int
	recommendedLimit int
	ids              IDGenerator
}

// NewExtractor constructs an Extractor. Non-positive limits fall back to the
// defaults.
func NewExtractor(site Site, searchLimit, recommendedLimit int, ids IDGenerator) *Extractor {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchResultLimit
	}
	if recommendedLimit <= 0 {
		recommendedLimit = DefaultRecommendedLimit
	}
	return &Extractor{
		site:             site,
		searchLimit:      searchLimit,
		recommendedLimit: recommendedLimit,
		ids:              ids,
	}
}

// Extract parses content fetched from sess.PageURL into candidate actions
// for the given page type. Missing fields degrade to omitted context
// fragments; only unparseable markup or id generation failures error.
func (e *Extractor) Extract(pageType PageType, content []byte, sess Session) ([]Action, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse page markup: %w", err)
	}
	switch pageType {
	case PageSearchResults:
		return e.extractSearchResults(doc)
	case PageProductDetails:
		return e.extractProductDetails(doc, sess)
	default:
		return nil, fmt.Errorf("unknown page type %q", pageType)
	}
}

// extractSearchResults emits up to searchLimit ClickSearchResult actions,
// one per listing item that has both a resolvable title and a resolvable
// destination URL. Items missing either are dropped without counting
// against the limit.
func (e *Extractor) extractSearchResults(doc *goquery.Document) ([]Action, error) {
	var actions []Action
	var iterErr error
	doc.Find(`[data-component-type="s-search-result"]`).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := textOf(item.Find("span.a-size-base-plus").First())
		href, _ := item.Find("a.a-link-normal").First().Attr("href")
		if title == "" || href == "" {
			return true
		}

		bestseller := textOf(item.Find("span.a-badge-label").First())
		if bestseller == "" {
			bestseller = "Not a Bestseller"
		}

		var ctx contextBuilder
		ctx.add("Product Title", title)
		ctx.add("Price", textOf(item.Find("span.a-offscreen").First()))
		ctx.add("Bestseller Status", bestseller)
		ctx.add("Star Rating", textOf(item.Find("i.a-icon-star-small span.a-icon-alt").First()))
		ctx.add("List Price", textOf(item.Find("span.a-price.a-text-price span.a-offscreen").First()))

		action, err := e.newAction(ActionClickSearchResult, ctx.String(), e.site.AbsoluteURL(href))
		if err != nil {
			iterErr = err
			return false
		}
		actions = append(actions, action)
		return len(actions) < e.searchLimit
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return actions, nil
}

// extractProductDetails emits, in order: up to recommendedLimit
// ClickRecommended actions from the carousel section, exactly one BuyNow
// action, and exactly one BackToSearchResults action targeting the search
// URL recorded at task start.
func (e *Extractor) extractProductDetails(doc *goquery.Document, sess Session) ([]Action, error) {
	actions, err := e.extractRecommendations(doc)
	if err != nil {
		return nil, err
	}

	buy, err := e.extractBuyNow(doc, sess.PageURL)
	if err != nil {
		return nil, err
	}
	actions = append(actions, buy)

	back, err := e.newAction(ActionBackToSearchResults, "Go back to search results", sess.SearchURL)
	if err != nil {
		return nil, err
	}
	return append(actions, back), nil
}

func (e *Extractor) extractRecommendations(doc *goquery.Document) ([]Action, error) {
	var actions []Action
	var iterErr error
	doc.Find("li.a-carousel-card").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		link := card.Find("a.a-link-normal").First()
		title, _ := link.Attr("title")
		href, _ := link.Attr("href")
		if strings.TrimSpace(title) == "" || href == "" {
			return true
		}

		var ctx contextBuilder
		ctx.add("Product Title", strings.TrimSpace(title))
		ctx.add("Product Price", textOf(card.Find("span.a-size-medium").First()))

		action, err := e.newAction(ActionClickRecommended, ctx.String(), e.site.AbsoluteURL(href))
		if err != nil {
			iterErr = err
			return false
		}
		actions = append(actions, action)
		return len(actions) < e.recommendedLimit
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return actions, nil
}

// extractBuyNow aggregates the product summary fields into the terminal
// action. The target stays the product page URL: there is no further
// navigation but the URL remains useful context in the trace.
func (e *Extractor) extractBuyNow(doc *goquery.Document, pageURL string) (Action, error) {
	var ctx contextBuilder
	ctx.add("Product Title", textOf(doc.Find("span#productTitle").First()))
	ctx.add("Product Description", bulletPoints(doc))
	doc.Find("span.a-price-range span.a-price span.a-offscreen").Each(func(_ int, price *goquery.Selection) {
		ctx.add("Price", textOf(price))
	})
	ctx.add("Average Review", averageReview(doc))
	ctx.add("Number Ratings", ratingCount(doc))

	return e.newAction(ActionBuyNow, ctx.String(), pageURL)
}

func bulletPoints(doc *goquery.Document) string {
	var bullets []string
	doc.Find("div#feature-bullets span.a-list-item").Each(func(_ int, item *goquery.Selection) {
		if text := textOf(item); text != "" {
			bullets = append(bullets, text)
		}
	})
	return strings.Join(bullets, "; ")
}

func averageReview(doc *goquery.Document) string {
	title, ok := doc.Find("span.reviewCountTextLinkedHistogram").First().Attr("title")
	if !ok {
		return ""
	}
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func ratingCount(doc *goquery.Document) string {
	text := textOf(doc.Find("span#acrCustomerReviewText").First())
	text = strings.TrimSuffix(text, " ratings")
	return strings.ReplaceAll(text, ",", "")
}

func (e *Extractor) newAction(actionType ActionType, context, targetURL string) (Action, error) {
	id, err := e.ids.NewID()
	if err != nil {
		return Action{}, fmt.Errorf("generate action id: %w", err)
	}
	return Action{
		ID:        id,
		Type:      actionType,
		Context:   context,
		TargetURL: targetURL,
	}, nil
}

func textOf(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
