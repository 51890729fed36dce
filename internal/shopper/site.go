package shopper

import "strings"

// Site captures the URL shapes of the storefront being browsed.
type Site struct {
	// BaseURL is the scheme+host prefix, e.g. "https://www.amazon.com".
	BaseURL string
}

// SearchURL constructs the listing-request URL for a goal query.
func (s Site) SearchURL(goal string) string {
	return strings.TrimSuffix(s.BaseURL, "/") + "/s?k=" + strings.ReplaceAll(goal, " ", "+")
}

// Classify maps a URL to a page type. A URL matching the search-results
// shape classifies as SearchResults; every other URL is ProductDetails.
// Pure and total, no network access.
func (s Site) Classify(rawURL string) PageType {
	if strings.HasPrefix(rawURL, strings.TrimSuffix(s.BaseURL, "/")+"/s?k") {
		return PageSearchResults
	}
	return PageProductDetails
}

// AbsoluteURL resolves a document href against the site base.
func (s Site) AbsoluteURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base := strings.TrimSuffix(s.BaseURL, "/")
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}
