package fbplus

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	leavePath = "/leave.php?u="

	// originalPostTitle is shown when hovering the arrow that links a quote
	// back to the quoted post.
	originalPostTitle = "Visa originalinlägg"

	backArrowSelector = "i.glyphicon-arrow-left"
)

// RewriteLinks rewrites every href below body in place: redirect wrappers are
// unwrapped, site-relative links are made absolute against origin, links
// leaving the site open in a new window and no link sends a referrer. Links
// are never removed.
func RewriteLinks(body *goquery.Selection, origin string) {
	originHost := ""
	if u, err := url.Parse(origin); err == nil {
		originHost = u.Hostname()
	}

	body.Find("[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		href = absoluteURL(unwrapRedirect(href, origin), origin)
		link.SetAttr("href", href)

		if link.Find(backArrowSelector).Length() > 0 {
			link.SetAttr("title", originalPostTitle)
		}
		if isExternal(href, originHost) {
			link.SetAttr("target", "_blank")
		}
		link.SetAttr("rel", "noreferrer")
	})
}

// unwrapRedirect returns the target of a /leave.php?u= redirect, or href
// itself when it is not one or the target cannot be decoded.
func unwrapRedirect(href, origin string) string {
	target, ok := strings.CutPrefix(href, leavePath)
	if !ok {
		target, ok = strings.CutPrefix(href, strings.TrimSuffix(origin, "/")+leavePath)
	}
	if !ok {
		return href
	}
	decoded, err := url.PathUnescape(target)
	if err != nil {
		return href
	}
	return decoded
}

// absoluteURL prefixes site-relative references with origin.
func absoluteURL(ref, origin string) string {
	switch {
	case strings.HasPrefix(ref, "//"):
		scheme, _, ok := strings.Cut(origin, "://")
		if !ok {
			scheme = "https"
		}
		return scheme + ":" + ref
	case strings.HasPrefix(ref, "/"):
		return strings.TrimSuffix(origin, "/") + ref
	}
	return ref
}

func isExternal(href, originHost string) bool {
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return false
	}
	return !strings.EqualFold(u.Hostname(), originHost)
}
