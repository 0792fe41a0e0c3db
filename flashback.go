package fbplus

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultOrigin is the forum fbplus reads from unless configured otherwise.
	DefaultOrigin = "https://www.flashback.org"

	totalPagesSelector = "[data-total-pages]"
	totalPagesAttr     = "data-total-pages"
	titleSelector      = "meta[property='og:title']"
	canonicalSelector  = "link[rel='canonical']"
)

var (
	pageSuffix      = regexp.MustCompile(`p\d+$`)
	threadIDPattern = regexp.MustCompile(`/t(\w+?)(?:p\d+)?/?$`)
)

// ClientOptions configures a Client. Zero fields take defaults.
type ClientOptions struct {
	// Origin is the forum's scheme and host. Defaults to DefaultOrigin.
	Origin string

	// Encoding is the forum's legacy page encoding. Defaults to ISO-8859-1.
	Encoding encoding.Encoding

	// Location is the time zone the forum displays times in. Defaults to UTC.
	Location *time.Location

	// Now anchors relative dates such as "Idag". Defaults to time.Now.
	Now func() time.Time
}

// Client fetches forum threads and parses them into posts. It is safe for
// concurrent use as long as its Doer is.
type Client struct {
	http     Doer
	cache    *ThreadCache
	encoding encoding.Encoding
	parser   PageParser
	now      func() time.Time
}

// NewClient returns a client fetching through doer and memoizing into cache.
func NewClient(doer Doer, cache *ThreadCache, opts ClientOptions) *Client {
	if opts.Origin == "" {
		opts.Origin = DefaultOrigin
	}
	if opts.Encoding == nil {
		opts.Encoding = charmap.ISO8859_1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if cache == nil {
		cache = NewThreadCache(DefaultCacheTTL, opts.Now)
	}
	return &Client{
		http:     doer,
		cache:    cache,
		encoding: opts.Encoding,
		parser: PageParser{
			Origin:   strings.TrimSuffix(opts.Origin, "/"),
			Location: opts.Location,
		},
		now: opts.Now,
	}
}

// Origin returns the forum origin links are resolved against.
func (c *Client) Origin() string {
	return c.parser.Origin
}

// Location returns the time zone post timestamps are parsed in.
func (c *Client) Location() *time.Location {
	return c.parser.Location
}

// BaseThreadURL strips any trailing page suffix ("p3") from a thread URL.
func BaseThreadURL(rawURL string) string {
	return pageSuffix.ReplaceAllString(strings.TrimSuffix(strings.TrimSpace(rawURL), "/"), "")
}

// PageURL returns the URL of the zero-based page of the thread at base.
func PageURL(base string, page int) string {
	return base + "p" + strconv.Itoa(page+1)
}

// threadMetadata is everything about a thread that is read off its first
// requested page.
type threadMetadata struct {
	id             string
	title          string
	pagesAvailable int
}

func parseThreadMetadata(base string, doc *goquery.Document) (threadMetadata, error) {
	var meta threadMetadata

	if m := threadIDPattern.FindStringSubmatch(base); m != nil {
		meta.id = m[1]
	} else if m := threadIDPattern.FindStringSubmatch(BaseThreadURL(attr(doc.Find(canonicalSelector), "href"))); m != nil {
		meta.id = m[1]
	} else {
		return meta, ErrThreadIDNotFound
	}

	// A missing or broken page count means the thread fits on one page.
	meta.pagesAvailable = 1
	if pages, err := strconv.Atoi(attr(doc.Find(totalPagesSelector), totalPagesAttr)); err == nil && pages > 0 {
		meta.pagesAvailable = pages
	}

	meta.title = attr(doc.Find(titleSelector), "content")
	if meta.title == "" {
		return meta, ErrTitleNotFound
	}
	return meta, nil
}

// FetchThread fetches up to maxPages pages of the thread at rawURL, starting
// at the zero-based firstPage. A maxPages of zero fetches every remaining
// page. Pages past the end of the thread are never requested.
//
// Results are cached per (thread, firstPage, maxPages) and the returned Thread
// shares its pages with the cache, so callers must not modify it. Any failure
// aborts the whole request and nothing is cached for it.
func (c *Client) FetchThread(ctx context.Context, rawURL string, firstPage, maxPages int) (Thread, error) {
	if firstPage < 0 || maxPages < 0 {
		return Thread{}, fmt.Errorf("%w: first page %d, max pages %d", ErrInvalidRange, firstPage, maxPages)
	}

	base := BaseThreadURL(rawURL)
	key := cacheKey("fetchThread", base, strconv.Itoa(firstPage), strconv.Itoa(maxPages))
	if thread, ok := c.cache.threads.Get(key); ok {
		return thread, nil
	}

	firstURL := PageURL(base, firstPage)
	doc, err := c.fetchDocument(ctx, firstURL)
	if err != nil {
		return Thread{}, err
	}

	meta, err := parseThreadMetadata(base, doc)
	if err != nil {
		return Thread{}, fmt.Errorf("%s: %w", firstURL, err)
	}

	count := meta.pagesAvailable - firstPage
	if maxPages > 0 && maxPages < count {
		count = maxPages
	}

	thread := Thread{
		ID:             meta.id,
		Title:          meta.title,
		PagesAvailable: meta.pagesAvailable,
		Pages:          make([]Page, 0, max(count, 0)),
	}
	for page := firstPage; page < firstPage+count; page++ {
		var pageDoc *goquery.Document
		if page == firstPage {
			pageDoc = doc
		}
		posts, err := c.pagePosts(ctx, PageURL(base, page), pageDoc)
		if err != nil {
			return Thread{}, fmt.Errorf("page %d of thread %s: %w", page+1, meta.id, err)
		}
		thread.Pages = append(thread.Pages, Page{
			Index: page,
			Posts: posts,
		})
	}

	c.cache.threads.Put(key, thread)
	return thread, nil
}

// FetchPosts returns the posts on a single listing page.
func (c *Client) FetchPosts(ctx context.Context, pageURL string) ([]Post, error) {
	return c.pagePosts(ctx, pageURL, nil)
}

// pagePosts returns the cached posts for url, parsing doc when given instead
// of fetching the page again.
func (c *Client) pagePosts(ctx context.Context, url string, doc *goquery.Document) ([]Post, error) {
	key := cacheKey("fetchPosts", url)
	if posts, ok := c.cache.pages.Get(key); ok {
		return posts, nil
	}

	if doc == nil {
		var err error
		doc, err = c.fetchDocument(ctx, url)
		if err != nil {
			return nil, err
		}
	}

	posts, err := c.parser.ExtractPosts(doc.Selection, c.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}

	c.cache.pages.Put(key, posts)
	return posts, nil
}

func (c *Client) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	text, err := fetchText(ctx, c.http, c.encoding, url)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return doc, nil
}
