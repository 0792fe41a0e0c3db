package fbplus

import (
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// testNow is "today" for every test that resolves relative dates.
var testNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	lock sync.Mutex
	now  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testNow}
}

func (c *fakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

func postHTML(id, username, heading, body string) string {
	return fmt.Sprintf(`<div class="post" id="post%[1]s" data-postid="%[1]s">
  <div class="post-heading">
    %[3]s
    <a href="/p%[1]s" target="new">#%[1]s</a>
  </div>
  <div class="post-user">
    <a class="post-user-username" href="/u%[2]s">%[2]s</a>
  </div>
  <div class="post_message" id="post_message_%[1]s">%[4]s</div>
</div>`, id, username, heading, body)
}

// threadPageHTML builds a listing page. A totalPages of zero leaves out the
// page count indicator and an empty title leaves out og:title.
func threadPageHTML(title string, totalPages int, posts ...string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head>\n")
	if title != "" {
		fmt.Fprintf(&b, "<meta property=\"og:title\" content=\"%s\">\n", title)
	}
	b.WriteString("</head><body>\n")
	if totalPages > 0 {
		fmt.Fprintf(&b, "<div class=\"pagination\" data-total-pages=\"%d\" data-current-page=\"1\"></div>\n", totalPages)
	}
	b.WriteString("<div id=\"posts\">\n")
	for _, p := range posts {
		b.WriteString(p)
		b.WriteString("\n")
	}
	b.WriteString("</div></body></html>\n")
	return b.String()
}

// fakeForum serves pages encoded as ISO-8859-1 and counts requests per path.
type fakeForum struct {
	*httptest.Server

	lock  sync.Mutex
	pages map[string]string
	hits  map[string]int
}

func newFakeForum(t *testing.T) *fakeForum {
	t.Helper()
	f := &fakeForum{
		pages: make(map[string]string),
		hits:  make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeForum) serve(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	f.hits[r.URL.Path]++
	page, ok := f.pages[r.URL.Path]
	f.lock.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	encoded, err := charmap.ISO8859_1.NewEncoder().String(page)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
	w.Write([]byte(encoded))
}

func (f *fakeForum) setPage(path, page string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.pages[path] = page
}

func (f *fakeForum) removePage(path string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.pages, path)
}

func (f *fakeForum) hitsFor(path string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.hits[path]
}

func (f *fakeForum) hitsByPath() map[string]int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return maps.Clone(f.hits)
}

func (f *fakeForum) totalHits() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	total := 0
	for _, n := range f.hits {
		total += n
	}
	return total
}

// addThread serves a thread /t<id> with pages p1..p<pages>, each with two
// posts.
func (f *fakeForum) addThread(id, title string, pages int) {
	for i := 0; i < pages; i++ {
		f.setPage(fmt.Sprintf("/t%sp%d", id, i+1), threadPageHTML(title, pages,
			postHTML(fmt.Sprintf("%d01", i), "Åsa", "Igår, 21:14", `Hej <a href="/leave.php?u=https%3A%2F%2Fexample.com">där</a>`),
			postHTML(fmt.Sprintf("%d02", i), "Björn", "Idag, 08:05", `Smörgås <a href="/t`+id+`p1">tråden</a>`),
		))
	}
}

func (f *fakeForum) client(clock *fakeClock) (*Client, *ThreadCache) {
	cache := NewThreadCache(DefaultCacheTTL, clock.Now)
	return NewClient(f.Client(), cache, ClientOptions{
		Origin:   f.URL,
		Encoding: charmap.ISO8859_1,
		Location: time.UTC,
		Now:      clock.Now,
	}), cache
}
