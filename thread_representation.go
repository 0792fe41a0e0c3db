package fbplus

import (
	"strconv"
	"strings"
)

// Page is one listing of posts within a thread.
type Page struct {
	// Index is the zero-based page number.
	Index int `json:"index"`

	// Posts are in the order the forum shows them.
	Posts []Post `json:"posts"`
}

// Thread is a slice of a forum thread as requested by a client. Pages are in
// ascending index order but need not start at zero.
type Thread struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// PagesAvailable is the page count the forum reported when the first
	// requested page was fetched.
	PagesAvailable int `json:"pagesAvailable"`

	Pages []Page `json:"pages"`
}

// ThreadLink returns the forum URL of a thread, or of one of its pages when
// page is not negative.
func ThreadLink(origin, id string, page int) string {
	link := strings.TrimSuffix(origin, "/") + "/t" + id
	if page >= 0 {
		link += "p" + strconv.Itoa(page+1)
	}
	return link
}
