package fbplus

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	postSelector      = "[data-postid]"
	postIDAttr        = "data-postid"
	postBodySelector  = ".post_message"
	usernameSelector  = ".post-user-username"
	headingSelector   = ".post-heading"
	permalinkSelector = "[target='new']"
)

// Author is the poster of a Post.
type Author struct {
	Username string `json:"username"`

	// ProfileLink is the absolute URL of the author's profile.
	ProfileLink string `json:"link"`
}

// Post is a single forum message.
type Post struct {
	// ID is the forum's post id, unique within a thread.
	ID string `json:"id"`

	// Body is the post markup with links rewritten.
	Body string `json:"body"`

	Timestamp time.Time `json:"timestamp"`
	Author    Author    `json:"user"`

	// Permalink is the absolute URL of this post.
	Permalink string `json:"link"`
}

// PageParser extracts posts from parsed listing pages.
type PageParser struct {
	// Origin is the forum's scheme and host, used to absolutize links.
	Origin string

	// Location is the time zone post timestamps are displayed in.
	Location *time.Location
}

// postFragments holds the pieces of one post container. It is only built
// once all of them are known to be present.
type postFragments struct {
	id          string
	body        *goquery.Selection
	username    string
	profilePath string
	heading     string
	permalink   string
}

func findPostFragments(container *goquery.Selection) (postFragments, error) {
	user := container.Find(usernameSelector).First()
	f := postFragments{
		id:          attr(container, postIDAttr),
		body:        container.Find(postBodySelector).First(),
		username:    strings.TrimSpace(user.Text()),
		profilePath: attr(user, "href"),
		heading:     strings.TrimSpace(textWithBreaks(container.Find(headingSelector))),
		permalink:   attr(container.Find(permalinkSelector), "href"),
	}

	var missing []string
	if f.id == "" {
		missing = append(missing, "id")
	}
	if f.body.Length() == 0 {
		missing = append(missing, "body")
	}
	if f.username == "" {
		missing = append(missing, "username")
	}
	if f.profilePath == "" {
		missing = append(missing, "profile link")
	}
	if f.heading == "" {
		missing = append(missing, "heading")
	}
	if f.permalink == "" {
		missing = append(missing, "permalink")
	}
	if len(missing) > 0 {
		return postFragments{}, &MalformedPostError{PostID: f.id, Missing: missing}
	}
	return f, nil
}

// ExtractPosts returns the posts of a listing page in document order. now
// anchors relative dates. Any malformed post fails the whole page. The input
// is not modified.
func (p PageParser) ExtractPosts(page *goquery.Selection, now time.Time) ([]Post, error) {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	containers := page.Find(postSelector)
	posts := make([]Post, 0, containers.Length())
	var err error
	containers.EachWithBreak(func(_ int, container *goquery.Selection) bool {
		var post Post
		post, err = p.extractPost(container, now, loc)
		if err != nil {
			return false
		}
		posts = append(posts, post)
		return true
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (p PageParser) extractPost(container *goquery.Selection, now time.Time, loc *time.Location) (Post, error) {
	f, err := findPostFragments(container)
	if err != nil {
		return Post{}, err
	}

	ts, err := ParseTimestamp(f.heading, now, loc)
	if err != nil {
		return Post{}, fmt.Errorf("%w: %v", &MalformedPostError{PostID: f.id, Missing: []string{"timestamp"}}, err)
	}

	body := f.body.Clone()
	RewriteLinks(body, p.Origin)
	markup, err := goquery.OuterHtml(body)
	if err != nil {
		return Post{}, fmt.Errorf("unable to render body of post %s: %w", f.id, err)
	}

	return Post{
		ID:        f.id,
		Body:      markup,
		Timestamp: ts,
		Author: Author{
			Username:    f.username,
			ProfileLink: absoluteURL(f.profilePath, p.Origin),
		},
		Permalink: absoluteURL(f.permalink, p.Origin),
	}, nil
}
