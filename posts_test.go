package fbplus

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

var testParser = PageParser{Origin: testOrigin, Location: time.UTC}

func TestExtractPosts(t *testing.T) {
	doc, err := parseDocument(threadPageHTML("Tråden", 3,
		postHTML("501", "Åsa", "Igår, 21:14", `Se <a href="/leave.php?u=https%3A%2F%2Fexample.com">här</a>`),
		postHTML("502", "Björn", "2024-01-02, 08:05", `Svar`),
	))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}

	posts, err := testParser.ExtractPosts(doc.Selection, testNow)
	if err != nil {
		t.Fatalf("ExtractPosts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("posts=%d, want 2", len(posts))
	}

	first := posts[0]
	if first.ID != "501" || posts[1].ID != "502" {
		t.Fatalf("ids=%q,%q, want 501,502", first.ID, posts[1].ID)
	}
	if first.Author.Username != "Åsa" {
		t.Errorf("username=%q, want Åsa", first.Author.Username)
	}
	if first.Author.ProfileLink != testOrigin+"/uÅsa" {
		t.Errorf("profile link=%q", first.Author.ProfileLink)
	}
	if first.Permalink != testOrigin+"/p501" {
		t.Errorf("permalink=%q", first.Permalink)
	}
	if want := time.Date(2024, time.March, 14, 21, 14, 0, 0, time.UTC); !first.Timestamp.Equal(want) {
		t.Errorf("timestamp=%v, want %v", first.Timestamp, want)
	}
	if want := time.Date(2024, time.January, 2, 8, 5, 0, 0, time.UTC); !posts[1].Timestamp.Equal(want) {
		t.Errorf("timestamp=%v, want %v", posts[1].Timestamp, want)
	}
	if !strings.HasPrefix(first.Body, `<div class="post_message"`) {
		t.Errorf("body=%q, want the post_message element", first.Body)
	}
	if !strings.Contains(first.Body, `href="https://example.com"`) || strings.Contains(first.Body, "leave.php") {
		t.Errorf("body links not rewritten: %s", first.Body)
	}
	if !strings.Contains(first.Body, `rel="noreferrer"`) {
		t.Errorf("body=%q, want rel=noreferrer", first.Body)
	}
}

func TestExtractPosts_DoesNotModifyDocument(t *testing.T) {
	doc, err := parseDocument(threadPageHTML("T", 1,
		postHTML("1", "a", "Idag, 10:00", `<a href="/leave.php?u=https%3A%2F%2Fexample.com">x</a>`),
	))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}

	first, err := testParser.ExtractPosts(doc.Selection, testNow)
	if err != nil {
		t.Fatalf("ExtractPosts: %v", err)
	}
	if href, _ := doc.Find(".post_message a").Attr("href"); href != "/leave.php?u=https%3A%2F%2Fexample.com" {
		t.Fatalf("document href=%q, want it untouched", href)
	}
	second, err := testParser.ExtractPosts(doc.Selection, testNow)
	if err != nil {
		t.Fatalf("ExtractPosts(again): %v", err)
	}
	if first[0].Body != second[0].Body {
		t.Fatalf("bodies differ between extractions:\n%s\n%s", first[0].Body, second[0].Body)
	}
}

func TestExtractPosts_Empty(t *testing.T) {
	doc, err := parseDocument(threadPageHTML("T", 1))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}
	posts, err := testParser.ExtractPosts(doc.Selection, testNow)
	if err != nil {
		t.Fatalf("ExtractPosts: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("posts=%#v, want empty non-nil", posts)
	}
}

func TestExtractPosts_Malformed(t *testing.T) {
	valid := postHTML("1", "a", "Idag, 10:00", "ok")
	for _, tc := range []struct {
		name    string
		post    string
		missing string
	}{
		{
			name:    "no username",
			post:    strings.Replace(valid, `<a class="post-user-username" href="/ua">a</a>`, "", 1),
			missing: "username",
		},
		{
			name:    "empty username",
			post:    strings.Replace(valid, `href="/ua">a</a>`, `href="/ua">  </a>`, 1),
			missing: "username",
		},
		{
			name:    "no profile link",
			post:    strings.Replace(valid, ` href="/ua"`, "", 1),
			missing: "profile link",
		},
		{
			name:    "no body",
			post:    strings.Replace(valid, `class="post_message"`, `class="signature"`, 1),
			missing: "body",
		},
		{
			name:    "no heading",
			post:    strings.Replace(valid, `class="post-heading"`, `class="post-top"`, 1),
			missing: "heading",
		},
		{
			name:    "no permalink",
			post:    strings.Replace(valid, ` target="new"`, "", 1),
			missing: "permalink",
		},
		{
			name:    "bad timestamp",
			post:    strings.Replace(valid, "Idag, 10:00", "Idag, lunch", 1),
			missing: "timestamp",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := parseDocument(threadPageHTML("T", 1, valid, tc.post))
			if err != nil {
				t.Fatalf("parseDocument: %v", err)
			}
			posts, err := testParser.ExtractPosts(doc.Selection, testNow)
			var malformed *MalformedPostError
			if !errors.As(err, &malformed) {
				t.Fatalf("err=%v, want MalformedPostError", err)
			}
			if posts != nil {
				t.Errorf("posts=%d, want none on failure", len(posts))
			}
			if !slices.Contains(malformed.Missing, tc.missing) {
				t.Errorf("missing=%v, want %q", malformed.Missing, tc.missing)
			}
		})
	}
}

func TestExtractPosts_HeadingLineBreak(t *testing.T) {
	post := strings.Replace(postHTML("7", "a", "x", "ok"), "    x\n", "Idag, 09:30<br>Ändrad av a", 1)
	doc, err := parseDocument(threadPageHTML("T", 1, post))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}
	posts, err := testParser.ExtractPosts(doc.Selection, testNow)
	if err != nil {
		t.Fatalf("ExtractPosts: %v", err)
	}
	if want := time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC); !posts[0].Timestamp.Equal(want) {
		t.Fatalf("timestamp=%v, want %v", posts[0].Timestamp, want)
	}
}
