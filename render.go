package fbplus

import (
	"html/template"
	"io"
	"time"
)

const displayTimeLayout = "2006-01-02, 15:04"

var threadTemplate = template.Must(template.New("thread").Funcs(template.FuncMap{
	"threadLink": ThreadLink,
	"inc":        func(i int) int { return i + 1 },
}).Parse(`
{{- with .Thread}}{{if and .Pages (eq (index .Pages 0).Index 0)}}
<h1><a href="{{threadLink $.Origin .ID -1}}" target="_blank" rel="noreferrer">{{.Title}}</a></h1>
{{- end}}{{range .Pages}}
<h2 class="page-number"><a href="{{threadLink $.Origin $.Thread.ID .Index}}" target="_blank" rel="noreferrer">{{inc .Index}} / {{$.Thread.PagesAvailable}}</a></h2>
{{- range .Posts}}
<article>
<header>
  <a href="{{.Author.ProfileLink}}" target="_blank" rel="noreferrer">{{.Author.Username}}</a>
  <time datetime="{{.Timestamp.Format "2006-01-02T15:04:05Z07:00"}}"><a href="{{.Permalink}}" target="_blank" rel="noreferrer">{{call $.Format .Timestamp}}</a></time>
</header>
{{.Body}}
</article>
{{- end}}{{end}}{{end}}
`))

type renderedPost struct {
	Post
	Body template.HTML
}

type renderedPage struct {
	Index int
	Posts []renderedPost
}

type renderedThread struct {
	ID             string
	Title          string
	PagesAvailable int
	Pages          []renderedPage
}

// RenderThread writes thread as an HTML fragment meant to be appended to the
// pages a reader has already seen. Times are shown in loc.
func RenderThread(w io.Writer, thread Thread, origin string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	rt := renderedThread{
		ID:             thread.ID,
		Title:          thread.Title,
		PagesAvailable: thread.PagesAvailable,
	}
	for _, page := range thread.Pages {
		rp := renderedPage{Index: page.Index}
		for _, post := range page.Posts {
			// Bodies are forum markup with rewritten links and are
			// inserted as-is.
			rp.Posts = append(rp.Posts, renderedPost{Post: post, Body: template.HTML(post.Body)})
		}
		rt.Pages = append(rt.Pages, rp)
	}

	return threadTemplate.Execute(w, struct {
		Thread renderedThread
		Origin string
		Format func(time.Time) string
	}{
		Thread: rt,
		Origin: origin,
		Format: func(t time.Time) string { return t.In(loc).Format(displayTimeLayout) },
	})
}
