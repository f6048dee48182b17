package server

import (
	"html/template"
	"net/http"
	"strings"

	kerrors "git.home.luguber.info/inful/blogkeeper/internal/errors"
	"git.home.luguber.info/inful/blogkeeper/internal/markdown"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
)

// previewHTMLTemplate is a bare reading shell for draft review. It is not
// the published theme; it exists so a draft can be proofread without
// running the site generator.
const previewHTMLTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · preview</title>
<style>
body { max-width: 46rem; margin: 2rem auto; padding: 0 1rem; font-family: Georgia, serif; line-height: 1.6; color: #222; }
header { border-bottom: 1px solid #ddd; margin-bottom: 1.5rem; padding-bottom: 0.5rem; }
header .meta { color: #777; font-size: 0.9rem; font-family: sans-serif; }
header .draft { color: #b00; font-weight: bold; }
pre { background: #f6f6f6; padding: 0.75rem; overflow-x: auto; font-size: 0.9rem; }
code { font-family: "SF Mono", Menlo, monospace; }
img { max-width: 100%; }
blockquote { border-left: 3px solid #ddd; margin-left: 0; padding-left: 1rem; color: #555; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.3rem 0.6rem; }
nav.toc { background: #f6f6f6; padding: 0.75rem 1rem; font-family: sans-serif; font-size: 0.9rem; }
nav.toc ul { margin: 0.25rem 0 0; padding-left: 1.25rem; }
nav.toc .lvl3 { margin-left: 1rem; }
nav.toc .lvl4 { margin-left: 2rem; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p class="meta">{{.Date}}{{if .Draft}} · <span class="draft">draft</span>{{end}}{{if .Tags}} · {{.Tags}}{{end}} · {{.ReadingTime}} min read</p>
</header>
{{if .Contents}}<nav class="toc">
<strong>Contents</strong>
<ul>
{{range .Contents}}<li class="lvl{{.Level}}"><a href="#{{.ID}}">{{.Text}}</a></li>
{{end}}</ul>
</nav>
{{end}}<article>
{{.Body}}
</article>
<script>{{.ReloadScript}}</script>
</body>
</html>`

// previewReloadScript reloads the page when the server announces a new
// scan, so an editor sees saves land without touching the browser.
const previewReloadScript = `(() => {
  if (window.__BLOGKEEPER_RELOAD__) return;
  window.__BLOGKEEPER_RELOAD__ = true;
  function connect() {
    const es = new EventSource('/events');
    let current = null;
    es.onmessage = (e) => {
      try {
        const ev = JSON.parse(e.data);
        if (ev.type !== 'scan' || !ev.data) return;
        const hash = ev.data.tree_hash;
        if (current === null) { current = hash; return; }
        if (hash && hash !== current) { location.reload(); }
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`

var previewTemplate = template.Must(template.New("preview").Parse(previewHTMLTemplate))

type previewData struct {
	Title        string
	Date         string
	Draft        bool
	Tags         string
	ReadingTime  int
	Contents     []post.Heading
	Body         template.HTML
	ReloadScript template.JS
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	slug := r.PathValue("slug")
	p := snap.Corpus.Find(slug)
	if p == nil {
		http.NotFound(w, r)
		return
	}

	html, err := markdown.Render(p.Body)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryContent, "failed to render post"))
		return
	}

	data := previewData{
		Title:        p.Meta.Title,
		Draft:        p.Meta.Draft,
		Tags:         strings.Join(p.Meta.Tags, ", "),
		ReadingTime:  p.ReadingTime(),
		Body:         template.HTML(html),
		ReloadScript: template.JS(previewReloadScript),
	}
	if !p.Meta.HideToc {
		data.Contents = p.Headings()
	}
	if p.Meta.Title == "" {
		data.Title = p.Slug
	}
	if !p.Meta.Date.IsZero() {
		data.Date = p.Meta.Date.Format("January 2, 2006")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := previewTemplate.Execute(w, data); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryInternal, "failed to render preview template"))
	}
}
