package render

import (
	"bytes"
	"fmt"
	"strings"

	g "github.com/maragudk/gomponents"
	c "github.com/maragudk/gomponents/components"
	. "github.com/maragudk/gomponents/html"
	"github.com/rotisserie/eris"
)

// ShareData carries the values for a standalone share page: a meta-tag
// envelope crawlers read, followed by an immediate redirect for humans.
type ShareData struct {
	Title     string
	Excerpt   string
	Image     string
	ShareURL  string
	TargetURL string
	SiteName  string
}

// SharePage renders the redirect page with Open Graph and Twitter Card meta.
func SharePage(data ShareData) ([]byte, error) {
	if strings.TrimSpace(data.Title) == "" {
		return nil, eris.New("share title is required")
	}

	title := fmt.Sprintf("%s - %s", data.Title, data.SiteName)

	buf := new(bytes.Buffer)
	err := c.HTML5(c.HTML5Props{
		Title:    title,
		Language: "en",
		Head: []g.Node{
			Meta(g.Attr("property", "og:type"), Content("article")),
			Meta(g.Attr("property", "og:url"), Content(data.ShareURL)),
			Meta(g.Attr("property", "og:title"), Content(title)),
			Meta(g.Attr("property", "og:description"), Content(data.Excerpt)),
			Meta(g.Attr("property", "og:image"), Content(data.Image)),
			Meta(g.Attr("property", "og:image:width"), Content("1200")),
			Meta(g.Attr("property", "og:image:height"), Content("630")),
			Meta(g.Attr("property", "og:site_name"), Content(data.SiteName)),
			Meta(Name("twitter:card"), Content("summary_large_image")),
			Meta(Name("twitter:title"), Content(title)),
			Meta(Name("twitter:description"), Content(data.Excerpt)),
			Meta(Name("twitter:image"), Content(data.Image)),
			Meta(g.Attr("http-equiv", "refresh"), Content("0;url="+data.TargetURL)),
			StyleEl(g.Raw(shareCSS)),
		},
		Body: []g.Node{
			Div(Class("share-redirect"),
				H1(g.Text(data.SiteName)),
				P(g.Text("Taking you to the article...")),
				P(A(Href(data.TargetURL), g.Text("Click here if you are not redirected."))),
			),
		},
	}).Render(buf)
	if err != nil {
		return nil, eris.Wrap(err, "rendering share page")
	}

	return buf.Bytes(), nil
}

const shareCSS = `
body { margin: 0; padding: 20px; font-family: Arial, sans-serif; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; min-height: 100vh; display: flex; align-items: center; justify-content: center; text-align: center; }
.share-redirect { max-width: 600px; }
.share-redirect h1 { font-size: 2.5rem; margin-bottom: 20px; }
.share-redirect a { color: white; text-decoration: underline; }
`
