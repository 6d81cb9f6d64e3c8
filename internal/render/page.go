package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	g "github.com/maragudk/gomponents"
	c "github.com/maragudk/gomponents/components"
	. "github.com/maragudk/gomponents/html"
	"github.com/rotisserie/eris"
)

const dateFormat = "2 January 2006"

// PageData carries everything needed to render a self-contained article page.
// The struct is deliberately independent of the domain types so the renderer
// stays a pure presentation layer.
type PageData struct {
	Title         string
	Category      string
	Author        string
	Excerpt       string
	Body          string
	CoverImage    string
	GalleryImages []string
	IsVideo       bool
	VideoID       string
	VideoURL      string
	CanonicalURL  string
	SiteName      string
	SiteURL       string
	PublishedAt   time.Time
	ShareWhatsApp string
	ShareFacebook string
}

// ArticlePage renders the complete static HTML artifact for one article,
// including the social-preview meta tags crawlers read.
func ArticlePage(data PageData) ([]byte, error) {
	if strings.TrimSpace(data.Title) == "" {
		return nil, eris.New("page title is required")
	}

	buf := new(bytes.Buffer)
	err := c.HTML5(c.HTML5Props{
		Title:    fmt.Sprintf("%s - %s", data.Title, data.SiteName),
		Language: "en",
		Head:     articleHead(data),
		Body: []g.Node{
			topBar(data),
			Article(Class("article-container"),
				articleHero(data),
				Main(Class("article-main"),
					articleContent(data),
					shareSection(data),
				),
			),
		},
	}).Render(buf)
	if err != nil {
		return nil, eris.Wrap(err, "rendering article page")
	}

	return buf.Bytes(), nil
}

func articleHead(data PageData) []g.Node {
	previewImage := data.CoverImage
	if len(data.GalleryImages) > 0 {
		previewImage = data.GalleryImages[0]
	}

	ogType := "article"
	twitterCard := "summary_large_image"
	if data.IsVideo {
		ogType = "video.other"
		twitterCard = "player"
		previewImage = youTubeThumbnail(data.VideoID)
	}

	head := []g.Node{
		Meta(Name("description"), Content(data.Excerpt)),
		Link(Rel("canonical"), Href(data.CanonicalURL)),
		Meta(g.Attr("property", "og:type"), Content(ogType)),
		Meta(g.Attr("property", "og:title"), Content(data.Title)),
		Meta(g.Attr("property", "og:description"), Content(data.Excerpt)),
		Meta(g.Attr("property", "og:image"), Content(previewImage)),
		Meta(g.Attr("property", "og:url"), Content(data.CanonicalURL)),
		Meta(g.Attr("property", "og:site_name"), Content(data.SiteName)),
		Meta(Name("twitter:card"), Content(twitterCard)),
		Meta(Name("twitter:title"), Content(data.Title)),
		Meta(Name("twitter:description"), Content(data.Excerpt)),
		Meta(Name("twitter:image"), Content(previewImage)),
	}

	if data.IsVideo {
		head = append(head, Meta(g.Attr("property", "og:video"), Content(data.VideoURL)))
	}

	head = append(head, StyleEl(g.Raw(articleCSS)))
	return head
}

func topBar(data PageData) g.Node {
	return Div(Class("top-bar"),
		Div(Class("container"),
			A(Href(data.SiteURL), Class("logo"), g.Text(data.SiteName)),
			A(Href(data.SiteURL), Class("back-btn"), g.Text("Back to home")),
		),
	)
}

func articleHero(data PageData) g.Node {
	nodes := []g.Node{Class("article-hero")}
	if !data.IsVideo && data.CoverImage != "" {
		nodes = append(nodes, g.Attr("style", fmt.Sprintf("background-image: url('%s');", data.CoverImage)))
	}

	nodes = append(nodes, Div(Class("hero-overlay"),
		Span(Class("category"), g.Text(data.Category)),
		H1(g.Text(data.Title)),
		Div(Class("meta"),
			Span(g.Text(data.Author)),
			Span(g.Text(data.PublishedAt.Format(dateFormat))),
		),
	))

	return Header(nodes...)
}

func articleContent(data PageData) g.Node {
	if data.IsVideo {
		return Div(Class("video-container"),
			Div(Class("video-wrapper"),
				IFrame(
					Src("https://www.youtube.com/embed/"+data.VideoID),
					g.Attr("allow", "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"),
					g.Attr("allowfullscreen"),
				),
			),
			Div(Class("article-description"),
				Div(Class("excerpt"), g.Text(data.Excerpt)),
				bodyParagraphs(data.Body),
			),
		)
	}

	return Div(Class("article-content"),
		Div(Class("excerpt"), g.Text(data.Excerpt)),
		bodyParagraphs(data.Body),
		gallery(data.GalleryImages),
	)
}

func bodyParagraphs(body string) g.Node {
	var paragraphs []g.Node
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		paragraphs = append(paragraphs, P(g.Text(block)))
	}

	return Div(Class("body"), g.Group(paragraphs))
}

// gallery renders every image after the first; the first is the cover and
// already shown in the hero.
func gallery(images []string) g.Node {
	if len(images) < 2 {
		return nil
	}

	var items []g.Node
	for _, image := range images[1:] {
		items = append(items, Div(Class("gallery-item"),
			Img(Src(image), Alt("Photo"), g.Attr("loading", "lazy")),
		))
	}

	return Div(Class("gallery"),
		H3(g.Text("Photo gallery")),
		Div(Class("gallery-grid"), g.Group(items)),
	)
}

func shareSection(data PageData) g.Node {
	return Div(Class("share"),
		H3(g.Text("Share this story")),
		Div(Class("share-buttons"),
			A(Href(data.ShareWhatsApp), Class("share-btn whatsapp"), g.Text("WhatsApp")),
			A(Href(data.ShareFacebook), Class("share-btn facebook"), g.Text("Facebook")),
		),
	)
}

func youTubeThumbnail(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", videoID)
}

const articleCSS = `
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: 'Inter', -apple-system, BlinkMacSystemFont, sans-serif; background: #0f172a; color: #f1f5f9; line-height: 1.6; }
.top-bar { background: #1e293b; padding: 1rem 0; border-bottom: 1px solid rgba(255,255,255,0.1); }
.container { max-width: 1200px; margin: 0 auto; padding: 0 20px; display: flex; justify-content: space-between; align-items: center; }
.logo { color: #fff; font-size: 1.5rem; font-weight: 700; text-decoration: none; }
.back-btn { background: #667eea; color: white; padding: 10px 20px; border-radius: 8px; text-decoration: none; }
.article-container { max-width: 1200px; margin: 30px auto 0; padding: 0 20px; }
.article-hero { height: 400px; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); background-size: cover; background-position: center; border-radius: 20px; overflow: hidden; position: relative; margin-bottom: 30px; }
.hero-overlay { position: absolute; bottom: 0; left: 0; right: 0; background: linear-gradient(transparent, rgba(0,0,0,0.8)); padding: 40px; color: white; }
.category { background: #667eea; color: white; padding: 8px 16px; border-radius: 20px; font-size: 0.9rem; font-weight: 600; margin-bottom: 15px; display: inline-block; }
.article-hero h1 { font-size: 2.5rem; margin-bottom: 15px; line-height: 1.2; }
.meta { display: flex; gap: 20px; font-size: 0.9rem; opacity: 0.9; }
.video-container { background: #1e293b; border-radius: 15px; overflow: hidden; margin-bottom: 30px; }
.video-wrapper { position: relative; padding-bottom: 56.25%; height: 0; }
.video-wrapper iframe { position: absolute; top: 0; left: 0; width: 100%; height: 100%; border: none; }
.article-content, .article-description { background: #1e293b; padding: 30px; border-radius: 15px; }
.excerpt { font-size: 1.2rem; color: #e2e8f0; margin-bottom: 25px; padding-bottom: 25px; border-bottom: 1px solid rgba(255,255,255,0.1); }
.body { font-size: 1.1rem; line-height: 1.8; }
.body p { margin-bottom: 20px; color: #cbd5e1; }
.gallery { margin-top: 40px; }
.gallery h3 { color: #fff; margin-bottom: 20px; }
.gallery-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(250px, 1fr)); gap: 15px; }
.gallery-item { border-radius: 10px; overflow: hidden; aspect-ratio: 4/3; }
.gallery-item img { width: 100%; height: 100%; object-fit: cover; }
.share { margin-top: 40px; padding-top: 30px; border-top: 1px solid rgba(255,255,255,0.1); }
.share h3 { color: #fff; margin-bottom: 20px; }
.share-buttons { display: flex; gap: 15px; flex-wrap: wrap; }
.share-btn { padding: 12px 25px; border-radius: 10px; text-decoration: none; font-weight: 600; color: white; }
.share-btn.whatsapp { background: #25D366; }
.share-btn.facebook { background: #3b5998; }
@media (max-width: 768px) { .article-hero { height: 300px; } .article-hero h1 { font-size: 1.5rem; } }
`
