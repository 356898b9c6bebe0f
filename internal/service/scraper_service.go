package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/deepquiz/wikiquiz/config"
	"github.com/deepquiz/wikiquiz/internal/apperr"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// Article is the scraper's output: the visible text of a page plus its
// title and section headings, in document order.
type Article struct {
	Title    string
	Sections []string
	Text     string
}

type ArticleScraper interface {
	Fetch(ctx context.Context, rawURL string) (*Article, error)
}

type articleScraper struct {
	client *http.Client
	cfg    *config.Config
}

func NewArticleScraper(cfg *config.Config) ArticleScraper {
	return &articleScraper{
		client: &http.Client{Timeout: cfg.Scraper.Timeout},
		cfg:    cfg,
	}
}

var wikiArticleURL = regexp.MustCompile(`(?i)^https://[a-z]+(\.m)?\.wikipedia\.org/wiki/.+`)

// Wikipedia chrome that must not leak into quiz evidence.
var noiseClasses = map[string]bool{
	"reference":       true,
	"mw-editsection":  true,
	"infobox":         true,
	"navbox":          true,
	"vertical-navbox": true,
	"hatnote":         true,
	"toc":             true,
	"thumb":           true,
	"reflist":         true,
	"metadata":        true,
}

const maxResponseBytes = 10 << 20

func (s *articleScraper) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	if !s.cfg.Scraper.AllowAnyHost && !wikiArticleURL.MatchString(rawURL) {
		return nil, apperr.New(apperr.KindInvalidURL, "URL must be a Wikipedia article URL (https://xx.wikipedia.org/wiki/...)")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidURL, "malformed URL", err)
	}
	req.Header.Set("User-Agent", "WikiQuizBot/1.0 (+https://github.com/deepquiz/wikiquiz)")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", rawURL).Msg("Article fetch failed")
		return nil, apperr.Wrap(apperr.KindFetchFailed, "failed to fetch article", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindFetchFailed, fmt.Sprintf("failed to fetch article: status %d", resp.StatusCode))
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFetchFailed, "failed to parse article HTML", err)
	}

	article := extractArticle(doc)
	if article.Text == "" {
		return nil, apperr.New(apperr.KindFetchFailed, "article contained no extractable text")
	}
	article.Text = trimArticle(article.Text, s.cfg.Generation.ArticleCharLimit)

	log.Info().
		Str("url", rawURL).
		Str("title", article.Title).
		Int("sections", len(article.Sections)).
		Int("chars", len(article.Text)).
		Msg("Article scraped")
	return article, nil
}

func extractArticle(doc *html.Node) *Article {
	article := &Article{}

	if h1 := findNode(doc, func(n *html.Node) bool {
		return n.Data == "h1" && hasClass(n, "firstHeading")
	}); h1 != nil {
		article.Title = normalizeWhitespace(nodeText(h1))
	} else if title := findNode(doc, func(n *html.Node) bool { return n.Data == "title" }); title != nil {
		article.Title = normalizeWhitespace(strings.TrimSuffix(nodeText(title), " - Wikipedia"))
	}
	if article.Title == "" {
		article.Title = "Untitled"
	}

	root := findNode(doc, func(n *html.Node) bool { return hasClass(n, "mw-parser-output") })
	if root == nil {
		root = findNode(doc, func(n *html.Node) bool { return attrValue(n, "id") == "mw-content-text" })
	}
	if root == nil {
		root = findNode(doc, func(n *html.Node) bool { return n.Data == "body" })
	}
	if root == nil {
		return article
	}

	var paragraphs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if isNoise(n) {
				return
			}
			switch n.Data {
			case "h2", "h3":
				heading := normalizeWhitespace(strings.ReplaceAll(nodeText(n), "[edit]", ""))
				if heading != "" {
					article.Sections = append(article.Sections, heading)
				}
				return
			case "p":
				text := normalizeWhitespace(nodeText(n))
				if text != "" && !strings.HasPrefix(text, "Coordinates:") {
					paragraphs = append(paragraphs, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	article.Text = strings.Join(paragraphs, " ")
	return article
}

func isNoise(n *html.Node) bool {
	switch n.Data {
	case "table", "style", "script":
		return true
	}
	for _, class := range strings.Fields(attrValue(n, "class")) {
		if noiseClasses[class] {
			return true
		}
	}
	return attrValue(n, "id") == "toc"
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// trimArticle caps the text at limit characters to bound prompt size,
// preferring a word boundary in the last fifth of the budget.
func trimArticle(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexAny(cut, " \n"); idx > limit*4/5 {
		cut = cut[:idx]
	}
	return cut
}
