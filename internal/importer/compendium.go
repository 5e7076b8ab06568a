package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/spellbook/internal/catalog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultCompendiumURL is the spell index of the Italian compendium.
const DefaultCompendiumURL = "https://dungeonedraghi.it/compendio/incantesimi/"

// CompendiumSource is stored on every spell the compendium produces.
const CompendiumSource = "dungeonedraghi.it"

const (
	compendiumUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/121.0.0.0 Safari/537.36"
	compendiumLanguage = "it-IT,it;q=0.9,en;q=0.8"
	compendiumTimeout  = 30 * time.Second
)

var (
	detailLinkRe = regexp.MustCompile(`^https?://[^/]+/compendio/incantesimi/[^/?#]+/?$`)
	pageLinkRe   = regexp.MustCompile(`/compendio/incantesimi/page/(\d+)/?`)
	digitsRe     = regexp.MustCompile(`\d+`)
)

// Compendium scrapes spell detail pages from the compendium index and its
// paginated listing.
type Compendium struct {
	baseURL string
	client  *http.Client
}

// NewCompendium returns a compendium source. An empty baseURL uses
// DefaultCompendiumURL; a nil client gets a 30s timeout.
func NewCompendium(baseURL string, client *http.Client) *Compendium {
	if baseURL == "" {
		baseURL = DefaultCompendiumURL
	}
	if client == nil {
		client = &http.Client{Timeout: compendiumTimeout}
	}
	return &Compendium{baseURL: baseURL, client: client}
}

// Name implements Source.
func (c *Compendium) Name() string { return "compendium" }

// Fetch implements Source. Any failed page aborts the crawl.
func (c *Compendium) Fetch(ctx context.Context) ([]catalog.Spell, error) {
	links, err := c.SpellLinks(ctx)
	if err != nil {
		return nil, err
	}
	spells := make([]catalog.Spell, 0, len(links))
	for _, link := range links {
		doc, err := c.get(ctx, link)
		if err != nil {
			return nil, err
		}
		spells = append(spells, parseSpellPage(doc, link))
	}
	return spells, nil
}

// SpellLinks returns the sorted, de-duplicated detail links found on the
// index and every numbered page after it.
func (c *Compendium) SpellLinks(ctx context.Context) ([]string, error) {
	doc, err := c.get(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	hrefs := anchorHrefs(doc)
	for _, href := range hrefs {
		if isSpellDetailLink(href, c.baseURL) {
			seen[href] = true
		}
	}

	last := maxPage(hrefs)
	for page := 2; page <= last; page++ {
		pageURL := fmt.Sprintf("%s/page/%d/", strings.TrimRight(c.baseURL, "/"), page)
		pdoc, err := c.get(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		for _, href := range anchorHrefs(pdoc) {
			if isSpellDetailLink(href, c.baseURL) {
				seen[href] = true
			}
		}
	}

	links := make([]string, 0, len(seen))
	for href := range seen {
		links = append(links, href)
	}
	sort.Strings(links)
	return links, nil
}

func (c *Compendium) get(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("importer: compendium request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", compendiumUserAgent)
	req.Header.Set("Accept-Language", compendiumLanguage)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("importer: compendium get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("importer: compendium get %s: status %d", url, resp.StatusCode)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("importer: compendium parse %s: %w", url, err)
	}
	return doc, nil
}

// isSpellDetailLink reports whether href points at a single spell page
// under base rather than the index, a listing page or an anchor.
func isSpellDetailLink(href, base string) bool {
	if !strings.Contains(href, "/compendio/incantesimi/") {
		return false
	}
	if strings.Contains(href, "/compendio/incantesimi/page/") {
		return false
	}
	if strings.ContainsAny(href, "?#") {
		return false
	}
	if strings.TrimRight(href, "/") == strings.TrimRight(base, "/") {
		return false
	}
	return detailLinkRe.MatchString(href)
}

// maxPage returns the highest listing page number linked, at least 1.
func maxPage(hrefs []string) int {
	last := 1
	for _, href := range hrefs {
		m := pageLinkRe.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > last {
			last = n
		}
	}
	return last
}

func parseSpellPage(doc *html.Node, url string) catalog.Spell {
	s := catalog.Spell{URL: url, Source: CompendiumSource}
	if h1 := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.H1 }); h1 != nil {
		s.Name = textContent(h1, "")
	}
	if m := digitsRe.FindString(extractSection(doc, "Livello")); m != "" {
		s.Level, _ = strconv.Atoi(m)
	}
	s.School = extractSection(doc, "Scuola di Magia")
	s.Ritual = normalizeBool(extractSection(doc, "Rituale"))
	s.CastingTime = extractSection(doc, "Tempo di Lancio")
	s.Range = extractSection(doc, "Gittata")
	s.Components = extractSection(doc, "Componenti")
	s.Material = parseMaterial(s.Components)
	s.Duration = extractSection(doc, "Durata")
	s.Description = extractSection(doc, "Effetto")
	s.HigherLevel = extractSection(doc, "Ai Livelli Superiori")
	s.Concentration = normalizeBool(extractSection(doc, "Concentrazione"))
	s.Classes = extractSection(doc, "Classe")
	if s.Classes == "" {
		s.Classes = extractSection(doc, "Classi")
	}
	return s
}

// extractSection finds the first h2/h3 whose text is title and returns the
// text of the element siblings after it, up to the next h2/h3. Each
// sibling becomes one line.
func extractSection(doc *html.Node, title string) string {
	header := findFirst(doc, func(n *html.Node) bool {
		return isSectionHeading(n) && textContent(n, "") == title
	})
	if header == nil {
		return ""
	}
	var lines []string
	for n := header.NextSibling; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		if isSectionHeading(n) {
			break
		}
		if text := textContent(n, " "); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// parseMaterial returns the text between the first "(" and the last ")".
func parseMaterial(components string) string {
	start := strings.Index(components, "(")
	end := strings.LastIndex(components, ")")
	if start < 0 || end <= start {
		return ""
	}
	return components[start+1 : end]
}

// normalizeBool reads the compendium's yes/no cells.
func normalizeBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "si", "sì", "yes", "true":
		return true
	}
	return false
}

func isSectionHeading(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.DataAtom == atom.H2 || n.DataAtom == atom.H3)
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// textContent joins the trimmed, non-empty text nodes under n with sep.
func textContent(n *html.Node, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}

func anchorHrefs(doc *html.Node) []string {
	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			for _, a := range n.Attr {
				if a.Key == "href" {
					hrefs = append(hrefs, a.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hrefs
}
