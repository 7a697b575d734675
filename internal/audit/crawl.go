package audit

// CrawlResult holds the pages discovered by one crawl in discovery order.
// Checks receive it read-only; only the crawler calls Add.
type CrawlResult struct {
	seed  string
	order []string
	pages map[string]Page
}

// NewCrawlResult creates an empty result for the given seed URL.
func NewCrawlResult(seed string) *CrawlResult {
	return &CrawlResult{
		seed:  seed,
		pages: make(map[string]Page),
	}
}

// Add stores a page. A second page for the same URL is ignored.
func (r *CrawlResult) Add(p Page) {
	if _, ok := r.pages[p.URL]; ok {
		return
	}
	r.order = append(r.order, p.URL)
	r.pages[p.URL] = p
}

// Seed returns the URL the crawl started from.
func (r *CrawlResult) Seed() string {
	return r.seed
}

// Len returns the number of stored pages.
func (r *CrawlResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Get looks up a page by URL.
func (r *CrawlResult) Get(url string) (Page, bool) {
	if r == nil {
		return Page{}, false
	}
	p, ok := r.pages[url]
	return p, ok
}

// URLs returns the stored URLs in discovery order.
func (r *CrawlResult) URLs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Pages returns the stored pages in discovery order.
func (r *CrawlResult) Pages() []Page {
	if r == nil {
		return nil
	}
	out := make([]Page, 0, len(r.order))
	for _, u := range r.order {
		out = append(out, r.pages[u])
	}
	return out
}

// Parsed returns only the pages that produced an HTML document.
func (r *CrawlResult) Parsed() []Page {
	var out []Page
	for _, p := range r.Pages() {
		if p.Parsed() {
			out = append(out, p)
		}
	}
	return out
}

// Homepage returns the first crawled page, which is the seed when it was reachable.
func (r *CrawlResult) Homepage() (Page, bool) {
	if r.Len() == 0 {
		return Page{}, false
	}
	return r.pages[r.order[0]], true
}
