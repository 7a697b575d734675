package crawler

// frontier is the BFS queue plus the set of every URL ever queued. A URL
// enters the frontier at most once per crawl, so nothing is fetched twice
// and failed fetches are never retried.
type frontier struct {
	queue []string
	seen  map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{seen: make(map[string]struct{})}
}

// markSeen records url as visited without queueing it.
func (f *frontier) markSeen(url string) {
	if url != "" {
		f.seen[url] = struct{}{}
	}
}

// push queues url if it has never been queued and reports whether it was.
func (f *frontier) push(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := f.seen[url]; ok {
		return false
	}
	f.seen[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

func (f *frontier) pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	next := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	return next, true
}

func (f *frontier) len() int {
	return len(f.queue)
}
