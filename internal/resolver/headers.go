package resolver

import "math/rand/v2"

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
}

var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Accept-Encoding":           "gzip, deflate, br",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
}

// HeaderSource produces a request identity for one attempt.
type HeaderSource interface {
	Headers() map[string]string
}

// HeaderRandomizer builds browser-like request headers with a user agent drawn from a fixed pool.
//
// Not safe for concurrent use unless the underlying [rand.Rand] is.
type HeaderRandomizer struct {
	rng *rand.Rand
}

// NewHeaderRandomizer returns a randomizer drawing from rng. A nil rng is seeded from the runtime.
func NewHeaderRandomizer(rng *rand.Rand) *HeaderRandomizer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &HeaderRandomizer{rng: rng}
}

// Headers returns a fresh header map with a uniformly chosen User-Agent.
func (h *HeaderRandomizer) Headers() map[string]string {
	headers := make(map[string]string, len(browserHeaders)+1)
	for k, v := range browserHeaders {
		headers[k] = v
	}
	headers["User-Agent"] = userAgents[h.rng.IntN(len(userAgents))]
	return headers
}

// UserAgents returns a copy of the user agent pool.
func UserAgents() []string {
	return append([]string{}, userAgents...)
}
