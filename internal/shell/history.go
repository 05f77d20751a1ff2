package shell

import "sync"

// History is the browser history seen by the controller.
type History interface {
	Push(url string)
	Replace(url string)
	Location() string
}

// MemoryHistory is an in-process history stack with back support.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
	index   int
}

// NewMemoryHistory starts a history at url.
func NewMemoryHistory(url string) *MemoryHistory {
	return &MemoryHistory{entries: []string{url}}
}

// Push drops any forward entries and appends url.
func (h *MemoryHistory) Push(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], url)
	h.index++
}

// Replace overwrites the current entry.
func (h *MemoryHistory) Replace(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = url
}

// Location returns the current entry.
func (h *MemoryHistory) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Back moves one entry back. It reports false at the first entry.
func (h *MemoryHistory) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

// Forward moves one entry forward. It reports false at the last entry.
func (h *MemoryHistory) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

// Len returns the number of entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// RequestHistory adapts a single HTTP request to History. The location is
// the requested URL; Push and Replace record a redirect target that the
// handler answers with 303 See Other.
type RequestHistory struct {
	location string
	redirect string
	pushed   bool
}

// NewRequestHistory starts at the request URL (path plus query).
func NewRequestHistory(url string) *RequestHistory {
	return &RequestHistory{location: url}
}

func (h *RequestHistory) Push(url string) {
	h.location, h.redirect, h.pushed = url, url, true
}

func (h *RequestHistory) Replace(url string) {
	h.location, h.redirect = url, url
}

func (h *RequestHistory) Location() string { return h.location }

// Redirect returns the URL the browser must be sent to, if any.
func (h *RequestHistory) Redirect() (string, bool) {
	return h.redirect, h.redirect != ""
}
