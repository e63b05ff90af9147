package client

import "strings"

// RequestKey identifies a request for deduplication and caching.
type RequestKey string

// NewRequestKey combines method, absolute URL and serialized body.
func NewRequestKey(method, url string, body []byte) RequestKey {
	var b strings.Builder
	b.Grow(len(method) + len(url) + len(body) + 2)
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(0)
	b.WriteString(url)
	b.WriteByte(0)
	b.Write(body)
	return RequestKey(b.String())
}

// URL returns the URL component of k.
func (k RequestKey) URL() string {
	s := string(k)
	i := strings.IndexByte(s, 0)
	if i < 0 {
		return ""
	}
	s = s[i+1:]
	if j := strings.IndexByte(s, 0); j >= 0 {
		return s[:j]
	}
	return s
}
