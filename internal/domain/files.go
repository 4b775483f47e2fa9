package domain

import "strings"

// StaticURL resolves a stored relative file path to its public URL under
// baseURL + "/static/". Absolute URLs are returned unchanged.
func StaticURL(baseURL, rel string) string {
	if rel == "" {
		return ""
	}
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}
	return strings.TrimRight(baseURL, "/") + "/static/" + strings.TrimLeft(rel, "/")
}
