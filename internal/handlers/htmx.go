package handlers

import "net/http"

// wantsFragment reports whether an htmx request targets part of the page.
// Boosted navigations swap the whole body and receive the full document.
func wantsFragment(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Boosted") != "true"
}
