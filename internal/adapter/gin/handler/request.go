package handler

import (
	"net/http"
)

// hasArguments reports whether r carries a query string or any body.
func hasArguments(r *http.Request) bool {
	if r.URL.RawQuery != "" || r.ContentLength > 0 || len(r.TransferEncoding) > 0 {
		return true
	}
	if r.Header.Get("Transfer-Encoding") != "" {
		return true
	}
	if cl := r.Header.Get("Content-Length"); cl != "" && cl != "0" {
		return true
	}
	return false
}
