package fetchapi

import "regexp"

var fromParam = regexp.MustCompile(`from=(\d+)$`)

// CursorFrom turns a next/prev token from the search API into the value of
// the "from" query parameter. The API hands back a path like
// "/dogs/search?size=20&from=40"; anything else is passed through as is.
func CursorFrom(token string) string {
	if m := fromParam.FindStringSubmatch(token); m != nil {
		return m[1]
	}
	return token
}
