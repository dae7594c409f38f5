package fetchapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ExportCredentials serializes the cookies the jar holds for the API host.
// The result is opaque to callers and is only meant for ImportCredentials.
func (c *Client) ExportCredentials() ([]byte, error) {
	cookies := c.jar.Cookies(c.baseURL)
	saved := make([]savedCookie, 0, len(cookies))
	for _, ck := range cookies {
		saved = append(saved, savedCookie{Name: ck.Name, Value: ck.Value})
	}
	return json.Marshal(saved)
}

// ImportCredentials restores cookies produced by ExportCredentials.
func (c *Client) ImportCredentials(data []byte) error {
	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("decoding saved credentials: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		cookies = append(cookies, &http.Cookie{
			Name:     s.Name,
			Value:    s.Value,
			Path:     "/",
			Secure:   c.baseURL.Scheme == "https",
			HttpOnly: true,
		})
	}
	c.jar.SetCookies(c.baseURL, cookies)
	return nil
}

// HasCredentials reports whether the jar holds any cookie for the API.
func (c *Client) HasCredentials() bool {
	return len(c.jar.Cookies(c.baseURL)) > 0
}
