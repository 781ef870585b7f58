// Package postfetch loads a post by identifier with cancellation, a loading
// flag that is held for a minimum time to avoid flicker, and a reducer that
// owns the visible state.
package postfetch

// Post the record served by the posts API.
type Post struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}
