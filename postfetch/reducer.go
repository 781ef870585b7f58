package postfetch

import "fmt"

// Store the state rendered by a view.
type Store struct {
	// Loading is true from the start of a request until it settled and
	// the minimum hold elapsed.
	Loading bool
	// Post is the last fetched record, nil when nothing is loaded or the
	// last request failed.
	Post *Post
}

// Action a state transition of the Store. The set of actions is closed.
type Action interface {
	action()
}

// RequestStarted a request began.
type RequestStarted struct{}

// RequestSucceeded a request returned a post.
type RequestSucceeded struct {
	Post Post
}

// RequestFailed a request failed.
type RequestFailed struct {
	Err error
}

// RequestCleared forget the current record.
type RequestCleared struct{}

// LoadingFinished the request settled and the minimum hold elapsed.
type LoadingFinished struct{}

func (RequestStarted) action()   {}
func (RequestSucceeded) action() {}
func (RequestFailed) action()    {}
func (RequestCleared) action()   {}
func (LoadingFinished) action()  {}

// Reduce returns the store after applying a.
func Reduce(s Store, a Action) Store {
	switch a := a.(type) {
	case RequestStarted:
		s.Loading = true
	case RequestSucceeded:
		p := a.Post
		s.Post = &p
	case RequestFailed, RequestCleared:
		s.Post = nil
	case LoadingFinished:
		s.Loading = false
	default:
		panic(fmt.Sprintf("postfetch: unknown action %T", a))
	}
	return s
}
