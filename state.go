package spacetraveling

// Status is the resolution state of a page.
type Status int

const (
	StatusPending Status = iota
	StatusResolved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// PageState is what the renderer knows about a post: still resolving, resolved
// with a post, or failed with an error. Construct it with Pending, Resolved
// or Failed.
type PageState struct {
	Status Status
	Post   *Post
	Err    error
}

// Pending is the state of an on-demand page whose post has not been fetched.
func Pending() PageState {
	return PageState{Status: StatusPending}
}

// Resolved wraps a fetched post.
func Resolved(p Post) PageState {
	return PageState{Status: StatusResolved, Post: &p}
}

// Failed records a fetch failure other than not found.
func Failed(err error) PageState {
	return PageState{Status: StatusFailed, Err: err}
}
