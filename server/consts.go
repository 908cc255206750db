package server

// VERSION is the arashi version
const VERSION = "0.3.0"

const (
	ccMustRevalidate = "max-age=0, must-revalidate"
	ccNoCache        = "no-cache"
)

// reserved routes
const (
	statusPath = "/@status"
)
