package httpapi

const (
	jsonKeyError   = "error"
	jsonKeySuccess = "success"
	jsonKeyMessage = "message"

	// LoginPath is the web login page every unauthenticated dashboard
	// request is redirected to.
	LoginPath = "/login"
	// DashboardPathPrefix is the gated admin area.
	DashboardPathPrefix = "/dashboard"
)
