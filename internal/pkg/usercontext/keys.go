package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyUserContext = "USER_CONTEXT"
	KeyAccessToken = "access_token"
	KeyRefresh     = "refresh_token"
)
