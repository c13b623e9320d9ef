package enforcer

// LoadDefaultPolicies protects the signed-in pages and API endpoints. Every
// other route, including signup, login and logout, is public.
func (e *Enforcer) LoadDefaultPolicies() {
	e.SetPolicy("/home", "*", AccessAuthenticated)
	e.SetPolicy("/api/v1/me", "*", AccessAuthenticated)
	e.SetPolicy("/api/v1/logout", "*", AccessAuthenticated)
	e.SetPolicy("/api/v1/token/refresh", "*", AccessAuthenticated)

	e.SetPolicy("/", "GET", AccessPublic)
	e.SetPolicy("/signup", "*", AccessPublic)
	e.SetPolicy("/login", "*", AccessPublic)
	e.SetPolicy("/logout", "GET", AccessPublic)
	e.SetPolicy("/api/v1/signup", "POST", AccessPublic)
	e.SetPolicy("/api/v1/login", "POST", AccessPublic)
}
