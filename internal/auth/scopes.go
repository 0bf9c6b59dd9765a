package auth

// Known OAuth scopes used by the set logging service.
const (
	ScopeSetsWrite = "sets:write"
	ScopeSetsRead  = "sets:read"
	// ScopeClientsManage lets a coach log sets on behalf of their clients.
	ScopeClientsManage = "clients:manage"
)
