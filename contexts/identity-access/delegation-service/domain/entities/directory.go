package entities

// User is the directory projection of a tenant member. The engine only reads
// it to validate participants and resolve display identity.
type User struct {
	UserID   string
	TenantID string
	Name     string
	Email    string
}

// Permission is the catalog projection of a grantable permission.
type Permission struct {
	PermissionID string
	Name         string
	Description  string
}
