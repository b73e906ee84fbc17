package model

// Permission represents a string code for a specific administrative action.
type Permission string

const (
	// PermissionCatalogRead allows viewing subjects, semesters and course offerings.
	PermissionCatalogRead Permission = "catalog:read"

	// PermissionCatalogWrite allows creating, updating and deleting catalog entries.
	PermissionCatalogWrite Permission = "catalog:write"

	// PermissionPeriodsWrite allows opening, moving and removing registration periods.
	PermissionPeriodsWrite Permission = "periods:write"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionCatalogRead,
	PermissionCatalogWrite,
	PermissionPeriodsWrite,
}

// PermissionStrings returns AllPermissions as plain strings for token claims.
func PermissionStrings() []string {
	out := make([]string, 0, len(AllPermissions))
	for _, p := range AllPermissions {
		out = append(out, string(p))
	}
	return out
}
