// Package permission maps role names to permission sets.
//
// Permissions are registered once at startup and assigned stable bit
// positions in a 64-bit [Mask64]. Roles are unions of permissions; the
// engine expands a role into permission names when it issues an access
// token, so verification never consults this package.
//
// With the root bit reserved, a role listing [RootPermission] holds every
// permission, including ones registered later.
package permission
