// Package accessitems exposes workbasket access-control entries: which
// access id (user or group) holds which permissions on a workbasket.
package accessitems

import "strings"

// AccessItem grants one access id a set of permissions on one workbasket.
type AccessItem struct {
	ID             string `json:"access_item_id"`
	WorkbasketID   string `json:"workbasket_id"`
	WorkbasketKey  string `json:"workbasket_key"`
	AccessID       string `json:"access_id"`
	AccessName     string `json:"access_name"`
	PermRead       bool   `json:"perm_read"`
	PermOpen       bool   `json:"perm_open"`
	PermAppend     bool   `json:"perm_append"`
	PermTransfer   bool   `json:"perm_transfer"`
	PermDistribute bool   `json:"perm_distribute"`
}

// IsGroup reports whether accessID is a group distinguished name.
func IsGroup(accessID string) bool {
	return strings.Contains(strings.ToLower(accessID), "ou=groups")
}
