package models

import "time"

// IdentityRole represents the available roles for an identity.
type IdentityRole string

const (
	RoleAnonymous IdentityRole = "anonymous"
	RoleVisitor   IdentityRole = "visitor"
	RoleAdmin     IdentityRole = "admin"
)

// AdminIdentityID is the fixed id of the synthetic, never-persisted admin
// identity.
const AdminIdentityID = "admin"

// Identity represents a registered visitor stored in the identities table.
// The admin identity is constructed locally from config and never hits this
// table; anonymous identities are not persisted at all.
type Identity struct {
	ID         string       `db:"id" json:"id"`
	Username   string       `db:"username" json:"username"`
	SecretHash string       `db:"secret_hash" json:"-"`
	Role       IdentityRole `db:"role" json:"role"`
	IsBanned   bool         `db:"is_banned" json:"is_banned"`
	AvatarRef  string       `db:"avatar_ref" json:"avatar_ref"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// IdentityInfo describes an identity in responses, without secret material.
type IdentityInfo struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	Role      IdentityRole `json:"role"`
	IsBanned  bool         `json:"is_banned"`
	AvatarRef string       `json:"avatar_ref"`
}

// Info projects the identity into its response shape.
func (i *Identity) Info() IdentityInfo {
	return IdentityInfo{
		ID:        i.ID,
		Username:  i.Username,
		Role:      i.Role,
		IsBanned:  i.IsBanned,
		AvatarRef: i.AvatarRef,
	}
}
