package core

import "time"

// RepositoryStatus mirrors the lifecycle a fetch-stage credential can be in.
type RepositoryStatus string

const (
	RepositoryActive     RepositoryStatus = "active"
	RepositoryRevoked    RepositoryStatus = "revoked"
	RepositoryTokenError RepositoryStatus = "token_error"
	RepositoryPaused     RepositoryStatus = "paused"
	RepositoryRemoved    RepositoryStatus = "removed"
)

// Repository is a (tenant, owner, name) triple with an encrypted access
// credential used by the fetch stage. (tenant, fullName) is unique.
type Repository struct {
	ID                 string           `json:"id" db:"id"`
	TenantID           string           `json:"tenant_id" db:"tenant_id"`
	Owner              string           `json:"owner" db:"owner"`
	Name               string           `json:"name" db:"name"`
	FullName           string           `json:"full_name" db:"full_name"`
	EncryptedCredential []byte          `json:"-" db:"encrypted_credential"`
	Status             RepositoryStatus `json:"status" db:"status"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
}

// Author is a code-host user in the global registry, addressable by stable
// host-side user id. One author may be referenced by many tenants.
type Author struct {
	ID         string    `json:"id" db:"id"`
	HostUserID string    `json:"host_user_id" db:"host_user_id"`
	Username   string    `json:"username" db:"username"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
