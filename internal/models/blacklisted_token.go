package models

// BlacklistedToken records a token string that was explicitly invalidated.
// Logout does not currently insert here and token verification does not read
// it; the table exists so real revocation can be enabled without a schema
// change.
type BlacklistedToken struct {
	ID            int64  `json:"id"`
	Token         string `json:"token"`
	BlacklistedAt string `json:"blacklisted_at"`
}
