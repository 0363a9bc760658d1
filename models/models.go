package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// AdminClaims are the JWT claims carried by a registry service operator
// session, distinct from the agent-to-agent Ed25519 signature protocol.
type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// RegisterIdentityRequest is the body of POST /identities.
type RegisterIdentityRequest struct {
	DID       string          `json:"did"`
	PublicKey string          `json:"publicKey"`
	Domain    string          `json:"domain,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// IdentityResponse is the wire shape of a stored identity record.
type IdentityResponse struct {
	DID       string          `json:"did"`
	PublicKey string          `json:"publicKey"`
	Domain    string          `json:"domain,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	FirstSeen time.Time       `json:"firstSeen"`
	LastSeen  time.Time       `json:"lastSeen"`
}

// WellKnownDocument is this service's own discovery document, served at
// /.well-known/fides.json.
type WellKnownDocument struct {
	DID       string `json:"did"`
	PublicKey string `json:"publicKey"`
}

// CreateTrustRequestBody is the body of POST /v1/trust.
type CreateTrustRequestBody struct {
	IssuerDID  string     `json:"issuerDid"`
	SubjectDID string     `json:"subjectDid"`
	TrustLevel int        `json:"trustLevel"`
	Signature  string     `json:"signature"`
	Payload    string     `json:"payload"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// TrustEdgeResponse is returned from POST /v1/trust on success.
type TrustEdgeResponse struct {
	ID         int64      `json:"id"`
	IssuerDID  string     `json:"issuerDid"`
	SubjectDID string     `json:"subjectDid"`
	TrustLevel int        `json:"trustLevel"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// ScoreResponse is returned from GET /v1/trust/:did/score.
type ScoreResponse struct {
	DID                string  `json:"did"`
	Score              float64 `json:"score"`
	DirectTrusters     int     `json:"directTrusters"`
	TransitiveTrusters int     `json:"transitiveTrusters"`
}

// PathHopResponse is one vertex of a PathResponse.
type PathHopResponse struct {
	DID        string `json:"did"`
	TrustLevel int    `json:"trustLevel,omitempty"`
}

// PathResponse is returned from GET /v1/trust/:from/:to.
type PathResponse struct {
	From            string            `json:"from"`
	To              string            `json:"to"`
	Found           bool              `json:"found"`
	Path            []PathHopResponse `json:"path"`
	CumulativeTrust float64           `json:"cumulativeTrust"`
	Hops            int               `json:"hops"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// JSONB is a wrapper around json.RawMessage implementing the SQL
// scanner interface, used for the identities table's metadata column.
type JSONB json.RawMessage

// Value returns JSONB value for saving to the database.
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.RawMessage(j).MarshalJSON()
}

// Scan scans a value from the database into JSONB.
func (j *JSONB) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	if len(bytes) == 0 {
		*j = JSONB("null")
		return nil
	}

	result := json.RawMessage{}
	err := json.Unmarshal(bytes, &result)
	*j = JSONB(result)
	return err
}

// MarshalJSON returns the JSON encoding of JSONB.
func (j JSONB) MarshalJSON() ([]byte, error) {
	return json.RawMessage(j).MarshalJSON()
}

// UnmarshalJSON sets *j to a copy of data.
func (j *JSONB) UnmarshalJSON(data []byte) error {
	if j == nil {
		return errors.New("JSONB: UnmarshalJSON on nil pointer")
	}
	*j = append((*j)[0:0], data...)
	return nil
}
