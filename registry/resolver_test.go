package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/identity"
)

func TestResolveViaRegistrySuccess(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did, err := identity.Derive(kp.PublicKey[:])
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"did":       did,
			"publicKey": crypto.HexEncode(kp.PublicKey[:]),
			"domain":    "agent.example",
		})
	}))
	defer srv.Close()

	resolver := NewResolver(srv.URL)
	rec, err := resolver.Resolve(context.Background(), did)
	require.NoError(t, err)
	assert.Equal(t, did, rec.DID)
	assert.Equal(t, kp.PublicKey[:], rec.PublicKey)
}

func TestResolveViaRegistryNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resolver := NewResolver(srv.URL)
	_, err := resolver.Resolve(context.Background(), "did:fides:missing")
	assert.Error(t, err)
}

func TestResolveCachesPositiveResult(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did, err := identity.Derive(kp.PublicKey[:])
	require.NoError(t, err)

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]string{
			"did":       did,
			"publicKey": crypto.HexEncode(kp.PublicKey[:]),
		})
	}))
	defer srv.Close()

	resolver := NewResolver(srv.URL)
	resolver.CacheTTL = time.Minute

	_, err = resolver.Resolve(context.Background(), did)
	require.NoError(t, err)
	_, err = resolver.Resolve(context.Background(), did)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second resolution should be served from cache")
}
