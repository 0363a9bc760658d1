package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/errs"
)

// DefaultResolverCacheTTL is how long a positive resolution is cached.
const DefaultResolverCacheTTL = 5 * time.Minute

// wellKnownDoc is the shape served at /.well-known/fides.json and
// resolved from a bare domain before falling back to the registry.
type wellKnownDoc struct {
	DID       string `json:"did"`
	PublicKey string `json:"publicKey"`
}

type cacheEntry struct {
	record    Record
	expiresAt time.Time
}

// Resolver resolves an identifier or bare domain to its public key,
// trying the domain's own /.well-known/fides.json first, then falling
// back to the discovery registry at RegistryURL. Positive resolutions
// are cached in-memory for CacheTTL.
type Resolver struct {
	RegistryURL string
	CacheTTL    time.Duration
	HTTPClient  *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewResolver builds a resolver pointed at registryURL.
func NewResolver(registryURL string) *Resolver {
	return &Resolver{
		RegistryURL: registryURL,
		CacheTTL:    DefaultResolverCacheTTL,
		HTTPClient:  &http.Client{Timeout: 3 * time.Second},
		cache:       make(map[string]cacheEntry),
	}
}

// Resolve resolves input — either a did:fides:... identifier or a bare
// domain — to its Record.
func (r *Resolver) Resolve(ctx context.Context, input string) (Record, error) {
	r.mu.Lock()
	if entry, ok := r.cache[input]; ok && time.Now().Before(entry.expiresAt) {
		r.mu.Unlock()
		return entry.record, nil
	}
	r.mu.Unlock()

	var rec Record
	var err error
	if strings.HasPrefix(input, "did:fides:") {
		rec, err = r.resolveViaRegistry(ctx, input)
	} else {
		rec, err = r.resolveViaWellKnown(ctx, input)
		if err != nil {
			rec, err = r.resolveViaRegistry(ctx, input)
		}
	}
	if err != nil {
		return Record{}, err
	}

	r.mu.Lock()
	r.cache[input] = cacheEntry{record: rec, expiresAt: time.Now().Add(r.ttl())}
	r.mu.Unlock()
	return rec, nil
}

func (r *Resolver) ttl() time.Duration {
	if r.CacheTTL <= 0 {
		return DefaultResolverCacheTTL
	}
	return r.CacheTTL
}

func (r *Resolver) resolveViaWellKnown(ctx context.Context, domain string) (Record, error) {
	url := fmt.Sprintf("https://%s/.well-known/fides.json", domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Record{}, errs.Discovery(err)
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return Record{}, errs.Discovery(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Record{}, errs.Discovery(fmt.Errorf("well-known document returned status %d", resp.StatusCode))
	}

	var doc wellKnownDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Record{}, errs.Discovery(fmt.Errorf("decoding well-known document: %w", err))
	}
	pk, err := crypto.HexDecode(doc.PublicKey)
	if err != nil {
		return Record{}, errs.Discovery(fmt.Errorf("decoding well-known public key: %w", err))
	}
	return Record{DID: doc.DID, PublicKey: pk, Domain: domain}, nil
}

func (r *Resolver) resolveViaRegistry(ctx context.Context, did string) (Record, error) {
	url := fmt.Sprintf("%s/identities/%s", strings.TrimRight(r.RegistryURL, "/"), did)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Record{}, errs.Discovery(err)
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return Record{}, errs.Discovery(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Record{}, errs.Discovery(ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return Record{}, errs.Discovery(fmt.Errorf("registry returned status %d", resp.StatusCode))
	}

	var wire struct {
		DID       string `json:"did"`
		PublicKey string `json:"publicKey"`
		Domain    string `json:"domain"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Record{}, errs.Discovery(fmt.Errorf("decoding registry response: %w", err))
	}
	pk, err := crypto.HexDecode(wire.PublicKey)
	if err != nil {
		return Record{}, errs.Discovery(fmt.Errorf("decoding registry public key: %w", err))
	}
	return Record{DID: wire.DID, PublicKey: pk, Domain: wire.Domain}, nil
}
