// Command fides-cli is the operator tool for managing agent identities
// and exercising the protocol by hand: generating key pairs, signing
// outbound requests, and issuing attestations.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/fides-protocol/fides/attestation"
	"github.com/fides-protocol/fides/config"
	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/httpsig"
	"github.com/fides-protocol/fides/identity"
)

func main() {
	keygenCmd := flag.NewFlagSet("keygen", flag.ExitOnError)
	keygenKeyDir := keygenCmd.String("keydir", "", "Directory to store the generated key pair")
	keygenPassphrase := keygenCmd.String("passphrase", "", "Passphrase to encrypt the key pair at rest (optional)")

	signCmd := flag.NewFlagSet("sign-request", flag.ExitOnError)
	signKeyDir := signCmd.String("keydir", "", "Directory holding the signer's key pair")
	signID := signCmd.String("id", "", "Identifier of the key pair to sign with")
	signPassphrase := signCmd.String("passphrase", "", "Passphrase for the key pair, if encrypted")
	signMethod := signCmd.String("method", "GET", "HTTP method of the request to sign")
	signURL := signCmd.String("url", "", "Target URL of the request to sign")
	signBody := signCmd.String("body", "", "Request body to sign, if any")

	attestCmd := flag.NewFlagSet("attest", flag.ExitOnError)
	attestKeyDir := attestCmd.String("keydir", "", "Directory holding the issuer's key pair")
	attestIssuer := attestCmd.String("issuer", "", "Issuer identifier to sign with")
	attestPassphrase := attestCmd.String("passphrase", "", "Passphrase for the issuer's key pair, if encrypted")
	attestSubject := attestCmd.String("subject", "", "Subject identifier being attested to")
	attestLevel := attestCmd.Int("level", 50, "Trust level to assert, 0-100")

	if len(os.Args) < 2 {
		fmt.Println("Expected 'keygen', 'sign-request', or 'attest' subcommands")
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "keygen":
		keygenCmd.Parse(os.Args[2:])
		dir := *keygenKeyDir
		if dir == "" {
			dir = cfg.KeyDir
		}
		runKeygen(dir, *keygenPassphrase)

	case "sign-request":
		signCmd.Parse(os.Args[2:])
		dir := *signKeyDir
		if dir == "" {
			dir = cfg.KeyDir
		}
		if *signID == "" || *signURL == "" {
			fmt.Println("id and url are required")
			signCmd.PrintDefaults()
			os.Exit(1)
		}
		runSignRequest(dir, *signPassphrase, *signID, *signMethod, *signURL, *signBody)

	case "attest":
		attestCmd.Parse(os.Args[2:])
		dir := *attestKeyDir
		if dir == "" {
			dir = cfg.KeyDir
		}
		if *attestIssuer == "" || *attestSubject == "" {
			fmt.Println("issuer and subject are required")
			attestCmd.PrintDefaults()
			os.Exit(1)
		}
		runAttest(dir, *attestPassphrase, *attestIssuer, *attestSubject, *attestLevel)

	default:
		fmt.Println("Expected 'keygen', 'sign-request', or 'attest' subcommands")
		os.Exit(1)
	}
}

// runKeygen generates a new Ed25519 key pair, derives its did:fides:
// identifier, and persists it to the keystore at dir.
func runKeygen(dir, passphrase string) {
	ks, err := identity.NewDiskKeystore(dir, passphrase)
	if err != nil {
		fmt.Println("Error opening keystore:", err)
		os.Exit(1)
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		fmt.Println("Error generating key pair:", err)
		os.Exit(1)
	}

	did, err := identity.Derive(kp.PublicKey[:])
	if err != nil {
		fmt.Println("Error deriving identifier:", err)
		os.Exit(1)
	}

	if err := ks.Save(did, kp); err != nil {
		fmt.Println("Error saving key pair:", err)
		os.Exit(1)
	}

	fmt.Println("Identity successfully generated:")
	fmt.Println("DID:", did)
	fmt.Println("Public key:", crypto.HexEncode(kp.PublicKey[:]))
	fmt.Println("Keystore:", dir)
	if passphrase == "" {
		fmt.Println("WARNING: key pair stored unencrypted. Pass -passphrase to encrypt it at rest.")
	}
}

// runSignRequest builds an HTTP request for method/targetURL, signs it,
// and prints the headers a client would attach.
func runSignRequest(dir, passphrase, id, method, targetURL, body string) {
	ks, err := identity.NewDiskKeystore(dir, passphrase)
	if err != nil {
		fmt.Println("Error opening keystore:", err)
		os.Exit(1)
	}
	kp, err := ks.Load(id)
	if err != nil {
		fmt.Println("Error loading key pair:", err)
		os.Exit(1)
	}

	var bodyBytes []byte
	if body != "" {
		bodyBytes = []byte(body)
	}

	req, err := http.NewRequest(method, targetURL, nil)
	if err != nil {
		fmt.Println("Error building request:", err)
		os.Exit(1)
	}

	if err := httpsig.Attach(req, bodyBytes, kp, httpsig.SignOptions{KeyID: id}); err != nil {
		fmt.Println("Error signing request:", err)
		os.Exit(1)
	}

	fmt.Println("Request successfully signed. Attach these headers:")
	fmt.Println("Signature-Input:", req.Header.Get("Signature-Input"))
	fmt.Println("Signature:", req.Header.Get("Signature"))
	if digest := req.Header.Get("Content-Digest"); digest != "" {
		fmt.Println("Content-Digest:", digest)
	}
}

// runAttest issues a signed attestation from issuerID to subjectID and
// prints the JSON body a client would POST to the trust graph service.
func runAttest(dir, passphrase, issuerID, subjectID string, level int) {
	ks, err := identity.NewDiskKeystore(dir, passphrase)
	if err != nil {
		fmt.Println("Error opening keystore:", err)
		os.Exit(1)
	}
	kp, err := ks.Load(issuerID)
	if err != nil {
		fmt.Println("Error loading issuer key pair:", err)
		os.Exit(1)
	}

	att, err := attestation.Create(issuerID, subjectID, level, kp)
	if err != nil {
		fmt.Println("Error creating attestation:", err)
		os.Exit(1)
	}

	body := map[string]interface{}{
		"issuerDid":  att.IssuerDID,
		"subjectDid": att.SubjectDID,
		"trustLevel": att.TrustLevel,
		"signature":  att.Signature,
		"payload":    att.Payload,
	}
	raw, _ := json.MarshalIndent(body, "", "  ")

	fmt.Println("Attestation issued for trust level", strconv.Itoa(level))
	fmt.Println("POST this to the trust graph service's /v1/trust, signed with", issuerID+":")
	fmt.Println(string(raw))
}
