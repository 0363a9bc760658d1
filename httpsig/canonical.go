package httpsig

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fides-protocol/fides/errs"
)

// DefaultComponents is the default signed component set. content-digest
// is appended by the signer when the request carries a body; it is not
// part of this base list.
var DefaultComponents = []string{"@method", "@target-uri", "@authority", "content-type"}

// DefaultAlg is the only signature algorithm this protocol accepts.
// Verify rejects anything else as a downgrade attempt.
const DefaultAlg = "ed25519"

// DefaultLabel is the signature label used when the caller does not
// override it.
const DefaultLabel = "sig1"

// SignatureParams is the parsed or to-be-serialized content of a
// Signature-Input entry.
type SignatureParams struct {
	Components []string
	Created    int64
	Expires    int64
	KeyID      string
	Alg        string
	Nonce      string // optional; empty means absent
}

// SignatureInput is a full Signature-Input header entry: its label and
// parameters.
type SignatureInput struct {
	Label  string
	Params SignatureParams
}

// componentLine renders "<name>": <value> for a single component,
// looking up derived (@-prefixed) components from msg and header-field
// components case-insensitively from msg's headers.
func componentLine(msg Message, name string) (string, error) {
	if strings.HasPrefix(name, "@") {
		val, err := derivedComponentValue(msg, name)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%q: %s", name, val), nil
	}

	values := msg.Header().Values(http.CanonicalHeaderKey(name))
	if len(values) == 0 {
		return "", errs.Signature(fmt.Errorf("missing header field referenced by signature: %s", name))
	}
	return fmt.Sprintf("%q: %s", name, strings.Join(values, ", ")), nil
}

func derivedComponentValue(msg Message, name string) (string, error) {
	switch name {
	case "@method":
		return strings.ToUpper(msg.Method()), nil
	case "@target-uri":
		return msg.URL().String(), nil
	case "@authority":
		return authority(msg.URL()), nil
	case "@path":
		p := msg.URL().Path
		if q := msg.URL().RawQuery; q != "" {
			p += "?" + q
		}
		return p, nil
	default:
		return "", errs.Signature(fmt.Errorf("unsupported derived component: %s", name))
	}
}

// authority returns the URI host, plus the port when it is non-default
// for the URI's scheme, with no scheme prefix.
func authority(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		return host
	}
	defaultPort := ""
	switch u.Scheme {
	case "https":
		defaultPort = "443"
	case "http":
		defaultPort = "80"
	}
	if port == defaultPort {
		return host
	}
	return host + ":" + port
}

// paramsString renders the ;key=value parameter list shared by the
// Signature-Input header value and the @signature-params base line:
// created=.., expires=.., [nonce="..",] keyid="..", alg="..".
func paramsString(p SignatureParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, ";created=%d", p.Created)
	fmt.Fprintf(&b, ";expires=%d", p.Expires)
	if p.Nonce != "" {
		fmt.Fprintf(&b, ";nonce=%q", p.Nonce)
	}
	fmt.Fprintf(&b, ";keyid=%q", p.KeyID)
	fmt.Fprintf(&b, ";alg=%q", p.Alg)
	return b.String()
}

// componentList renders the quoted, space-separated component list:
// ("@method" "@target-uri" ...).
func componentList(components []string) string {
	quoted := make([]string, len(components))
	for i, c := range components {
		quoted[i] = strconv.Quote(c)
	}
	return "(" + strings.Join(quoted, " ") + ")"
}

// SerializeSignatureInput renders the full Signature-Input header value
// for label: label=(components);created=..;expires=..;...
func SerializeSignatureInput(si SignatureInput) string {
	return si.Label + "=" + componentList(si.Params.Components) + paramsString(si.Params)
}

// BuildSignatureBase constructs the RFC 9421 signature base string for
// msg under params: one line per signed component, followed by the
// final @signature-params line.
func BuildSignatureBase(msg Message, params SignatureParams) (string, error) {
	lines := make([]string, 0, len(params.Components)+1)
	for _, c := range params.Components {
		line, err := componentLine(msg, c)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	lines = append(lines, fmt.Sprintf("%q: %s", "@signature-params", componentList(params.Components)+paramsString(params)))
	return strings.Join(lines, "\n"), nil
}

// ParseSignatureInput parses a single Signature-Input header value of
// the form label=(c1 c2 ...);k1=v1;k2=v2;... Numeric parameters are bare
// integers; string parameters are double-quoted.
func ParseSignatureInput(header string) (SignatureInput, error) {
	header = strings.TrimSpace(header)
	eq := strings.IndexByte(header, '=')
	if eq < 0 || eq+1 >= len(header) || header[eq+1] != '(' {
		return SignatureInput{}, errs.Signature(fmt.Errorf("malformed Signature-Input: %s", header))
	}
	label := header[:eq]
	rest := header[eq+1:]

	close := strings.IndexByte(rest, ')')
	if close < 0 {
		return SignatureInput{}, errs.Signature(fmt.Errorf("malformed Signature-Input component list: %s", header))
	}
	componentsRaw := rest[1:close]
	params := rest[close+1:]

	var components []string
	for _, tok := range strings.Fields(componentsRaw) {
		unquoted, err := strconv.Unquote(tok)
		if err != nil {
			return SignatureInput{}, errs.Signature(fmt.Errorf("malformed component identifier %q: %w", tok, err))
		}
		components = append(components, unquoted)
	}

	sp := SignatureParams{Components: components}
	for _, kv := range strings.Split(params, ";") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		eqI := strings.IndexByte(kv, '=')
		if eqI < 0 {
			return SignatureInput{}, errs.Signature(fmt.Errorf("malformed Signature-Input parameter: %s", kv))
		}
		key, val := kv[:eqI], kv[eqI+1:]
		switch key {
		case "created":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return SignatureInput{}, errs.Signature(fmt.Errorf("malformed created parameter: %w", err))
			}
			sp.Created = n
		case "expires":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return SignatureInput{}, errs.Signature(fmt.Errorf("malformed expires parameter: %w", err))
			}
			sp.Expires = n
		case "keyid":
			s, err := strconv.Unquote(val)
			if err != nil {
				return SignatureInput{}, errs.Signature(fmt.Errorf("malformed keyid parameter: %w", err))
			}
			sp.KeyID = s
		case "alg":
			s, err := strconv.Unquote(val)
			if err != nil {
				return SignatureInput{}, errs.Signature(fmt.Errorf("malformed alg parameter: %w", err))
			}
			sp.Alg = s
		case "nonce":
			s, err := strconv.Unquote(val)
			if err != nil {
				return SignatureInput{}, errs.Signature(fmt.Errorf("malformed nonce parameter: %w", err))
			}
			sp.Nonce = s
		}
	}

	return SignatureInput{Label: label, Params: sp}, nil
}
