package searchconsole

import (
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// DomainPropertyPrefix prefixes domain-property site identifiers.
const DomainPropertyPrefix = "sc-domain:"

// hostProfile maps hostnames the way browsers do: UTS #46 non-transitional
// processing without STD3 or hyphen checks, so "_" and "--" labels survive.
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.Transitional(false),
	idna.StrictDomainName(false),
	idna.CheckHyphens(false),
)

// forbiddenHostChars are the forbidden domain code points that remain after
// mapping; C0 controls, space and DEL are checked separately.
const forbiddenHostChars = "#%/:<>?@[\\]^|"

// NormalizeSiteURL converts a site identifier to the other registration form.
//
// An absolute http(s) URL becomes "sc-domain:<hostname>" (scheme, port and path
// dropped, internationalized names in their ASCII form). Anything else,
// including an existing sc-domain token, is treated as a bare host and becomes
// "https://<input>". The mapping is one-directional on purpose: only the URL
// branch is a real transformation.
func NormalizeSiteURL(identifier string) string {
	if host, ok := httpHost(identifier); ok {
		return DomainPropertyPrefix + host
	}
	return "https://" + identifier
}

// httpHost reports the serialized host of an absolute http(s) URL, read the
// way a WHATWG URL parser reads it. Parse failures are a routing decision,
// not an error.
func httpHost(raw string) (string, bool) {
	s := strings.TrimFunc(raw, func(r rune) bool { return r <= ' ' })
	s = strings.NewReplacer("\t", "", "\n", "", "\r", "").Replace(s)

	scheme, rest, ok := strings.Cut(s, ":")
	if !ok {
		return "", false
	}
	if scheme = strings.ToLower(scheme); scheme != "http" && scheme != "https" {
		return "", false
	}

	// Special schemes ignore any run of slashes or backslashes before the authority.
	rest = strings.TrimLeft(rest, "/\\")
	if i := strings.IndexAny(rest, "/\\?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}

	host, port := splitHostPort(rest)
	if !validPort(port) {
		return "", false
	}
	return parseHost(host)
}

func splitHostPort(authority string) (host, port string) {
	if strings.HasPrefix(authority, "[") {
		end := strings.Index(authority, "]")
		if end < 0 {
			return authority, ""
		}
		literal, rest := authority[:end+1], authority[end+1:]
		if strings.HasPrefix(rest, ":") {
			return literal, rest[1:]
		}
		if rest != "" {
			return authority, ""
		}
		return literal, ""
	}
	if i := strings.LastIndex(authority, ":"); i >= 0 {
		return authority[:i], authority[i+1:]
	}
	return authority, ""
}

func validPort(port string) bool {
	if port == "" {
		return true
	}
	n, err := strconv.ParseUint(port, 10, 32)
	return err == nil && n <= 65535
}

func parseHost(host string) (string, bool) {
	if host == "" {
		return "", false
	}
	if strings.HasPrefix(host, "[") {
		if !strings.HasSuffix(host, "]") {
			return "", false
		}
		addr, err := netip.ParseAddr(host[1 : len(host)-1])
		if err != nil || !addr.Is6() || addr.Zone() != "" {
			return "", false
		}
		return "[" + addr.String() + "]", true
	}

	if decoded, err := url.PathUnescape(host); err == nil {
		host = decoded
	}
	ascii, err := hostProfile.ToASCII(host)
	if err != nil || ascii == "" {
		return "", false
	}
	for _, r := range ascii {
		if r <= ' ' || r == 0x7f || strings.ContainsRune(forbiddenHostChars, r) {
			return "", false
		}
	}
	return ascii, true
}
