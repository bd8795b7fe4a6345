package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// MaxPayloadLen caps the payload text sent per packet when redaction is on.
const MaxPayloadLen = 200

// RedactConfig controls what is masked before packets leave for the model.
type RedactConfig struct {
	Enabled         bool
	RedactIPs       bool
	RedactMACs      bool
	RedactHTTPCreds bool
	RedactQuery     bool
	MaxPayload      int // 0 keeps the whole payload
}

// DefaultRedactConfig enables every redaction.
func DefaultRedactConfig() *RedactConfig {
	return &RedactConfig{
		Enabled:         true,
		RedactIPs:       true,
		RedactMACs:      true,
		RedactHTTPCreds: true,
		RedactQuery:     true,
		MaxPayload:      MaxPayloadLen,
	}
}

var (
	ipv4Regex        = regexp.MustCompile(`\b(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})\b`)
	ipv6Regex        = regexp.MustCompile(`\b([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b|\b([0-9a-fA-F]{1,4}:){1,6}:([0-9a-fA-F]{1,4})?\b`)
	macRegex         = regexp.MustCompile(`\b([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}\b`)
	authHeaderRegex  = regexp.MustCompile(`(?i)(Authorization|Cookie|Set-Cookie|X-Api-Key|X-Auth-Token):\s*([^\r\n]+)`)
	queryParamsRegex = regexp.MustCompile(`\?([^#\s]+)`)
)

// hashShort returns the first 8 hex chars of the SHA-256 of s. Equal inputs
// map to equal pseudonyms so the model can still correlate hosts.
func hashShort(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:8]
}

// RedactIP replaces an IPv4 address with a pseudonym. Private ranges keep
// their first two octets.
func RedactIP(ip string) string {
	if ip == "" {
		return ip
	}
	if strings.HasPrefix(ip, "127.") || strings.HasPrefix(ip, "192.168.") ||
		strings.HasPrefix(ip, "10.") || strings.HasPrefix(ip, "172.") {
		parts := strings.Split(ip, ".")
		if len(parts) == 4 {
			return fmt.Sprintf("%s.%s.x.x[%s]", parts[0], parts[1], hashShort(ip))
		}
	}
	return fmt.Sprintf("IP[%s]", hashShort(ip))
}

// RedactMAC keeps the OUI and hashes the rest.
func RedactMAC(mac string) string {
	if mac == "" {
		return mac
	}
	parts := strings.Split(mac, ":")
	if len(parts) == 6 {
		return fmt.Sprintf("%s:%s:%s:xx:xx:xx[%s]", parts[0], parts[1], parts[2], hashShort(mac))
	}
	return fmt.Sprintf("MAC[%s]", hashShort(mac))
}

// RedactHTTPHeader masks credential-bearing header values.
func RedactHTTPHeader(text string) string {
	return authHeaderRegex.ReplaceAllStringFunc(text, func(match string) string {
		parts := authHeaderRegex.FindStringSubmatch(match)
		if len(parts) >= 3 {
			return fmt.Sprintf("%s: [REDACTED-%s]", parts[1], hashShort(parts[2]))
		}
		return match
	})
}

// RedactQueryParams masks URL query strings.
func RedactQueryParams(text string) string {
	return queryParamsRegex.ReplaceAllStringFunc(text, func(match string) string {
		return fmt.Sprintf("?[PARAMS-REDACTED-%s]", hashShort(match))
	})
}

// RedactText applies every redaction enabled in cfg. A nil or disabled
// config returns text unchanged.
func RedactText(text string, cfg *RedactConfig) string {
	if cfg == nil || !cfg.Enabled {
		return text
	}
	result := text
	if cfg.RedactHTTPCreds {
		result = RedactHTTPHeader(result)
	}
	if cfg.RedactQuery {
		result = RedactQueryParams(result)
	}
	if cfg.RedactMACs {
		result = macRegex.ReplaceAllStringFunc(result, RedactMAC)
	}
	if cfg.RedactIPs {
		result = ipv4Regex.ReplaceAllStringFunc(result, RedactIP)
		result = ipv6Regex.ReplaceAllStringFunc(result, func(ip string) string {
			return fmt.Sprintf("IPv6[%s]", hashShort(ip))
		})
	}
	return result
}

// redactAddr masks a bare source or destination column.
func redactAddr(addr string, cfg *RedactConfig) string {
	if cfg == nil || !cfg.Enabled || !cfg.RedactIPs || addr == "" {
		return addr
	}
	if strings.Contains(addr, ":") {
		return fmt.Sprintf("IPv6[%s]", hashShort(addr))
	}
	return RedactIP(addr)
}

// ClampString cuts s to at most maxLen runes and appends "...".
// maxLen <= 0 disables the limit.
func ClampString(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
