// Package filter provides display filter functionality using expr-lang/expr
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// Filter is a compiled display filter over table rows. The zero Filter and
// a nil *Filter match every row.
type Filter struct {
	source  string
	program *vm.Program
}

// protocolFlags maps standalone protocol words to boolean env fields.
var protocolFlags = map[string]string{
	"tcp":    "is_tcp",
	"udp":    "is_udp",
	"icmp":   "is_icmp",
	"icmpv6": "is_icmpv6",
	"ipv4":   "is_ipv4",
	"ipv6":   "is_ipv6",
}

// sampleEnv declares the names a filter may reference. Row columns not
// listed here are still available at run time.
var sampleEnv = map[string]any{
	"id":             0,
	"timestamp":      "",
	"packet_type":    "",
	"source":         "",
	"destination":    "",
	"protocol":       "",
	"payload_base64": "",
	"payload_hex":    "",
	"payload_raw":    []any{},
	"payload_string": "",
	"ip":             map[string]any{"src": "", "dst": "", "proto": ""},
	"frame":          map[string]any{"len": 0},
	"is_tcp":         false,
	"is_udp":         false,
	"is_icmp":        false,
	"is_icmpv6":      false,
	"is_ipv4":        false,
	"is_ipv6":        false,
}

// Compile compiles a display filter expression. An empty expression yields
// a filter that matches everything.
//
// Besides plain expr syntax it accepts a few Wireshark-style forms:
//
//	tcp, udp, icmp, ipv4, ipv6      protocol tests
//	ip.src == 10.0.0.1              unquoted address literals
//	ip.addr == 10.0.0.1             either source or destination
//	protocol in {"TCP", "UDP"}      set membership
func Compile(filterStr string) (*Filter, error) {
	filterStr = strings.TrimSpace(filterStr)
	if filterStr == "" {
		return &Filter{}, nil
	}

	processed := preprocessFilter(filterStr)

	program, err := expr.Compile(processed,
		expr.Env(sampleEnv),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter '%s': %w", filterStr, err)
	}

	return &Filter{source: filterStr, program: program}, nil
}

// String returns the expression as typed.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Empty reports whether the filter matches everything.
func (f *Filter) Empty() bool {
	return f == nil || f.program == nil
}

// Match evaluates the filter against one row. Rows that make the
// expression fail at run time do not match.
func (f *Filter) Match(row value.Value) bool {
	if f.Empty() {
		return true
	}
	result, err := expr.Run(f.program, rowToEnv(row))
	if err != nil {
		return false
	}
	b, ok := result.(bool)
	return ok && b
}

// Apply returns the rows matching f, preserving order.
func Apply(f *Filter, rows model.ResultSet) model.ResultSet {
	if f.Empty() {
		return rows
	}
	out := make(model.ResultSet, 0, len(rows))
	for _, row := range rows {
		if f.Match(row) {
			out = append(out, row)
		}
	}
	return out
}

// rowToEnv exposes the row's columns plus derived ip/frame fields and
// protocol flags.
func rowToEnv(row value.Value) map[string]any {
	env := make(map[string]any, len(sampleEnv))
	if m, ok := row.Native().(map[string]any); ok {
		for k, v := range m {
			env[k] = v
		}
	}

	src, _ := env["source"].(string)
	dst, _ := env["destination"].(string)
	proto, _ := env["protocol"].(string)
	ptype, _ := env["packet_type"].(string)

	frameLen := 0
	if raw, ok := env["payload_raw"].([]any); ok {
		frameLen = len(raw)
	}

	env["ip"] = map[string]any{"src": src, "dst": dst, "proto": proto}
	env["frame"] = map[string]any{"len": frameLen}

	lp := strings.ToLower(proto)
	env["is_tcp"] = lp == "tcp"
	env["is_udp"] = lp == "udp"
	env["is_icmp"] = lp == "icmp" || lp == "icmpv4"
	env["is_icmpv6"] = lp == "icmpv6"
	env["is_ipv4"] = ptype == "IPv4"
	env["is_ipv6"] = ptype == "IPv6"
	return env
}

var (
	addrLiteralRe = regexp.MustCompile(`(==|!=)(\s*)([0-9]+\.[0-9]+\.[0-9]+\.[0-9]+|[0-9A-Fa-f]*:[0-9A-Fa-f:.]*)`)
	ipAddrRe      = regexp.MustCompile(`ip\.addr\s*(==|!=)\s*("[^"]*"|'[^']*'|[^\s()]+)`)
)

// preprocessFilter converts Wireshark-style filter syntax to expr syntax.
// Quoted strings are left untouched.
func preprocessFilter(filter string) string {
	var b strings.Builder
	for _, seg := range splitQuoted(filter) {
		if seg.quoted {
			b.WriteString(seg.text)
			continue
		}
		b.WriteString(rewriteSegment(seg.text))
	}
	filter = b.String()

	return ipAddrRe.ReplaceAllStringFunc(filter, func(m string) string {
		parts := ipAddrRe.FindStringSubmatch(m)
		op, val := parts[1], parts[2]
		join := "or"
		if op == "!=" {
			join = "and"
		}
		return fmt.Sprintf("(ip.src %s %s %s ip.dst %s %s)", op, val, join, op, val)
	})
}

func rewriteSegment(seg string) string {
	seg = addrLiteralRe.ReplaceAllString(seg, `$1$2"$3"`)

	words := tokenizeFilter(seg)
	for i, word := range words {
		replacement, ok := protocolFlags[strings.ToLower(word)]
		if !ok {
			continue
		}
		// Standalone only: not part of a field path like ip.proto.
		if (i+1 < len(words) && words[i+1] == ".") || (i > 0 && words[i-1] == ".") {
			continue
		}
		words[i] = replacement
	}
	seg = strings.Join(words, "")

	seg = strings.ReplaceAll(seg, "{", "[")
	seg = strings.ReplaceAll(seg, "}", "]")
	return seg
}

type segment struct {
	text   string
	quoted bool
}

// splitQuoted separates single and double quoted literals from the rest.
func splitQuoted(s string) []segment {
	var (
		out   []segment
		start int
		quote rune
	)
	for i, ch := range s {
		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			if i > start {
				out = append(out, segment{text: s[start:i]})
			}
			start = i
			quote = ch
		case quote != 0 && ch == quote && (i == 0 || s[i-1] != '\\'):
			out = append(out, segment{text: s[start : i+1], quoted: true})
			start = i + 1
			quote = 0
		}
	}
	if start < len(s) {
		out = append(out, segment{text: s[start:], quoted: quote != 0})
	}
	return out
}

// tokenizeFilter breaks a filter string into tokens while preserving structure
func tokenizeFilter(filter string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, ch := range filter {
		switch ch {
		case ' ', '\t', '\n', '.', '(', ')', '[', ']', '{', '}', ',', '!':
			flush()
			tokens = append(tokens, string(ch))
		case '=', '>', '<', '&', '|':
			if current.Len() > 0 && !isOperator(current.String()) {
				flush()
			}
			current.WriteRune(ch)
		default:
			if current.Len() > 0 && isOperator(current.String()) {
				flush()
			}
			current.WriteRune(ch)
		}
	}
	flush()

	return tokens
}

func isOperator(s string) bool {
	return strings.Trim(s, "=><&|") == ""
}
