package verifier

import (
	"regexp"
	"strings"
)

var (
	// ipv4Pattern accepts four dot-separated octets in 0-255.
	ipv4Pattern = regexp.MustCompile(`^(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)$`)
	// ipv6Pattern accepts only the full eight-group form; "::" shorthand is
	// rejected.
	ipv6Pattern = regexp.MustCompile(`^(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$`)

	// ipLabelPattern matches leading labels such as "IP:", "IPv4:" or
	// "Your IP address is".
	ipLabelPattern = regexp.MustCompile(`(?i)^\s*(?:your\s+)?(?:public\s+)?ip(?:v4|v6)?(?:\s+address)?(?:\s+is)?\s*[:=]?\s*`)
)

// IsIPv4 reports whether s is a dotted-quad IPv4 address.
func IsIPv4(s string) bool { return ipv4Pattern.MatchString(s) }

// IsIPv6 reports whether s is a fully expanded IPv6 address.
func IsIPv6(s string) bool { return ipv6Pattern.MatchString(s) }

// stripIPLabel removes a leading label and trailing sentence punctuation.
func stripIPLabel(text string) string {
	text = ipLabelPattern.ReplaceAllString(strings.TrimSpace(text), "")
	return strings.TrimRight(strings.TrimSpace(text), ".,;")
}

// ipVersion returns "IPv4" or "IPv6" for a valid address, or "".
func ipVersion(s string) string {
	switch {
	case IsIPv4(s):
		return "IPv4"
	case IsIPv6(s):
		return "IPv6"
	}
	return ""
}
