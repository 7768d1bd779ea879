package valid

import (
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
)

// Rule accepts or rejects a single value.
type Rule struct {
	Name        string
	Description string
	Accept      func(value string) bool
}

// Chain is an ordered list of rules evaluated with "or".
type Chain []Rule

// Or composes rules. The first accepting rule wins.
func Or(rules ...Rule) Chain {
	return Chain(rules)
}

// Check evaluates the chain and returns the rejection reason. An empty chain
// accepts every value.
func (c Chain) Check(value string) (string, bool) {
	if len(c) == 0 {
		return "", true
	}
	descriptions := make([]string, 0, len(c))
	for _, r := range c {
		if r.Accept(value) {
			return "", true
		}
		descriptions = append(descriptions, r.Description)
	}
	return "must be " + strings.Join(descriptions, " or "), false
}

// Validate checks value and returns a *ValidationError naming field when it
// is rejected.
func (c Chain) Validate(field, value string) error {
	if reason, ok := c.Check(value); !ok {
		return NewValidationError(field, value, reason)
	}
	return nil
}

// Names returns the rule names in evaluation order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = r.Name
	}
	return names
}

// Empty accepts only the empty string.
func Empty() Rule {
	return Rule{
		Name:        "empty",
		Description: "empty",
		Accept:      func(v string) bool { return v == "" },
	}
}

// Text accepts any single-line string, including the empty one.
func Text() Rule {
	return Rule{
		Name:        "text",
		Description: "text without line breaks",
		Accept:      func(v string) bool { return !strings.ContainsAny(v, "\r\n\x00") },
	}
}

// NonEmptyText accepts text with at least one character.
func NonEmptyText() Rule {
	return Rule{
		Name:        "non-empty text",
		Description: "non-empty text",
		Accept:      func(v string) bool { return v != "" && Text().Accept(v) },
	}
}

// Number accepts integers within [min, max].
func Number(min, max int) Rule {
	return Rule{
		Name:        "number",
		Description: "a number between " + strconv.Itoa(min) + " and " + strconv.Itoa(max),
		Accept: func(v string) bool {
			n, err := strconv.Atoi(v)
			return err == nil && n >= min && n <= max
		},
	}
}

// Port accepts TCP/UDP port numbers.
func Port() Rule {
	return Rule{
		Name:        "port",
		Description: "a valid port number (1-65535)",
		Accept:      govalidator.IsPort,
	}
}

// FQDN accepts host names made of dot-separated labels.
func FQDN() Rule {
	return Rule{
		Name:        "fqdn",
		Description: "a valid FQDN",
		Accept:      isFQDN,
	}
}

func isFQDN(v string) bool {
	if !govalidator.IsDNSName(v) {
		return false
	}
	// All-numeric names are malformed addresses, not host names.
	labels := strings.Split(strings.TrimSuffix(v, "."), ".")
	_, err := strconv.Atoi(labels[len(labels)-1])
	return err != nil
}

// IPAddress accepts IPv4 and IPv6 addresses.
func IPAddress() Rule {
	return Rule{
		Name:        "ip",
		Description: "a valid IP address",
		Accept:      govalidator.IsIP,
	}
}

// FQDNOrIPAddress accepts host names and IP addresses.
func FQDNOrIPAddress() Rule {
	return Rule{
		Name:        "fqdn-or-ip",
		Description: "a valid FQDN or IP address",
		Accept: func(v string) bool {
			return govalidator.IsIP(v) || isFQDN(v)
		},
	}
}

// Boolean accepts the string forms of a bool.
func Boolean() Rule {
	return Rule{
		Name:        "boolean",
		Description: "true or false",
		Accept: func(v string) bool {
			_, err := strconv.ParseBool(v)
			return err == nil
		},
	}
}

// SameAs accepts a value equal to the one returned by other. label names the
// other field in the rejection reason.
func SameAs(label string, other func() string) Rule {
	return Rule{
		Name:        "same-as",
		Description: "the same as " + label,
		Accept:      func(v string) bool { return v == other() },
	}
}
