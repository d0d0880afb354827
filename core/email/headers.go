package email

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

var textHeaders = []struct {
	field string
	re    *regexp.Regexp
}{
	{"from", regexp.MustCompile(`(?i)from:[ \t]*([^\n]+)`)},
	{"to", regexp.MustCompile(`(?i)\bto:[ \t]*([^\n]+)`)},
	{"subject", regexp.MustCompile(`(?i)subject:[ \t]*([^\n]+)`)},
	{"date", regexp.MustCompile(`(?i)date:[ \t]*([^\n]+)`)},
	{"sent", regexp.MustCompile(`(?i)sent:[ \t]*([^\n]+)`)},
	{"message-id", regexp.MustCompile(`(?i)message-id:[ \t]*([^\n]+)`)},
}

var listSeparator = regexp.MustCompile(`[,;]`)

// ExtractHeaders reads header fields from doc. It returns nil when nothing
// was found.
func ExtractHeaders(doc *dom.Node) *core.EmailHeaders {
	h := NewDetector(doc).Headers()
	if h.IsZero() {
		return nil
	}
	return h
}

// Headers looks for header fields in elements whose class, id or data
// attribute names the field, then falls back to "Field: value" lines in the
// body text when neither a sender nor a subject was found.
func (d *Detector) Headers() *core.EmailHeaders {
	h := &core.EmailHeaders{
		From:      d.field("from", "sender"),
		Subject:   d.field("subject"),
		Date:      d.field("date", "sent"),
		MessageID: d.field("message-id"),
	}
	if to := d.field("to", "recipient"); to != "" {
		h.To = ParseList(to)
	}
	if cc := d.field("cc"); cc != "" {
		h.CC = ParseList(cc)
	}
	if bcc := d.field("bcc"); bcc != "" {
		h.BCC = ParseList(bcc)
	}
	if h.From == "" && h.Subject == "" {
		d.headersFromText(h)
	}
	return h
}

func (d *Detector) field(names ...string) string {
	for _, name := range names {
		if el := d.q.Query(`[class*="` + name + `"]`); el != nil {
			return strings.TrimSpace(el.TextContent())
		}
		if el := d.q.Query(`[id*="` + name + `"]`); el != nil {
			return strings.TrimSpace(el.TextContent())
		}
		attr := "data-" + name
		if el := d.q.Query(`[` + attr + `]`); el != nil {
			return strings.TrimSpace(el.AttrOr(attr, ""))
		}
	}
	return ""
}

func (d *Detector) headersFromText(h *core.EmailHeaders) {
	for _, th := range textHeaders {
		m := th.re.FindStringSubmatch(d.text)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		switch th.field {
		case "from":
			if h.From == "" {
				h.From = value
			}
		case "to":
			if len(h.To) == 0 {
				h.To = ParseList(value)
			}
		case "subject":
			if h.Subject == "" {
				h.Subject = value
			}
		case "date", "sent":
			if h.Date == "" {
				h.Date = value
			}
		case "message-id":
			if h.MessageID == "" {
				h.MessageID = strings.Trim(value, "<>")
			}
		}
	}
}

// ParseList splits a recipient list on commas and semicolons and returns
// the bare addresses. Entries without an @ are dropped.
func ParseList(s string) []string {
	var out []string
	for _, part := range listSeparator.Split(s, -1) {
		_, addr := ParseAddress(part)
		if strings.Contains(addr, "@") {
			out = append(out, addr)
		}
	}
	return out
}

// ParseAddress splits `Name <addr>` or a bare address into its display name
// and address.
func ParseAddress(s string) (name, addr string) {
	s = strings.TrimSpace(s)
	if a, err := mail.ParseAddress(s); err == nil {
		return a.Name, a.Address
	}
	if i := strings.LastIndexByte(s, '<'); i >= 0 && strings.HasSuffix(s, ">") {
		return strings.Trim(strings.TrimSpace(s[:i]), `"`), strings.TrimSpace(s[i+1 : len(s)-1])
	}
	return "", strings.Trim(s, "<>")
}

// IsInlineImage reports whether src points at an attachment embedded in the
// message rather than a remote resource.
func IsInlineImage(src string) bool {
	lower := strings.ToLower(strings.TrimSpace(src))
	for _, p := range []string{"cid:", "data:", "blob:"} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return strings.Contains(lower, "image001") || strings.Contains(lower, "image002")
}
