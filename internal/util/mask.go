// Package util tiene helpers chicos sin dueño mejor.
package util

import "strings"

// MaskEmail reduce una dirección a una forma segura para logs:
// "carol@example.com" ⇒ "c…@e….com". Los logs de auth no deben filtrar
// direcciones completas.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	user, dom, ok := strings.Cut(s, "@")
	if !ok || user == "" {
		return maskOpaque(s)
	}
	labels := strings.Split(dom, ".")
	labels[0] = truncate(labels[0])
	return truncate(user) + "@" + strings.Join(labels, ".")
}

// maskOpaque cubre lo que no parsea como dirección pero igual puede ser
// identificante.
func maskOpaque(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 3:
		return "***"
	default:
		return s[:1] + "…" + s[len(s)-1:]
	}
}

func truncate(label string) string {
	if len(label) <= 1 {
		return label
	}
	return label[:1] + "…"
}
