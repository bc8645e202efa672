// Package sfid normalizes Salesforce record identifiers.
//
// A record ID has a 15-character case-sensitive form and an 18-character form
// that appends a three-character checksum encoding the case of the first 15
// characters. The 18-character form is safe to compare case-insensitively.
// Normalize maps every encoding of the same record onto one canonical string.
package sfid

import "strings"

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"

// Normalize returns the canonical 18-character form of id.
//
// Surrounding whitespace is trimmed. A 15-character ID gains its checksum
// suffix; an 18-character ID has the case of its first 15 characters restored
// from the suffix, so a lower- or upper-cased copy maps onto the original.
// Values that are not record IDs are returned trimmed and otherwise untouched.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	switch len(id) {
	case 15:
		if !alnum(id) {
			return id
		}
		return id + suffix(id)
	case 18:
		base, ok := restoreCase(id)
		if !ok {
			return id
		}
		return base + suffix(base)
	default:
		return id
	}
}

// To18 converts a 15-character ID to its 18-character form.
// Any other input is returned as Normalize would return it.
func To18(id string) string {
	return Normalize(id)
}

// To15 returns the case-sensitive 15-character form of id,
// or the trimmed input when it is not a record ID.
func To15(id string) string {
	n := Normalize(id)
	if len(n) == 18 && Valid(n) {
		return n[:15]
	}
	return n
}

// Valid reports whether id (after trimming) is a well-formed 15- or 18-character ID.
func Valid(id string) bool {
	id = strings.TrimSpace(id)
	switch len(id) {
	case 15:
		return alnum(id)
	case 18:
		_, ok := restoreCase(id)
		return ok
	default:
		return false
	}
}

// Equal reports whether a and b identify the same record.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

func suffix(id15 string) string {
	var b strings.Builder
	b.Grow(3)
	for chunk := 0; chunk < 3; chunk++ {
		bits := 0
		for j := 0; j < 5; j++ {
			c := id15[chunk*5+j]
			if c >= 'A' && c <= 'Z' {
				bits |= 1 << j
			}
		}
		b.WriteByte(suffixAlphabet[bits])
	}
	return b.String()
}

// restoreCase decodes the checksum of an 18-character ID and applies it to the
// first 15 characters.
func restoreCase(id18 string) (string, bool) {
	if !alnum(id18) {
		return "", false
	}

	base := []byte(id18[:15])
	sfx := strings.ToUpper(id18[15:])
	for chunk := 0; chunk < 3; chunk++ {
		bits := strings.IndexByte(suffixAlphabet, sfx[chunk])
		if bits < 0 {
			return "", false
		}
		for j := 0; j < 5; j++ {
			i := chunk*5 + j
			if bits&(1<<j) != 0 {
				base[i] = upper(base[i])
			} else {
				base[i] = lower(base[i])
			}
		}
	}
	return string(base), true
}

func alnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}
