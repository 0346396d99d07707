package token

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const base = uint64(len(alphabet))

// Encode converts a number to a base62 string
func Encode(num uint64) string {
	if num == 0 {
		return string(alphabet[0])
	}

	buf := make([]byte, 0, 11)
	for num > 0 {
		buf = append(buf, alphabet[num%base])
		num /= base
	}

	// digits were produced least significant first
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// IsValid reports whether s is a well-formed token: Length characters of the
// base62 alphabet.
func IsValid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlphabetChar(s[i]) {
			return false
		}
	}
	return true
}

func isAlphabetChar(c byte) bool {
	return (c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
