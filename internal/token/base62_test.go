package token

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		input    uint64
		expected string
	}{
		{"zero", 0, "0"},
		{"single digit", 5, "5"},
		{"ten becomes 'a'", 10, "a"},
		{"thirty-six becomes 'A'", 36, "A"},
		{"sixty-one becomes 'Z'", 61, "Z"},
		{"sixty-two becomes '10'", 62, "10"},
		{"large number", 12345, "3d7"},
		{"realistic ID", 123456789, "8m0Kx"},
		{"max uint64", ^uint64(0), "lYGhA16ahyf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Encode(tt.input)
			if result != tt.expected {
				t.Errorf("Encode(%d) = %s; want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc123", true},
		{"ZZZZZZ", true},
		{"abc12", false},
		{"abc1234", false},
		{"abc-12", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValid(tt.input); got != tt.want {
				t.Errorf("IsValid(%q) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}
