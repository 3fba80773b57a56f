package auth

import "testing"

func TestValidRegNumber(t *testing.T) {
	cases := map[string]bool{
		"2012345": true,
		"2099999": true,
		"1912345": false,
		"201234":  false,
		"abcdefg": false,
	}
	for in, want := range cases {
		if got := validRegNumber(in); got != want {
			t.Errorf("validRegNumber(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidPhoneNumber(t *testing.T) {
	cases := map[string]bool{
		"+923001234567": true,
		"+14155552671":  true,
		"923001234567":  false,
		"+1":            false,
		"":               false,
	}
	for in, want := range cases {
		if got := validPhoneNumber(in); got != want {
			t.Errorf("validPhoneNumber(%q) = %v, want %v", in, got, want)
		}
	}
}
