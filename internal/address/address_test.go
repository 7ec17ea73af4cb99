package address

import (
	"testing"
)

func TestQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "PlainLocalPart", in: "user", want: "user"},
		{name: "KeepsSafeSymbols", in: "a+b_c-d@e", want: "a+b_c-d@e"},
		{name: "Domain", in: "example.com", want: "example.com"},
		{name: "LeadingDot", in: ".hidden", want: "%2ehidden"},
		{name: "CurrentDirectory", in: ".", want: "%2e"},
		{name: "ParentDirectory", in: "..", want: "%2e."},
		{name: "Slash", in: "a/b", want: "a%2Fb"},
		{name: "Percent", in: "100%", want: "100%25"},
		{name: "Space", in: "a b", want: "a%20b"},
		{name: "HighBytes", in: "\xff\x00", want: "%FF%00"},
		{name: "Empty", in: "", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Quote(tc.in); got != tc.want {
				t.Fatalf("Quote(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestQuoteNeverStartsWithDot(t *testing.T) {
	t.Parallel()

	for _, in := range []string{".", "..", ".a", "...x@y"} {
		if got := Quote(in); len(got) > 0 && got[0] == '.' {
			t.Fatalf("Quote(%q) = %q starts with a dot", in, got)
		}
	}
}

func TestUnquote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "example%2Ecom", want: "example.com"},
		{in: "example.com", want: "example.com"},
		{in: "%2ehidden", want: ".hidden"},
		{in: "no-escapes", want: "no-escapes"},
		{in: "trailing%", want: "trailing%"},
		{in: "short%4", want: "short%4"},
		{in: "bad%zzhex", want: "bad%zzhex"},
	}

	for _, tc := range tests {
		if got := Unquote(tc.in); got != tc.want {
			t.Fatalf("Unquote(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"user@example.com",
		".leading.dot",
		"%2e",
		"100%",
		"with space/and/slash",
		"unicode-é-ü",
		"\x00\x01\x7f\x80\xfe\xff",
	}
	for b := 0; b < 256; b++ {
		inputs = append(inputs, string([]byte{byte(b)}), "x"+string([]byte{byte(b)})+"%")
	}

	for _, in := range inputs {
		if got := Unquote(Quote(in)); got != in {
			t.Fatalf("round trip mismatch: %q -> %q -> %q", in, Quote(in), got)
		}
	}
}

func FuzzRoundTrip(f *testing.F) {
	f.Add("user@example.com")
	f.Add(".x")
	f.Add("%%41")
	f.Fuzz(func(t *testing.T, s string) {
		if got := Unquote(Quote(s)); got != s {
			t.Fatalf("round trip mismatch for %q: got %q", s, got)
		}
	})
}
