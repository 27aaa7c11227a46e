package utils

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"hello", 0, ""},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.n); got != c.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestHashStable(t *testing.T) {
	a := HashBytesToUint64([]byte("photo-1"))
	if a != HashBytesToUint64([]byte("photo-1")) {
		t.Fatalf("expected stable hash")
	}
	if a == HashBytesToUint64([]byte("photo-2")) {
		t.Fatalf("expected distinct inputs to differ")
	}
}
