package checksum

import "testing"

func TestSum(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	c := Sum([]byte("hello!"))

	if a != b {
		t.Error("same content must produce the same checksum")
	}
	if a == c {
		t.Error("different content must produce different checksums")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64 hex chars", len(a))
	}
}
