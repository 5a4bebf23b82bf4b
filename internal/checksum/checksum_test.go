package checksum

import "testing"

func TestSumKnownValue(t *testing.T) {
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != want {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestDigestOrderSensitive(t *testing.T) {
	a := NewDigest()
	_ = a.Add("x")
	_ = a.Add(map[string]int{"b": 2, "a": 1})
	b := NewDigest()
	_ = b.Add("x")
	_ = b.Add(map[string]int{"a": 1, "b": 2})
	if a.Hex() != b.Hex() {
		t.Error("map key order must not change the digest")
	}
	c := NewDigest()
	_ = c.Add(map[string]int{"a": 1, "b": 2})
	_ = c.Add("x")
	if c.Hex() == a.Hex() {
		t.Error("value order must change the digest")
	}
}
