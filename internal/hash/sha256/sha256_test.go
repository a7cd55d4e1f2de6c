package sha256

import "testing"

func TestHasherKeyIsDigestPrefix(t *testing.T) {
	t.Parallel()

	h := New()
	key := h.Key("hello world")
	if key != "b94d27b9934d3e08" {
		t.Fatalf("unexpected key %q", key)
	}
	if len(key) != ArtifactKeyLength {
		t.Fatalf("expected %d characters, got %d", ArtifactKeyLength, len(key))
	}
	if h.Key("https://m.example.com/a") == h.Key("https://m.example.com/b") {
		t.Fatal("expected distinct keys for distinct addresses")
	}
}
