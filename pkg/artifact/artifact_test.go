package artifact

import "testing"

func TestNew(t *testing.T) {
	a := New("the content", "mock", "mock-1", "the prompt")

	if a.ID == "" {
		t.Error("ID should be generated")
	}
	if a.Hash == "" {
		t.Error("Hash should be computed")
	}
	if a.Content != "the content" || a.Adapter != "mock" || a.Model != "mock-1" {
		t.Errorf("fields not set: %+v", a)
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestHashCoversContentAdapterModel(t *testing.T) {
	a := New("same", "mock", "mock-1", "p")
	b := New("same", "mock", "mock-1", "different prompt")
	if a.Hash != b.Hash {
		t.Error("hash should not depend on the prompt")
	}

	c := New("other", "mock", "mock-1", "p")
	if a.Hash == c.Hash {
		t.Error("hash should change with content")
	}
}

func TestWithMetadata(t *testing.T) {
	a := New("content", "mock", "mock-1", "prompt")
	b := a.WithMetadata("target", "threat_analysis")

	if b.Metadata["target"] != "threat_analysis" {
		t.Errorf("metadata = %v", b.Metadata)
	}
	if _, ok := a.Metadata["target"]; ok {
		t.Error("original artifact must not be mutated")
	}
	if b.ID != a.ID || b.Hash != a.Hash {
		t.Error("identity fields should carry over")
	}
}
