package peerset

import "testing"

func TestInsertExcludesSelf(t *testing.T) {
	s := New("127.0.0.1:7192")
	s.Insert("127.0.0.1:7192")
	s.Insert("127.0.0.1:9000")
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1 (self excluded)", s.Len())
	}
}

func TestExtendAndRemove(t *testing.T) {
	s := New("self")
	s.Extend([]string{"a", "b", "self", "c"})
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	s.Remove("b")
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	for _, addr := range s.All() {
		if addr == "b" {
			t.Fatal("removed address still present")
		}
	}
}
