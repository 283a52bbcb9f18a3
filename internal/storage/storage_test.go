package storage

import "testing"

func TestPutGet(t *testing.T) {
	s := New()
	s.Put("a", []byte("hello"))

	v, err := s.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "hello" {
		t.Errorf("Get(a) = %q, want hello", v)
	}
}

func TestGetMissing(t *testing.T) {
	s := New()
	if _, err := s.Get("missing"); err == nil {
		t.Errorf("Get(missing) = nil, want error")
	}
}

func TestDelete(t *testing.T) {
	s := New()
	s.Put("a", []byte("1"))
	s.Delete("a")
	if _, err := s.Get("a"); err == nil {
		t.Errorf("Get(a) after Delete = nil, want error")
	}
	// Deleting an absent key is a no-op, not an error.
	s.Delete("a")
}

func TestPutOverwrite(t *testing.T) {
	s := New()
	s.Put("a", []byte("1"))
	s.Put("a", []byte("2"))
	v, _ := s.Get("a")
	if string(v) != "2" {
		t.Errorf("Get(a) = %q, want 2", v)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	s.Put("a", []byte("hello"))
	v, _ := s.Get("a")
	v[0] = 'X'

	v2, _ := s.Get("a")
	if string(v2) != "hello" {
		t.Errorf("mutating Get's result affected stored value: %q", v2)
	}
}

func TestKeysAndLen(t *testing.T) {
	s := New()
	s.Put("a", []byte("1"))
	s.Put("b", []byte("2"))
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if len(s.Keys()) != 2 {
		t.Errorf("len(Keys()) = %d, want 2", len(s.Keys()))
	}
}
