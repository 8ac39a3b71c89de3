package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSource_Kinds(t *testing.T) {
	tests := []struct {
		name     string
		src      Source
		zero     bool
		blob     bool
		hasData  bool
		wantName string
	}{
		{"zero", Source{}, true, false, false, "(bytes)"},
		{"path", Ref("/docs/form.pdf"), false, false, false, "form.pdf"},
		{"url", Ref("https://example.com/a/b.pdf"), false, false, false, "b.pdf"},
		{"blob", Source{Ref: "blob:123", Name: "up.pdf"}, false, true, false, "up.pdf"},
		{"bytes", Bytes("mem.pdf", []byte("%PDF")), false, false, true, "mem.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.src.IsZero(); got != tt.zero {
				t.Errorf("IsZero() = %v, want %v", got, tt.zero)
			}
			if got := tt.src.IsBlob(); got != tt.blob {
				t.Errorf("IsBlob() = %v, want %v", got, tt.blob)
			}
			if got := tt.src.HasData(); got != tt.hasData {
				t.Errorf("HasData() = %v, want %v", got, tt.hasData)
			}
			if got := tt.src.DisplayName(); got != tt.wantName {
				t.Errorf("DisplayName() = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestSource_Equal(t *testing.T) {
	if !Ref("a.pdf").Equal(Ref("a.pdf")) {
		t.Error("equal refs should compare equal")
	}
	if Ref("a.pdf").Equal(Ref("b.pdf")) {
		t.Error("different refs should not compare equal")
	}
	if Bytes("x", []byte("1")).Equal(Bytes("x", []byte("2"))) {
		t.Error("different bytes should not compare equal")
	}
	if Bytes("x", []byte("1")).Equal(Source{Name: "x"}) {
		t.Error("bytes and no bytes should not compare equal")
	}
}

func TestStore_RegisterFetchRevoke(t *testing.T) {
	s := NewStore()
	src := s.Register("up.pdf", []byte("content"))

	if !strings.HasPrefix(src.Ref, BlobScheme) {
		t.Fatalf("ref = %q, want %q prefix", src.Ref, BlobScheme)
	}
	if !src.IsBlob() {
		t.Error("registered source should be a blob handle")
	}

	data, err := s.Fetch(context.Background(), src.Ref)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "content" {
		t.Errorf("Fetch() = %q, want %q", data, "content")
	}

	s.Revoke(src.Ref)
	if _, err := s.Fetch(context.Background(), src.Ref); !errors.Is(err, ErrUnknownBlob) {
		t.Errorf("Fetch(revoked) error = %v, want ErrUnknownBlob", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestStore_HandlesAreDistinct(t *testing.T) {
	s := NewStore()
	a := s.Register("a", nil)
	b := s.Register("a", nil)
	if a.Ref == b.Ref {
		t.Errorf("two registrations produced the same handle %q", a.Ref)
	}
}

func TestStore_FetchCancelled(t *testing.T) {
	s := NewStore()
	src := s.Register("a", []byte("x"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Fetch(ctx, src.Ref); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestStore_RegisterFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "upload.pdf")
	if err := os.WriteFile(p, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	src, err := s.RegisterFile(p)
	if err != nil {
		t.Fatalf("RegisterFile() error = %v", err)
	}
	if src.Name != "upload.pdf" {
		t.Errorf("name = %q, want %q", src.Name, "upload.pdf")
	}

	if _, err := s.RegisterFile(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("RegisterFile(missing) should return error")
	}
}
