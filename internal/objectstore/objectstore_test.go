package objectstore

import "testing"

func TestImageKey_Deterministic(t *testing.T) {
	key := ImageKey("user-1", "task-1", "uuid-1")
	want := "images/user-1/task-1/uuid-1.png"
	if key != want {
		t.Errorf("ImageKey = %q, want %q", key, want)
	}
}

func TestMaskKey_Deterministic(t *testing.T) {
	key := MaskKey("user-1", "task-1", "uuid-1")
	want := "masks/user-1/task-1/uuid-1.png"
	if key != want {
		t.Errorf("MaskKey = %q, want %q", key, want)
	}
}

func TestExternalURL(t *testing.T) {
	a := &Adapter{bucket: "zimage-images", externalURL: "https://cdn.example.com"}
	got := a.ExternalURL("images/u/t/i.png")
	want := "https://cdn.example.com/zimage-images/images/u/t/i.png"
	if got != want {
		t.Errorf("ExternalURL = %q, want %q", got, want)
	}
}
