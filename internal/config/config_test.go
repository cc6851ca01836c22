package config

import (
	"testing"
	"time"
)

func TestStr_DefaultWhenUnset(t *testing.T) {
	t.Setenv("CONFIG_TEST_STR", "")
	if got := Str("CONFIG_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("Str = %q, want fallback", got)
	}
	t.Setenv("CONFIG_TEST_STR", "value")
	if got := Str("CONFIG_TEST_STR", "fallback"); got != "value" {
		t.Errorf("Str = %q, want value", got)
	}
}

func TestInt_InvalidFallsBackToDefault(t *testing.T) {
	t.Setenv("CONFIG_TEST_INT", "not-a-number")
	if got := Int("CONFIG_TEST_INT", 7); got != 7 {
		t.Errorf("Int = %d, want default 7 on parse failure", got)
	}
	t.Setenv("CONFIG_TEST_INT", "42")
	if got := Int("CONFIG_TEST_INT", 7); got != 42 {
		t.Errorf("Int = %d, want 42", got)
	}
}

func TestBool_ParsesCommonForms(t *testing.T) {
	t.Setenv("CONFIG_TEST_BOOL", "true")
	if got := Bool("CONFIG_TEST_BOOL", false); !got {
		t.Error("expected true")
	}
	t.Setenv("CONFIG_TEST_BOOL", "0")
	if got := Bool("CONFIG_TEST_BOOL", true); got {
		t.Error("expected false")
	}
}

func TestDuration_InvalidFallsBackToDefault(t *testing.T) {
	t.Setenv("CONFIG_TEST_DURATION", "nonsense")
	if got := Duration("CONFIG_TEST_DURATION", 5*time.Second); got != 5*time.Second {
		t.Errorf("Duration = %v, want default 5s", got)
	}
	t.Setenv("CONFIG_TEST_DURATION", "90s")
	if got := Duration("CONFIG_TEST_DURATION", 5*time.Second); got != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", got)
	}
}

func TestList_SplitsAndTrims(t *testing.T) {
	t.Setenv("CONFIG_TEST_LIST", "a, b ,c")
	got := List("CONFIG_TEST_LIST", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List = %v, want %v", got, want)
		}
	}
}

func TestObjectStoreSecure_PrefersMinioSecure(t *testing.T) {
	t.Setenv("MINIO_SECURE", "true")
	t.Setenv("MINIO_USE_SSL", "false")
	if got := ObjectStoreSecure(false); !got {
		t.Error("expected MINIO_SECURE to take precedence and resolve true")
	}
}

func TestObjectStoreSecure_FallsBackToUseSSL(t *testing.T) {
	t.Setenv("MINIO_SECURE", "")
	t.Setenv("MINIO_USE_SSL", "true")
	if got := ObjectStoreSecure(false); !got {
		t.Error("expected MINIO_USE_SSL fallback to resolve true")
	}
}

func TestObjectStoreSecure_DefaultWhenNeitherSet(t *testing.T) {
	t.Setenv("MINIO_SECURE", "")
	t.Setenv("MINIO_USE_SSL", "")
	if got := ObjectStoreSecure(true); !got {
		t.Error("expected default to be returned when neither flag is set")
	}
}
