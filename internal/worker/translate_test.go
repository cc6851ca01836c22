package worker

import (
	"context"
	"testing"
)

func TestContainsCJK(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"a cat sitting on a wall", false},
		{"고양이", true},
		{"猫", true},
		{"ねこ", true},
		{"ネコ", true},
		{"", false},
		{"hello 世界", true},
	}
	for _, c := range cases {
		if got := containsCJK(c.in); got != c.want {
			t.Errorf("containsCJK(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestMaybeTranslate_Disabled(t *testing.T) {
	d := &Dispatcher{Pipelines: NewRegistry(), TranslateEnabled: false}
	model, original, err := d.maybeTranslate(context.Background(), "고양이")
	if err != nil {
		t.Fatalf("maybeTranslate: %v", err)
	}
	if model != "고양이" || original != "고양이" {
		t.Fatalf("expected passthrough when disabled, got model=%q original=%q", model, original)
	}
}

func TestMaybeTranslate_NoCJK(t *testing.T) {
	d := &Dispatcher{Pipelines: NewRegistry(), TranslateEnabled: true}
	model, original, err := d.maybeTranslate(context.Background(), "a cat")
	if err != nil {
		t.Fatalf("maybeTranslate: %v", err)
	}
	if model != "a cat" || original != "a cat" {
		t.Fatalf("expected passthrough for ASCII prompt, got model=%q original=%q", model, original)
	}
}

type fakeTranslatePipeline struct{ translated string }

func (p fakeTranslatePipeline) Load(ctx context.Context) error    { return nil }
func (p fakeTranslatePipeline) Cleanup(ctx context.Context) error { return nil }
func (p fakeTranslatePipeline) Call(ctx context.Context, params map[string]any) ([][]byte, error) {
	return [][]byte{[]byte(p.translated)}, nil
}

func TestMaybeTranslate_CallsTranslator(t *testing.T) {
	reg := NewRegistry()
	reg.Register(PipelineTranslate, func() Pipeline { return fakeTranslatePipeline{translated: "a cat"} })
	d := &Dispatcher{Pipelines: reg, TranslateEnabled: true}

	model, original, err := d.maybeTranslate(context.Background(), "고양이")
	if err != nil {
		t.Fatalf("maybeTranslate: %v", err)
	}
	if model != "a cat" {
		t.Fatalf("expected translated model prompt, got %q", model)
	}
	if original != "고양이" {
		t.Fatalf("expected original prompt preserved, got %q", original)
	}
}
