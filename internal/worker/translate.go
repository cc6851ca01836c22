package worker

import (
	"context"
	"unicode"
)

// containsCJK reports whether s has any CJK Unified Ideographs, Hangul or
// Hiragana/Katakana runes, the trigger for the translation side-pass.
func containsCJK(s string) bool {
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r),
			unicode.Is(unicode.Hangul, r),
			unicode.Is(unicode.Hiragana, r),
			unicode.Is(unicode.Katakana, r):
			return true
		}
	}
	return false
}

// maybeTranslate runs the translation side-pass of §4.4: if prompt
// contains CJK characters and translation is enabled, the translator
// pipeline's English output is used for the model call. Returns
// (modelPrompt, originalPrompt). The stored task row keeps the original
// prompt because the API persists it before enqueueing; the TaskResult the
// dispatcher writes has no prompt field, so the original prompt is not
// carried in the result payload.
func (d *Dispatcher) maybeTranslate(ctx context.Context, prompt string) (string, string, error) {
	if !d.TranslateEnabled || prompt == "" || !containsCJK(prompt) {
		return prompt, prompt, nil
	}

	pipeline, err := d.Pipelines.Get(ctx, PipelineTranslate)
	if err != nil {
		return prompt, prompt, err
	}
	out, err := pipeline.Call(ctx, map[string]any{"text": prompt, "target_lang": "en"})
	if err != nil {
		return prompt, prompt, err
	}
	if len(out) == 0 {
		return prompt, prompt, nil
	}
	return string(out[0]), prompt, nil
}
