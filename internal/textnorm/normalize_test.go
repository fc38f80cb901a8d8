package textnorm_test

import (
	"testing"

	"shinkan/internal/textnorm"
)

func TestNormalizeTitleEquivalences(t *testing.T) {
	cases := []struct {
		name string
		a    string
		b    string
	}{
		{"full-width digits", "タイトル３", "タイトル3"},
		{"full-width latin", "ＡＢＣ", "ABC"},
		{"greek confusables", "Χステージ", "Xステージ"},
		{"lowercase greek", "αβ", "ab"},
		{"wave dash", "彼女〜後日談", "彼女-後日談"},
		{"em dash", "タイトル—続編", "タイトル-続編"},
		{"full-width bang", "すごい！", "すごい!"},
		{"full-width parens", "タイトル（３）", "タイトル(3)"},
		{"hiragana watashi", "わたしの百合", "私の百合"},
		{"hiragana boku", "ぼくの青春", "僕の青春"},
		{"whitespace runs", "タイトル   続編", "タイトル 続編"},
	}
	for _, tc := range cases {
		got := textnorm.NormalizeTitle(tc.a)
		want := textnorm.NormalizeTitle(tc.b)
		if got != want {
			t.Fatalf("%s: NormalizeTitle(%q) = %q, want %q", tc.name, tc.a, got, want)
		}
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	inputs := []string{
		"ＳＰＹ×ＦＡＭＩＬＹ １１",
		"彼女、お借りします（３８）",
		"わたしの幸せな結婚　八",
		"ダンジョン飯　１４巻",
		"Ｖｏｌ．３　〜外伝〜",
	}
	for _, s := range inputs {
		once := textnorm.NormalizeTitle(s)
		twice := textnorm.NormalizeTitle(once)
		if once != twice {
			t.Fatalf("NormalizeTitle not idempotent for %q: %q vs %q", s, once, twice)
		}
	}
}

func TestNormalizeTitlePreservesLongVowelMark(t *testing.T) {
	got := textnorm.NormalizeTitle("オーバーロード")
	if got != "オーバーロード" {
		t.Fatalf("long vowel mark was altered: %q", got)
	}
}

func TestNormalizeTitleKeepsCase(t *testing.T) {
	got := textnorm.NormalizeTitle("Spy Family")
	if got != "Spy Family" {
		t.Fatalf("case was altered: %q", got)
	}
}
