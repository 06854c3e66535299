package evaluator

import "testing"

func TestAccuracy_PenalizesLeftoverArabic(t *testing.T) {
	clean := accuracy("This is a clean English sentence.", 0.9)
	dirty := accuracy("This is مرحبا a mixed sentence.", 0.9)
	if dirty >= clean {
		t.Errorf("expected leftover Arabic script to lower accuracy: clean=%v dirty=%v", clean, dirty)
	}
}

func TestAccuracy_EmptyOutput(t *testing.T) {
	if got := accuracy("", 0.9); got != 0 {
		t.Errorf("expected 0 for empty output, got %v", got)
	}
}

func TestCompleteness_SimilarLength(t *testing.T) {
	source := "هذا نص طويل إلى حد ما يحتوي على عدة جمل. وهذه جملة ثانية."
	output := "This is a fairly long piece of text with several sentences. And this is a second sentence."
	got := completeness(source, output)
	if got < 0.5 {
		t.Errorf("expected reasonable completeness for similarly sized output, got %v", got)
	}
}

func TestCompleteness_Truncated(t *testing.T) {
	source := "هذا نص طويل إلى حد ما يحتوي على عدة جمل وفقرات متعددة ومعلومات كثيرة جدا ومفصلة."
	truncated := completeness(source, "Short.")
	full := completeness(source, "This is a long piece of text that mirrors the length and structure of the source fairly closely overall.")
	if truncated >= full {
		t.Errorf("expected truncated output to score lower: truncated=%v full=%v", truncated, full)
	}
}

func TestFluency_EmptyOutput(t *testing.T) {
	if got := fluency(""); got != 0.3 {
		t.Errorf("expected 0.3 for output with no sentences, got %v", got)
	}
}

func TestFluency_CapitalizedSentences(t *testing.T) {
	capitalized := fluency("This is a sentence. Another one follows here today. And a third one too.")
	lowercase := fluency("this is a sentence. another one follows here today. and a third one too.")
	if capitalized <= lowercase {
		t.Errorf("expected capitalized sentences to score higher: capitalized=%v lowercase=%v", capitalized, lowercase)
	}
}

func TestConsistency_ShortTextDefault(t *testing.T) {
	if got := consistency("too short"); got != 0.8 {
		t.Errorf("expected 0.8 default for short text, got %v", got)
	}
}

func TestConsistency_PenalizesRepetition(t *testing.T) {
	repetitive := "the cat sat the cat sat the cat sat the cat sat the cat sat the cat sat"
	varied := "the quick fox jumped over the lazy dog while birds sang loudly in the trees above"
	if consistency(repetitive) >= consistency(varied) {
		t.Errorf("expected repetitive text to score lower than varied text")
	}
}

func TestCrossAgreement_NoPeers(t *testing.T) {
	if got := crossAgreement("hello world", nil); got != 0.5 {
		t.Errorf("expected 0.5 with no peers, got %v", got)
	}
}

func TestCrossAgreement_IdenticalPeer(t *testing.T) {
	got := crossAgreement("hello world", []string{"hello world"})
	if got != 1.0 {
		t.Errorf("expected 1.0 for identical peer text, got %v", got)
	}
}

func TestJaccard_Disjoint(t *testing.T) {
	if got := jaccard("alpha beta", "gamma delta"); got != 0.0 {
		t.Errorf("expected 0.0 for disjoint word sets, got %v", got)
	}
}

func TestJaccard_BothEmpty(t *testing.T) {
	if got := jaccard("", ""); got != 1.0 {
		t.Errorf("expected 1.0 when both inputs are empty, got %v", got)
	}
}
