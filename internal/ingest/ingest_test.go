package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWordsWrapped(t *testing.T) {
	path := writeTemp(t, "words.json", `{"words":[{"text":"As","start":0,"end":200},{"text":"a","start":300,"end":400}]}`)
	words, err := LoadWords(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 {
		t.Fatalf("len = %d, want 2", len(words))
	}
	if words[0].Text != "As" || words[0].EndMS != 200 {
		t.Errorf("first word = %+v", words[0])
	}
}

func TestLoadWordsBareArray(t *testing.T) {
	path := writeTemp(t, "words.json", `[{"text":"boy","start":500,"end":800}]`)
	words, err := LoadWords(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 1 || words[0].StartMS != 500 {
		t.Errorf("words = %+v", words)
	}
}

func TestLoadWordsRejectsGarbage(t *testing.T) {
	path := writeTemp(t, "words.json", `not json at all`)
	if _, err := LoadWords(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadSentencesText(t *testing.T) {
	path := writeTemp(t, "sentences.txt", "First sentence here.\n\n  Second   sentence.  \n")
	got, err := LoadSentences(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"First sentence here.", "Second sentence."}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadSentencesJSON(t *testing.T) {
	path := writeTemp(t, "sentences.json", `["One.", "  Two.  ", ""]`)
	got, err := LoadSentences(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1] != "Two." {
		t.Errorf("got %v", got)
	}
}

func TestLoadSentencesMissingFile(t *testing.T) {
	if _, err := LoadSentences(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected read error")
	}
}
