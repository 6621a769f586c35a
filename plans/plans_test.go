package plans

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/ByLCY/parchment/errs"
)

func TestNames(t *testing.T) {
	want := []string{"blank", "letter", "summary", "template"}
	if got := Names(); !slices.Equal(got, want) {
		t.Fatalf("unexpected plan names %v", got)
	}
}

func TestMatch(t *testing.T) {
	cases := map[string]language.Tag{
		"de-AT": language.German,
		"en-GB": language.English,
		"fr":    language.German,
		"":      language.German,
		"!!":    language.German,
	}
	for in, want := range cases {
		if got := Match(in); got != want {
			t.Fatalf("Match(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEveryPlanParses(t *testing.T) {
	for _, name := range Names() {
		for _, locale := range []string{"de", "en"} {
			doc, _, err := Load(name, locale)
			if err != nil {
				t.Fatalf("%s/%s: %v", name, locale, err)
			}
			if doc.Name != name {
				t.Fatalf("%s/%s: plan declares name %q", name, locale, doc.Name)
			}
		}
	}
}

func TestSourcePicksLanguage(t *testing.T) {
	de, _, err := Source("letter", "de-DE")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	en, tag, err := Source("letter", "en-US")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if tag != language.English || !strings.Contains(string(en), "How Letters") || !strings.Contains(string(de), "Wie früher") {
		t.Fatalf("locale selection failed")
	}
	// blank 没有语言版本，任何语言都回退到 blank.plan
	if _, _, err := Source("blank", "en"); err != nil {
		t.Fatalf("blank fallback: %v", err)
	}
	if _, _, err := Source("missing", "de"); !errors.Is(err, errs.ErrResourceUnavailable) {
		t.Fatalf("expected ResourceUnavailable, got %v", err)
	}
}
