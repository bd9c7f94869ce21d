package script

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_Plain(t *testing.T) {
	text := "NARRATOR: In 2019, John Smith ran the Riverside Fund.\n\n" +
		"Former employees say the money vanished.\r\n" +
		"[INTERVIEW]: I saw Jane Doe shred the ledgers.\n"

	s, err := Parse("", text, "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Format != FormatPlain {
		t.Errorf("format = %s", s.Format)
	}
	want := []Line{
		{Number: 1, Speaker: "NARRATOR", Text: "In 2019, John Smith ran the Riverside Fund."},
		{Number: 2, Text: "Former employees say the money vanished."},
		{Number: 3, Speaker: "INTERVIEW", Text: "I saw Jane Doe shred the ledgers."},
	}
	if diff := cmp.Diff(want, s.Lines); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"INTERVIEW", "NARRATOR"}, s.Speakers); diff != "" {
		t.Errorf("speakers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"John Smith", "Riverside Fund", "Jane Doe"}, s.People); diff != "" {
		t.Errorf("people (-want +got):\n%s", diff)
	}
	if s.Title != "In 2019, John Smith ran the Riverside Fund." {
		t.Errorf("title = %q", s.Title)
	}
	if s.WordCount != 21 {
		t.Errorf("word count = %d", s.WordCount)
	}
}

func TestParse_SRT(t *testing.T) {
	text := "1\n00:00:01,000 --> 00:00:04,000\n<i>He was never charged.</i>\n\n2\n00:00:05,000 --> 00:00:07,500\nBut everyone knew.\n"
	if Detect(text) != FormatSRT {
		t.Fatal("expected SRT detection")
	}
	s, err := Parse("Ep 1", text, "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var got []string
	for _, l := range s.Lines {
		got = append(got, l.Text)
	}
	if diff := cmp.Diff([]string{"He was never charged.", "But everyone knew."}, got); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
	if s.Title != "Ep 1" {
		t.Errorf("title = %q", s.Title)
	}
}

func TestParse_Markdown(t *testing.T) {
	s, err := Parse("", "# Cold Open\n\n- **Mary Jones** was fired.\n> quote", "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Format != FormatMarkdown {
		t.Fatalf("format = %s", s.Format)
	}
	if s.Lines[1].Text != "Mary Jones was fired." || s.Lines[2].Text != "quote" {
		t.Errorf("markdown not stripped: %+v", s.Lines)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse("t", " \n\t\n", ""); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := Parse("t", "1\n00:00:01,000 --> 00:00:02,000\n", FormatSRT); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty for markup-only SRT, got %v", err)
	}
}

func TestNumbered(t *testing.T) {
	s, _ := Parse("", "NARRATOR: one\ntwo", FormatPlain)
	got := s.Numbered()
	if !strings.HasPrefix(got, "1: NARRATOR: one\n2: two\n") {
		t.Errorf("Numbered = %q", got)
	}
}

func TestFormatFromExt(t *testing.T) {
	if FormatFromExt(".SRT") != FormatSRT || FormatFromExt("md") != FormatMarkdown || FormatFromExt(".docx") != "" {
		t.Error("unexpected extension mapping")
	}
}
