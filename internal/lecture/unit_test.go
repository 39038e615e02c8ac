package lecture

import "testing"

func TestHasVideo(t *testing.T) {
	unit := &Unit{VideoSource: "https://live.example.edu/streams/abc"}
	if !unit.HasVideo() {
		t.Fatal("expected video")
	}
	unit.VideoSource = "   "
	if unit.HasVideo() {
		t.Fatal("blank source is not a video")
	}
}

func TestHasPDF(t *testing.T) {
	cases := map[string]bool{
		"https://files.example.edu/slides.pdf": true,
		"https://files.example.edu/slides.PDF": true,
		"https://files.example.edu/slides.png": false,
		"":                                     false,
	}
	for link, want := range cases {
		unit := &Unit{AttachmentLink: link}
		if got := unit.HasPDF(); got != want {
			t.Errorf("HasPDF(%q) = %v, want %v", link, got, want)
		}
	}
}

func TestHasContent(t *testing.T) {
	var unit *Unit
	if unit.HasContent() {
		t.Fatal("nil unit has no content")
	}
	unit = &Unit{}
	if unit.HasContent() {
		t.Fatal("empty unit has no content")
	}
	unit.AttachmentLink = "slides.pdf"
	if !unit.HasContent() {
		t.Fatal("PDF attachment is content")
	}
}
