package epub

import (
	"reflect"
	"strings"
	"testing"
)

func TestLoadContent(t *testing.T) {
	xhtmlContent := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:xlink="http://www.w3.org/1999/xlink">
<head>
	<title> Chapter 1 </title>
	<link rel="stylesheet" href="../css/style.css"/>
	<link rel="stylesheet" href="local.css"/>
</head>
<body>
	<h1 id="top">Chapter 1</h1>
	<p>This is a sample paragraph.</p>
	<img src="../images/photo.jpg" alt="Sample photo"/>
	<section id="s1"><p id="p1">Inner</p></section>
	<svg xmlns="http://www.w3.org/2000/svg"><image xlink:href="diagrams/chart.png"/></svg>
</body>
</html>`

	content, err := LoadContent("chapter1", "text/chapter1.xhtml", []byte(xhtmlContent))
	if err != nil {
		t.Fatalf("LoadContent failed: %v", err)
	}

	if content.ID != "chapter1" || content.Path != "text/chapter1.xhtml" {
		t.Errorf("ID/Path = %q/%q", content.ID, content.Path)
	}
	if content.Title != "Chapter 1" {
		t.Errorf("Title = %q, want %q", content.Title, "Chapter 1")
	}

	wantCSS := []string{"css/style.css", "text/local.css"}
	if !reflect.DeepEqual(content.CSSLinks, wantCSS) {
		t.Errorf("CSSLinks = %v, want %v", content.CSSLinks, wantCSS)
	}

	wantImages := []string{"images/photo.jpg", "text/diagrams/chart.png"}
	if !reflect.DeepEqual(content.ImageRefs, wantImages) {
		t.Errorf("ImageRefs = %v, want %v", content.ImageRefs, wantImages)
	}

	wantAnchors := []string{"top", "s1", "p1"}
	if !reflect.DeepEqual(content.Anchors, wantAnchors) {
		t.Errorf("Anchors = %v, want %v", content.Anchors, wantAnchors)
	}

	if text := content.Document.Find("body p").First().Text(); !strings.Contains(text, "sample paragraph") {
		t.Errorf("Document body text = %q", text)
	}
}

func TestLoadContent_Empty(t *testing.T) {
	content, err := LoadContent("empty", "empty.xhtml", []byte(`<html><body></body></html>`))
	if err != nil {
		t.Fatalf("LoadContent failed: %v", err)
	}
	if len(content.CSSLinks) != 0 || len(content.ImageRefs) != 0 || len(content.Anchors) != 0 {
		t.Errorf("expected no references, got %+v", content)
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		baseDir string
		relPath string
		want    string
	}{
		{baseDir: "text", relPath: "../images/photo.jpg", want: "images/photo.jpg"},
		{baseDir: "text", relPath: "chapter2.xhtml#sec", want: "text/chapter2.xhtml"},
		{baseDir: ".", relPath: "style.css", want: "style.css"},
		{baseDir: "OEBPS/text", relPath: "./a/./b.png", want: "OEBPS/text/a/b.png"},
	}

	for _, tt := range tests {
		if got := ResolvePath(tt.baseDir, tt.relPath); got != tt.want {
			t.Errorf("ResolvePath(%q, %q) = %q, want %q", tt.baseDir, tt.relPath, got, tt.want)
		}
	}
}
