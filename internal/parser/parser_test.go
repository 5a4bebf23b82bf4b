package parser

import (
	"slices"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	r := Parse("---\ntitle: Pricing Review\ntags:\n  - pricing-impact\n  - finance\n---\n# Heading\nBody text #roadmap.\n")
	if r.Title != "Pricing Review" {
		t.Errorf("title = %q, want %q", r.Title, "Pricing Review")
	}
	if !slices.Equal(r.Tags, []string{"pricing-impact", "finance", "roadmap"}) {
		t.Errorf("tags = %v", r.Tags)
	}
	if r.Body != "# Heading\nBody text #roadmap.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse("# Just a heading\nSome text.\n")
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r := Parse("---\n: invalid: yaml: {{{\n---\nBody\n")
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestExtractLinks(t *testing.T) {
	links := extractLinks("See [[DOC-0001]] and [[DOC-0002|the plan]].\nAlso [[DOC-0001]] and [[ ]].")
	if !slices.Equal(links, []string{"DOC-0001", "DOC-0002"}) {
		t.Errorf("links = %v", links)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	fm := map[string]any{"title": "Onboarding Guide", "tags": []string{"onboarding"}}
	out, err := Render(fm, "Welcome. See [[DOC-0003]].\n")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	r := Parse(out)
	if r.Title != "Onboarding Guide" {
		t.Errorf("title = %q", r.Title)
	}
	if !slices.Equal(r.Tags, []string{"onboarding"}) {
		t.Errorf("tags = %v", r.Tags)
	}
	if !slices.Equal(r.Links, []string{"DOC-0003"}) {
		t.Errorf("links = %v", r.Links)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Customer Churn":  "customer-churn",
		"customer_churn":  "customer-churn",
		"  Q3  roadmap! ": "q3-roadmap",
		"":                "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPhrasesContains(t *testing.T) {
	p := NewPhrases("Notes on the Hiring Freeze, Q2")
	if !p.Contains("hiring freeze") {
		t.Error("expected phrase match")
	}
	if NewPhrases("rehiring freezers").Contains("hiring freeze") {
		t.Error("phrase must match on word boundaries")
	}
	if p.Contains("") {
		t.Error("empty phrase never matches")
	}
}
