package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zalepa/escolas/school"
)

func TestBar(t *testing.T) {
	tests := []struct {
		v, max, width int
		want          string
	}{
		{0, 10, 10, ""},
		{10, 10, 4, "████"},
		{5, 10, 4, "██"},
		{1, 1000, 4, "▏"},
		{3, 8, 1, "▍"},
	}
	for _, tt := range tests {
		got := bar(tt.v, tt.max, tt.width)
		if got != tt.want {
			t.Errorf("bar(%d, %d, %d) = %q, want %q", tt.v, tt.max, tt.width, got, tt.want)
		}
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		if got := formatInt(tt.in); got != tt.want {
			t.Errorf("formatInt(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPct(t *testing.T) {
	if got := formatPct(2, 3); got != "66.7%" {
		t.Errorf("formatPct(2, 3) = %q", got)
	}
	if got := formatPct(0, 0); got != "- -" {
		t.Errorf("formatPct(0, 0) = %q", got)
	}
}

func TestRenderDistribution(t *testing.T) {
	var buf bytes.Buffer
	renderDistribution(&buf, dependencyTitle, school.Distribution{
		{Category: "Estadual", Count: 2},
		{Category: "Municipal", Count: 1},
	})
	out := buf.String()

	if !strings.HasPrefix(out, "Distribution by dependency (3 schools)") {
		t.Errorf("unexpected header:\n%s", out)
	}
	est := strings.Index(out, "Estadual")
	mun := strings.Index(out, "Municipal")
	if est < 0 || mun < 0 || est > mun {
		t.Errorf("categories missing or out of order:\n%s", out)
	}
	if !strings.Contains(out, "66.7%") || !strings.Contains(out, "33.3%") {
		t.Errorf("shares missing:\n%s", out)
	}
}

func TestRenderDistributionEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderDistribution(&buf, municipalityTitle, school.Distribution{})
	if !strings.Contains(buf.String(), "(no data)") {
		t.Errorf("got %q", buf.String())
	}
}

func TestDisplayText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Escola Estadual", "Escola Estadual"},
		{"<b>EREM</b> Recife", "EREM Recife"},
		{"A & B", "A & B"},
		{"  Olinda ", "Olinda"},
		{`<script>alert(1)</script>Paulista`, "Paulista"},
	}
	for _, tt := range tests {
		if got := displayText(tt.in); got != tt.want {
			t.Errorf("displayText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"ana@example.com", "-password", "pw"})
	want := []string{"-password", "pw", "ana@example.com"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("got %v, want %v", got, want)
	}
}
