package cmd

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/zalepa/escolas/school"
)

func TestTableRowsPerPage(t *testing.T) {
	if n := tableRowsPerPage(); n != 30 {
		t.Errorf("tableRowsPerPage() = %d, want 30", n)
	}
}

func TestRenderPDF(t *testing.T) {
	byDep, byMuni := school.Aggregate(fixture)
	path := filepath.Join(t.TempDir(), "report.pdf")

	pages, err := renderPDF(path, fixture, byDep, byMuni)
	if err != nil {
		t.Fatal(err)
	}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if err := checkPDF(path, pages); err != nil {
		t.Error(err)
	}
}

func TestRenderPDFPaginatesTable(t *testing.T) {
	n := tableRowsPerPage() + 1
	schools := make([]school.School, n)
	for i := range schools {
		schools[i] = school.School{ID: i + 1, Name: fmt.Sprintf("Escola %d", i+1), Municipality: "Recife", Dependency: "Estadual"}
	}
	byDep, byMuni := school.Aggregate(schools)
	path := filepath.Join(t.TempDir(), "report.pdf")

	pages, err := renderPDF(path, schools, byDep, byMuni)
	if err != nil {
		t.Fatal(err)
	}
	if pages != 4 {
		t.Errorf("pages = %d, want 4", pages)
	}
	if err := checkPDF(path, pages); err != nil {
		t.Error(err)
	}
}

func TestRenderPDFEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	pages, err := renderPDF(path, nil, school.Distribution{}, school.Distribution{})
	if err != nil {
		t.Fatal(err)
	}
	if pages != 1 {
		t.Errorf("pages = %d, want 1", pages)
	}
	if err := checkPDF(path, 1); err != nil {
		t.Error(err)
	}
}
