package cmd

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfPageCount parses the PDF at path and returns its page count.
func pdfPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	ctx, err := pdfcpu.Read(f, model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return ctx.PageCount, nil
}

// checkPDF reads back a report written by renderPDF and confirms it parses
// and has the expected number of pages.
func checkPDF(path string, want int) error {
	got, err := pdfPageCount(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%s: got %d pages, want %d", path, got, want)
	}
	return nil
}
