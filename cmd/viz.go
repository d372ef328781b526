package cmd

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zalepa/escolas/school"
)

const (
	dependencyTitle   = "Distribution by dependency"
	municipalityTitle = "Schools by municipality"
	barWidth          = 40
)

// Viz implements the "viz" subcommand: load the schools, aggregate them and
// show both distributions in the terminal, or as a PDF report with -pdf.
func Viz(args []string) {
	fs := flag.NewFlagSet("viz", flag.ExitOnError)
	pdfOut := fs.String("pdf", "", "output PDF file path (omit for terminal output)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: escolas viz [-pdf report.pdf]

Summarize schools by administrative dependency and by municipality.

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  escolas viz
  escolas viz -pdf schools.pdf
`)
	}
	fs.Parse(args)

	e := setup()
	defer e.log.Sync()

	st := mustLoadDashboard(e)
	byDep, byMuni := school.Aggregate(st.Data)

	if *pdfOut != "" {
		pages, err := renderPDF(*pdfOut, st.Data, byDep, byMuni)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error writing PDF: %v\n", err)
			os.Exit(1)
		}
		if err := checkPDF(*pdfOut, pages); err != nil {
			fmt.Fprintf(os.Stderr, "error verifying PDF: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (%d pages)\n", *pdfOut, pages)
		return
	}

	renderDistribution(os.Stdout, dependencyTitle, byDep)
	fmt.Println()
	renderDistribution(os.Stdout, municipalityTitle, byMuni)
}

// renderDistribution prints one distribution in its own order with counts,
// shares of the total and bars scaled to the largest category.
func renderDistribution(w io.Writer, title string, d school.Distribution) {
	total := d.Total()
	fmt.Fprintf(w, "%s (%s schools)\n\n", title, formatInt(int64(total)))
	if len(d) == 0 {
		fmt.Fprintln(w, "(no data)")
		return
	}

	nameW := len("Category")
	maxCount := 0
	for _, e := range d {
		nameW = max(nameW, utf8.RuneCountInString(displayText(e.Category)))
		maxCount = max(maxCount, e.Count)
	}

	fmt.Fprintf(w, "%s  %8s  %6s   %s\n", pad("Category", nameW), "Count", "Share", "")
	fmt.Fprintln(w, strings.Repeat("─", nameW+2+8+2+6+3+barWidth))
	for _, e := range d {
		fmt.Fprintf(w, "%s  %8s  %6s   %s\n",
			pad(displayText(e.Category), nameW),
			formatInt(int64(e.Count)),
			formatPct(e.Count, total),
			bar(e.Count, maxCount, barWidth))
	}
}

// bar draws v relative to maxV in at most width cells, using eighth blocks
// for the remainder. Any positive value gets at least a sliver.
func bar(v, maxV, width int) string {
	if v <= 0 || maxV <= 0 {
		return ""
	}
	partial := []rune(" ▏▎▍▌▋▊▉")
	eighths := int(math.Round(float64(v) / float64(maxV) * float64(width*8)))
	if eighths < 1 {
		eighths = 1
	}
	s := strings.Repeat("█", eighths/8)
	if rem := eighths % 8; rem > 0 {
		s += string(partial[rem])
	}
	return s
}

func formatPct(n, total int) string {
	if total == 0 {
		return "- -"
	}
	return strconv.FormatFloat(float64(n)/float64(total)*100, 'f', 1, 64) + "%"
}

func formatInt(v int64) string {
	s := strconv.FormatInt(v, 10)
	if v < 0 {
		return "-" + addCommas(s[1:])
	}
	return addCommas(s)
}

func addCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var sb strings.Builder
	pre := n % 3
	if pre > 0 {
		sb.WriteString(s[:pre])
		if pre < n {
			sb.WriteByte(',')
		}
	}
	for i := pre; i < n; i += 3 {
		sb.WriteString(s[i : i+3])
		if i+3 < n {
			sb.WriteByte(',')
		}
	}
	return sb.String()
}

func formatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 0, 64) + "k"
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}
