package cmd

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zalepa/escolas/school"
)

// Schools implements the "schools" subcommand: load the school list and
// print it as a table, optionally exporting it as JSON and/or CSV.
func Schools(args []string) {
	fs := flag.NewFlagSet("schools", flag.ExitOnError)
	jsonOut := fs.String("json", "", "also write the loaded collection to this JSON file")
	csvOut := fs.String("csv", "", "also write the loaded collection to this CSV file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: escolas schools [-json out.json] [-csv out.csv]\n\nList schools from the API.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	e := setup()
	defer e.log.Sync()

	st := mustLoadDashboard(e)
	if dups := school.DuplicateIDs(st.Data); len(dups) > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d duplicate school ids in response: %v\n", len(dups), dups)
	}

	renderSchoolTable(os.Stdout, st.Data)

	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, st.Data); err != nil {
			fmt.Fprintf(os.Stderr, "error writing JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *jsonOut)
	}
	if *csvOut != "" {
		if err := writeCSV(*csvOut, st.Data); err != nil {
			fmt.Fprintf(os.Stderr, "error writing CSV: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *csvOut)
	}
}

const maxNameWidth = 48

func renderSchoolTable(w io.Writer, schools []school.School) {
	fmt.Fprintf(w, "Showing %d schools\n\n", len(schools))
	if len(schools) == 0 {
		return
	}

	type row struct{ id, name, muni, dep string }
	rows := make([]row, len(schools))
	nameW, muniW := len("Name"), len("Municipality")
	for i, s := range schools {
		r := row{
			id:   "#" + strconv.Itoa(s.ID),
			name: truncate(displayText(s.Name), maxNameWidth),
			muni: displayText(s.Municipality),
			dep:  displayText(s.Dependency),
		}
		nameW = max(nameW, utf8.RuneCountInString(r.name))
		muniW = max(muniW, utf8.RuneCountInString(r.muni))
		rows[i] = r
	}

	fmt.Fprintf(w, "%-8s  %s  %s  %s\n", "ID", pad("Name", nameW), pad("Municipality", muniW), "Dependency")
	fmt.Fprintln(w, strings.Repeat("─", 8+2+nameW+2+muniW+2+len("Dependency")))
	for _, r := range rows {
		fmt.Fprintf(w, "%-8s  %s  %s  %s\n", r.id, pad(r.name, nameW), pad(r.muni, muniW), r.dep)
	}
}

// pad left-aligns s in a field of width runes. fmt's %-*s counts bytes,
// which misaligns accented names.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}

func writeJSON(path string, schools []school.School) error {
	data, err := json.MarshalIndent(schools, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeCSV(path string, schools []school.School) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id_escola", "nome", "municipio", "dependencia", "endereco"}); err != nil {
		return err
	}
	for _, s := range schools {
		row := []string{strconv.Itoa(s.ID), s.Name, s.Municipality, s.Dependency, s.Address}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
