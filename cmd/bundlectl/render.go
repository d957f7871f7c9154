package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	bundleapi "github.com/dropDatabas3/bundlekeeper/internal/http/controllers/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/lifecycle"
	"github.com/dropDatabas3/bundlekeeper/internal/updatelog"
	"github.com/dropDatabas3/bundlekeeper/internal/validation"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderStatus(w io.Writer, s lifecycle.Status) {
	t := newTable(w)
	t.AppendHeader(table.Row{"FIELD", "VALUE"})
	last := "-"
	if s.LastCheckForUpdate != nil {
		last = s.LastCheckForUpdate.Format(time.RFC3339)
	}
	t.AppendRows([]table.Row{
		{"phase", s.Phase},
		{"update type", s.UpdateType},
		{"update available", s.UpdateAvailable},
		{"candidate available", s.CandidateAvailable},
		{"last check", last},
		{"outdated version", orDash(s.OutdatedVersion)},
		{"outdated bundle", orDash(s.OutdatedBundleInformation)},
		{"error in new version", s.ErrorInNewVersion},
		{"error message", orDash(s.ErrorMessage)},
		{"reloading", s.CurrentlyReloading},
		{"error in reload", s.ErrorInReload},
	})
	if s.Candidate != nil {
		t.AppendRow(table.Row{"candidate", fmt.Sprintf("%s (%s)", s.Candidate.Version.Version, s.Candidate.Folder)})
	}
	t.Render()
}

func renderCheck(w io.Writer, r lifecycle.CheckReport) {
	t := newTable(w)
	t.AppendHeader(table.Row{"BUNDLE", "VERSION", "VALID", "VALIDATIONS"})
	t.AppendRow(table.Row{"current", r.Versions.Current.Version, "-", strings.Join(r.Versions.Current.Validations, "\n")})
	if nv := r.Versions.New; nv != nil {
		t.AppendRow(table.Row{"new", nv.Version, nv.Valid, strings.Join(nv.Validations, "\n")})
	}
	t.Render()
	fmt.Fprintf(w, "update available: %t", r.UpdateAvailable)
	if r.UpdateType != "" {
		fmt.Fprintf(w, " (%s)", r.UpdateType)
	}
	fmt.Fprintln(w)
}

func renderDiff(w io.Writer, s compare.Summary) {
	fmt.Fprintf(w, "%s -> %s\n", s.Origin, s.Other)
	if s.SameBundles {
		fmt.Fprintln(w, "no changes")
		return
	}
	names := make([]string, 0, len(s.Sections))
	for n := range s.Sections {
		names = append(names, n)
	}
	sort.Strings(names)

	t := newTable(w)
	t.AppendHeader(table.Row{"SECTION", "CHANGE", "FILE"})
	for _, n := range names {
		d := s.Sections[n]
		for _, f := range d.NewFiles {
			t.AppendRow(table.Row{n, "new", f})
		}
		for _, f := range d.DeletedFiles {
			t.AppendRow(table.Row{n, "deleted", f})
		}
		for _, f := range d.UpdatedFiles {
			t.AppendRow(table.Row{n, "updated", f})
		}
	}
	t.Render()
}

func renderUpdateLog(w io.Writer, r updatelog.Report) {
	if r.Status == updatelog.StatusDisabled {
		fmt.Fprintln(w, "update log disabled")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"VERSION", "DATE", "ERRORS", "WARNINGS", "INFO", "FOLDER", "FLAGS"})
	for _, row := range r.Versions {
		var flags []string
		if row.Skipped {
			flags = append(flags, "skipped")
		}
		if row.Invalid {
			flags = append(flags, "invalid")
		}
		t.AppendRow(table.Row{row.Version, row.Date, row.Errors, row.Warnings, row.InfoMessages, row.Folder, strings.Join(flags, ",")})
	}
	if r.RetentionPolicy != nil {
		t.AppendFooter(table.Row{"retention", *r.RetentionPolicy})
	}
	t.Render()
}

func renderValidate(w io.Writer, r bundleapi.ValidateResponse) {
	fmt.Fprintf(w, "bundle: %s\nvalid: %t\n", r.Path, r.Valid)
	if len(r.Messages) == 0 {
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"LEVEL", "CODE", "MESSAGE"})
	for _, m := range r.Messages {
		res, err := validation.Parse(m)
		if err != nil {
			t.AppendRow(table.Row{"-", "-", m})
			continue
		}
		t.AppendRow(table.Row{res.Level, res.Code, res.Message})
	}
	t.Render()
}

func renderValidations(w io.Writer, r bundleapi.ValidationsResponse) {
	t := newTable(w)
	t.AppendHeader(table.Row{"VALIDATOR", "CODES"})
	for _, d := range r.Validations {
		t.AppendRow(table.Row{d.Name, strings.Join(d.Codes, ",")})
	}
	t.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
