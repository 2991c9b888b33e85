package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/dev-mohitbeniwal/permcheck/model"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// encode writes v as indented JSON or as YAML with the JSON field names.
func encode(w io.Writer, format string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format == formatJSON {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

func renderReport(w io.Writer, report *model.CheckReport) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", bold("Check"), report.CheckID)
	fmt.Fprintf(w, "%s\n\n", faint(fmt.Sprintf("%d controller files, %d methods, %d permissions, %d rules, %d incomplete methods, %d oracle failures",
		report.Stats.ControllerFiles, report.Stats.MethodsSeen, report.Stats.Permissions,
		report.Stats.Rules, report.Stats.IncompleteMethods, report.Stats.OracleFailures)))

	if len(report.RedundantRule) == 0 && len(report.LackRule) == 0 {
		fmt.Fprintf(w, "%s policy and implementation agree\n", green("✔"))
	} else {
		if len(report.RedundantRule) > 0 {
			fmt.Fprintf(w, "%s %d implemented permissions are not declared\n", red("✖"), len(report.RedundantRule))
			renderPermissions(w, report.RedundantRule)
		}
		if len(report.LackRule) > 0 {
			fmt.Fprintf(w, "%s %d declared rules are not implemented\n", red("✖"), len(report.LackRule))
			renderRules(w, "", report.LackRule)
		}
	}

	for _, u := range report.Unresolved {
		fmt.Fprintf(w, "%s %s %v in %s: %s\n", color.YellowString("?"), u.Kind, u.Names, u.Controller, u.Reason)
	}
	renderWarnings(w, report.Warnings)
}

func renderPermissions(w io.Writer, perms []model.ImplementedPermission) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Role", "Action", "Resource", "Condition", "Method", "Controller"})
	for _, p := range perms {
		t.AppendRow(table.Row{p.Role, p.Action, p.Resource, p.Condition, p.Method, p.Controller})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func renderRules(w io.Writer, title string, rules []model.PolicyRule) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(table.Row{"Role", "Action", "Resource", "Condition"})
	for _, r := range rules {
		t.AppendRow(table.Row{r.Role, r.Action, r.Resource, r.Condition})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func renderWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "%s %s\n", color.YellowString("!"), warning)
	}
}
