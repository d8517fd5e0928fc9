package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

func printHeader(title string) {
	_, _ = bold.Println("════════════════════════════════════════════")
	_, _ = bold.Println(title)
	_, _ = bold.Println("════════════════════════════════════════════")
}

// renderReport prints one tablewriter table per scenario, each row a
// worker count.
func renderReport(results []scenarioResult) {
	byScenario := make(map[string][]scenarioResult)
	order := make([]string, 0)
	for _, r := range results {
		if _, ok := byScenario[r.Scenario]; !ok {
			order = append(order, r.Scenario)
		}
		byScenario[r.Scenario] = append(byScenario[r.Scenario], r)
	}

	for _, name := range order {
		fmt.Println()
		printHeader(name)

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Workers", "Tasks", "Elapsed", "Tasks/sec", "Status")

		for _, r := range byScenario[name] {
			status := "ok"
			if r.FailureMsg != "" {
				status = "FAILED: " + r.FailureMsg
			}
			_ = table.Append(
				fmt.Sprintf("%d", r.Workers),
				fmt.Sprintf("%d", r.TaskCount),
				r.Elapsed.Round(time.Microsecond).String(),
				fmt.Sprintf("%.0f", r.TasksPerS),
				status,
			)
		}
		if err := table.Render(); err != nil {
			_, _ = red.Printf("failed to render %s table: %v\n", name, err)
		}
	}

	failures := 0
	for _, r := range results {
		if r.FailureMsg != "" {
			failures++
		}
	}
	fmt.Println()
	if failures == 0 {
		_, _ = green.Printf("all %d scenario runs completed\n", len(results))
	} else {
		_, _ = red.Printf("%d/%d scenario runs failed\n", failures, len(results))
	}
}
