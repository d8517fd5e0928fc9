// Command poolbench drives a fixed matrix of workload scenarios across a
// range of worker counts and prints a colored summary table.
//
// It sits outside the pool package's public contract, a consumer of
// github.com/corepoolio/thiefpool/pool like any other program, not part of
// the core.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

var workerCounts = []int{1, 2, 3, 4, 12}

func main() {
	var only string
	flag.StringVar(&only, "scenario", "", "run a single scenario by name instead of the whole matrix")
	var concurrency int
	flag.IntVar(&concurrency, "concurrency", 4, "max scenario runs executed concurrently")
	flag.Parse()

	if err := run(only, concurrency); err != nil {
		_, _ = red.Printf("poolbench: %v\n", err)
		os.Exit(1)
	}
}

func run(only string, concurrency int) error {
	all := scenarios()
	if only != "" {
		all = filterScenarios(all, only)
		if len(all) == 0 {
			return fmt.Errorf("no scenario named %q", only)
		}
	}

	printHeader(fmt.Sprintf("poolbench: %d scenario(s) x %d worker count(s)", len(all), len(workerCounts)))

	var mu sync.Mutex
	var results []scenarioResult

	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	var bar *progressbar.ProgressBar
	heavyTotal := 0
	for _, s := range all {
		if s.name == "heavy-cpu-primality" {
			heavyTotal = len(workerCounts)
		}
	}
	if heavyTotal > 0 {
		bar = progressbar.NewOptions(heavyTotal,
			progressbar.OptionSetDescription("heavy-cpu-primality"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
		)
	}

	for _, s := range all {
		s := s
		for _, workers := range workerCounts {
			workers := workers
			g.Go(func() error {
				taskCount, elapsed, err := s.run(workers)

				r := scenarioResult{Scenario: s.name, Workers: workers}
				if err != nil {
					r.FailureMsg = err.Error()
				} else {
					r.TaskCount = taskCount
					r.Elapsed = elapsed
					if elapsed > 0 {
						r.TasksPerS = float64(taskCount) / elapsed.Seconds()
					}
				}

				mu.Lock()
				results = append(results, r)
				mu.Unlock()

				if s.name == "heavy-cpu-primality" && bar != nil {
					_ = bar.Add(1)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	renderReport(orderedByMatrix(results, all))
	return nil
}

// orderedByMatrix restores scenario-then-worker-count ordering; errgroup's
// goroutines complete in whatever order the scheduler picks.
func orderedByMatrix(results []scenarioResult, all []scenario) []scenarioResult {
	index := make(map[string]map[int]scenarioResult)
	for _, r := range results {
		if index[r.Scenario] == nil {
			index[r.Scenario] = make(map[int]scenarioResult)
		}
		index[r.Scenario][r.Workers] = r
	}

	ordered := make([]scenarioResult, 0, len(results))
	for _, s := range all {
		for _, workers := range workerCounts {
			if r, ok := index[s.name][workers]; ok {
				ordered = append(ordered, r)
			}
		}
	}
	return ordered
}

func filterScenarios(all []scenario, name string) []scenario {
	for _, s := range all {
		if s.name == name {
			return []scenario{s}
		}
	}
	return nil
}
