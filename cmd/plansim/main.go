// Command plansim runs evacuation planning scenarios offline. Each scenario
// file supplies the wind, candidate facilities, routes and alerts that the
// live service would fetch, so planner behavior can be reproduced and
// checked without network access.
//
// Usage:
//
//	go run ./cmd/plansim cmd/plansim/testdata/*.json
//	go run ./cmd/plansim -print cmd/plansim/testdata/westward_wind.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wildfire-evac-planner/internal/alert"
	"github.com/couchcryptid/wildfire-evac-planner/internal/config"
	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
	"github.com/couchcryptid/wildfire-evac-planner/internal/planner"
	"github.com/couchcryptid/wildfire-evac-planner/internal/route"
	"github.com/couchcryptid/wildfire-evac-planner/internal/safety"
)

// result tracks pass/fail for one scenario.
type result struct {
	name   string
	plan   domain.Plan
	errors []string
}

func (r *result) errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *result) passed() bool { return len(r.errors) == 0 }

func main() {
	printPlans := flag.Bool("print", false, "print each resulting plan as JSON")
	verbose := flag.Bool("v", false, "log planner state transitions")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	os.Exit(run(flag.Args(), *printPlans, os.Stdout, logger))
}

func run(paths []string, printPlans bool, out io.Writer, logger *slog.Logger) int {
	results := make([]*result, 0, len(paths))
	for _, path := range paths {
		s, err := loadScenario(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		results = append(results, simulate(s, logger))
	}

	allPassed := true
	for _, r := range results {
		status := "PASS"
		if !r.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(r.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %-20s %s\n", r.name, r.plan.State, status)
	}

	for _, r := range results {
		if printPlans {
			fmt.Fprintf(out, "\n--- %s ---\n", r.name)
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			_ = enc.Encode(r.plan)
		}
		for _, e := range r.errors {
			fmt.Fprintf(out, "  %s: %s\n", r.name, e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

// simulate runs one scenario through the real planner and risk pipeline with
// the package clock frozen at the scenario time.
func simulate(s scenario, logger *slog.Logger) *result {
	domain.SetClock(clockwork.NewFakeClockAt(s.Now))
	defer domain.SetClock(nil)

	metrics := observability.NewMetricsForTesting()
	scoring := config.DefaultScoring()

	risk := alert.NewService(
		simAlerts{s},
		simUrban{s},
		alert.NewProcessor(alert.NewDeduplicator(config.DefaultDedupe()), metrics),
		alert.NewScorer(config.DefaultRisk()),
		time.Second,
		logger,
		metrics,
	)
	p := planner.New(planner.Collaborators{
		Wind:       simWind{s},
		Facilities: simFacilities{s},
		Router:     simRouter{s},
		Risk:       risk,
	},
		safety.NewFilter(scoring.ConeHalfAngle, logger),
		route.NewScorer(scoring),
		planner.Options{CallTimeout: time.Second, RoutingConcurrency: 4, SearchRadiusMeters: 80_000},
		logger,
		metrics,
	)

	plan, err := p.Plan(context.Background(), planner.Request{
		SessionID:    s.SessionID,
		Hazard:       s.Hazard,
		Origin:       s.Origin,
		Profile:      s.Profile,
		ActiveHazard: s.ActiveHazard,
	})

	r := &result{name: s.Name, plan: plan}
	if s.Expect == nil {
		if err != nil {
			r.errorf("plan failed: %v", err)
		}
		return r
	}
	check(r, *s.Expect)
	return r
}

func check(r *result, want expectation) {
	if want.State != "" && r.plan.State != want.State {
		r.errorf("state = %s, want %s", r.plan.State, want.State)
	}
	if want.Routes != nil {
		got := make([]string, len(r.plan.Routes))
		for i, sr := range r.plan.Routes {
			got[i] = sr.Destination.Name
		}
		if !slices.Equal(got, want.Routes) {
			r.errorf("routes = %v, want %v", got, want.Routes)
		}
	}
	if want.Risk != "" {
		switch {
		case r.plan.Risk == nil:
			r.errorf("risk missing, want %s", want.Risk)
		case r.plan.Risk.Level.String() != want.Risk:
			r.errorf("risk = %s, want %s", r.plan.Risk.Level, want.Risk)
		}
	}
}
