package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/go-resty/resty/v2"
)

// Wire shapes, trimmed to what the transcript prints.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type createSessionData struct {
	ID string `json:"id"`
}

type turnData struct {
	Outcome        string `json:"outcome"`
	ResetCondition string `json:"reset_condition"`
	LockViolation  bool   `json:"lock_violation"`
	Error          string `json:"error"`
	Session        struct {
		ResolutionState string `json:"resolution_state"`
		Anchor          *struct {
			CoverageCode string `json:"coverage_code"`
			CoverageName string `json:"coverage_name"`
		} `json:"anchor"`
		Guidance *struct {
			Message            string `json:"message"`
			SuggestedCoverages []struct {
				CoverageCode string  `json:"coverage_code"`
				CoverageName string  `json:"coverage_name"`
				Similarity   float64 `json:"similarity"`
			} `json:"suggested_coverages"`
		} `json:"guidance"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	} `json:"session"`
}

type step struct {
	query  string
	pick   bool // select the first suggested coverage instead of typing
	reset  bool
	expect string
}

var script = []step{
	{query: "암 진단비 비교해줘", expect: "needs_guidance"},
	{pick: true, expect: "resolved"},
	{query: "그럼 한화도 보여줘", expect: "resolved"},
	{query: "뇌출혈 진단비는?", expect: "needs_guidance"},
	{query: "처음부터 다시", reset: true},
}

func main() {
	baseURL := flag.String("base", "http://localhost:3000/api/session/v1", "session API base URL")
	token := flag.String("token", os.Getenv("SIM_TOKEN"), "bearer token (empty for anonymous)")
	flag.Parse()

	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	if *token != "" {
		client.SetAuthToken(*token)
	}

	color.Cyan("=== Coverage Compare Session Simulation ===")

	var created envelope[createSessionData]
	resp, err := client.R().SetResult(&created).Post("")
	if err != nil || resp.IsError() {
		color.Red("Failed to create session: %v %s", err, resp.String())
		os.Exit(1)
	}
	sessionID := created.Data.ID
	color.Green("Session: %s", sessionID)

	var last turnData
	for i, s := range script {
		var turn envelope[turnData]
		req := client.R().SetResult(&turn)

		switch {
		case s.pick:
			if last.Session.Guidance == nil || len(last.Session.Guidance.SuggestedCoverages) == 0 {
				color.Yellow("\n[%d] nothing to pick, skipping", i+1)
				continue
			}
			c := last.Session.Guidance.SuggestedCoverages[0]
			color.Yellow("\n[%d] PICK %s (%s)", i+1, c.CoverageName, c.CoverageCode)
			resp, err = req.SetBody(map[string]string{"coverage_code": c.CoverageCode, "coverage_name": c.CoverageName}).
				Post("/" + sessionID + "/select")
		default:
			color.Yellow("\n[%d] USER %s", i+1, s.query)
			resp, err = req.SetBody(map[string]interface{}{"query": s.query, "explicit_reset": s.reset}).
				Post("/" + sessionID + "/query")
		}
		if err != nil || resp.IsError() {
			color.Red("  request failed: %v %s", err, resp.String())
			continue
		}

		last = turn.Data
		printTurn(last, resp.Time())
		if s.expect != "" && last.Outcome != s.expect {
			color.Red("  expected outcome %s", s.expect)
		}
	}

	if _, err := client.R().Delete("/" + sessionID); err != nil {
		color.Red("Failed to end session: %v", err)
	}
	color.Cyan("\n=== Done ===")
}

func printTurn(t turnData, elapsed time.Duration) {
	fmt.Printf("  outcome=%s state=%s elapsed=%s\n", t.Outcome, t.Session.ResolutionState, elapsed.Round(time.Millisecond))
	if t.ResetCondition != "" {
		fmt.Printf("  reset=%s\n", t.ResetCondition)
	}
	if t.LockViolation {
		color.Magenta("  lock violation: anchored turn kept as %s", t.Session.ResolutionState)
	}
	if a := t.Session.Anchor; a != nil {
		fmt.Printf("  anchor=%s (%s)\n", a.CoverageName, a.CoverageCode)
	}
	if g := t.Session.Guidance; g != nil {
		fmt.Printf("  guidance: %s\n", g.Message)
		for _, c := range g.SuggestedCoverages {
			fmt.Printf("    - %s %s %.2f\n", c.CoverageCode, c.CoverageName, c.Similarity)
		}
	}
	if t.Error != "" {
		color.Red("  error: %s", t.Error)
	}
	if n := len(t.Session.Messages); n > 0 {
		m := t.Session.Messages[n-1]
		color.White("  last %s: %s", m.Role, m.Content)
	}
}
