// Command mockcompare serves canned /compare replies for local runs of
// the session API and the simulation client.
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type request struct {
	Query              string                 `json:"query"`
	Anchor             map[string]interface{} `json:"anchor"`
	UIEventType        string                 `json:"ui_event_type"`
	LockedCoverageCode string                 `json:"locked_coverage_code"`
}

type candidate struct {
	Code string
	Name string
	Sim  float64
}

var catalog = map[string][]candidate{
	"암":   {{"A4200_1", "암진단비", 0.91}, {"A4210", "유사암진단비", 0.84}},
	"뇌출혈": {{"A4102", "뇌출혈진단비", 0.88}},
	"뇌졸중": {{"A4103", "뇌졸중진단비", 0.86}, {"A4102", "뇌출혈진단비", 0.71}},
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	flag.Parse()

	app := fiber.New()
	app.Post("/compare", func(ctx *fiber.Ctx) error {
		var req request
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).SendString("<html><body>bad request</body></html>")
		}
		return ctx.JSON(reply(req))
	})
	log.Printf("mock compare API on %s", *addr)
	log.Fatal(app.Listen(*addr))
}

func reply(req request) fiber.Map {
	if req.LockedCoverageCode != "" {
		return resolved(req.LockedCoverageCode, nameOf(req.LockedCoverageCode), req.Query)
	}
	if code, _ := req.Anchor["coverage_code"].(string); code != "" {
		// anchored follow-up; occasionally propose UNRESOLVED anyway
		if strings.Contains(req.Query, "?") {
			return unresolved(catalog["암"])
		}
		name, _ := req.Anchor["coverage_name"].(string)
		return resolved(code, name, req.Query)
	}
	for term, cands := range catalog {
		if strings.Contains(req.Query, term) {
			return unresolved(cands)
		}
	}
	return fiber.Map{
		"resolution_state":    "INVALID",
		"coverage_resolution": fiber.Map{"status": "INVALID", "message": "담보를 특정할 수 없습니다."},
	}
}

func nameOf(code string) string {
	for _, cands := range catalog {
		for _, c := range cands {
			if c.Code == code {
				return c.Name
			}
		}
	}
	return ""
}

func resolved(code, name, query string) fiber.Map {
	return fiber.Map{
		"resolution_state": "RESOLVED",
		"anchor": fiber.Map{
			"coverage_code":  code,
			"coverage_name":  name,
			"original_query": query,
			"intent":         "compare",
		},
		"coverage_resolution": fiber.Map{"status": "RESOLVED"},
		"summary_text":        name + " 비교 결과입니다.",
	}
}

func unresolved(cands []candidate) fiber.Map {
	suggested := make([]fiber.Map, 0, len(cands))
	for _, c := range cands {
		suggested = append(suggested, fiber.Map{
			"coverage_code": c.Code,
			"coverage_name": c.Name,
			"similarity":    c.Sim,
		})
	}
	return fiber.Map{
		"resolution_state": "UNRESOLVED",
		"coverage_resolution": fiber.Map{
			"status":              "UNRESOLVED",
			"suggested_coverages": suggested,
		},
	}
}
