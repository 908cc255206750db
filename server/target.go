package server

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/arashi-dev/arashi/internal/deps"
	"github.com/mssola/user_agent"
)

type engineTarget struct {
	target     string
	minVersion *semver.Version
}

// the first version of each engine that supports all features of a target, newest target first
var engineTargets = map[string][]engineTarget{
	"chrome":  newEngineTargets("es2022", "94", "es2021", "85", "es2020", "80", "es2019", "73", "es2018", "64", "es2017", "58"),
	"edge":    newEngineTargets("es2022", "94", "es2021", "85", "es2020", "80", "es2019", "79"),
	"opera":   newEngineTargets("es2022", "80", "es2021", "71", "es2020", "67", "es2019", "60", "es2018", "51", "es2017", "45"),
	"firefox": newEngineTargets("es2022", "93", "es2021", "79", "es2020", "74", "es2019", "62", "es2018", "58", "es2017", "52"),
	"safari":  newEngineTargets("es2022", "16.4", "es2021", "14.1", "es2020", "14", "es2019", "12", "es2018", "11.1", "es2017", "11"),
}

func newEngineTargets(pairs ...string) []engineTarget {
	targets := make([]engineTarget, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		targets = append(targets, engineTarget{pairs[i], semver.MustParse(pairs[i+1])})
	}
	return targets
}

// getTargetByUA returns the newest build target that the browser of the user agent supports.
// The "ES/<year>" user agent selects a target explicitly.
func getTargetByUA(ua string, fallback string) string {
	if strings.HasPrefix(ua, "ES/") {
		t := "es" + ua[3:]
		if _, ok := deps.Targets[t]; ok {
			return t
		}
	}
	name, version := user_agent.New(ua).Browser()
	targets, ok := engineTargets[strings.ToLower(name)]
	if !ok {
		return fallback
	}
	a := strings.Split(version, ".")
	if len(a) > 3 {
		version = strings.Join(a[:3], ".")
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fallback
	}
	for _, t := range targets {
		if !v.LessThan(t.minVersion) {
			return t.target
		}
	}
	return "es2015"
}
