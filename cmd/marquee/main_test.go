// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/models"
)

const moviesCSV = `budget,genres,homepage,id,original_language,original_title,overview,popularity,production_companies,production_countries,release_date,revenue,runtime,spoken_languages,status,tagline,title,vote_average,vote_count
237000000,"[{""id"": 28, ""name"": ""Action""}]",,19995,en,Avatar,,150.4,[],"[{""iso_3166_1"": ""US"", ""name"": ""United States of America""}]",2009-12-10,2787965087,162,[],Released,,Avatar,7.2,11800
`

const creditsCSV = `movie_id,title,cast,crew
19995,Avatar,[],"[{""job"": ""Director"", ""name"": ""James Cameron""}]"
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}
	movies := write("movies.csv", moviesCSV)
	credits := write("credits.csv", creditsCSV)

	return write("config.yaml", fmt.Sprintf(`input:
  movies_path: %s
  credits_path: %s
silver:
  enabled: true
  dir: %s
warehouse:
  path: %s
  max_memory: 256MB
  threads: 1
runlog:
  path: %s
logging:
  level: error
`, movies, credits, filepath.Join(dir, "silver"), filepath.Join(dir, "marquee.duckdb"), filepath.Join(dir, "runlog")))
}

func execute(t *testing.T, args ...string) (*models.RunSummary, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()

	if out.Len() == 0 {
		return nil, err
	}
	var s models.RunSummary
	if jerr := json.Unmarshal(out.Bytes(), &s); jerr != nil {
		t.Fatalf("decode output: %v\n%s", jerr, out.String())
	}
	return &s, err
}

func TestCommands(t *testing.T) {
	cfg := writeConfig(t)

	run, err := execute(t, "--config", cfg, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Status != models.RunSuccess || run.RecordsCleaned != 1 || run.RowCounts[models.TableFact] != 1 {
		t.Errorf("run summary = %+v", run)
	}

	status, err := execute(t, "--config", cfg, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.RunID != run.RunID {
		t.Errorf("status run id = %q, want %q", status.RunID, run.RunID)
	}

	replay, err := execute(t, "--config", cfg, "replay")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Mode != models.ModeReplay || replay.Reused[models.DimMovie.Table()] != 1 {
		t.Errorf("replay summary = %+v", replay)
	}
}

func TestStatus_NoRuns(t *testing.T) {
	if _, err := execute(t, "--config", writeConfig(t), "status"); err == nil {
		t.Error("expected error before the first run")
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "run"); err == nil {
		t.Error("expected error for a missing config file")
	}
}
