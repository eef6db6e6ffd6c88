// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/database"
	"github.com/tomtom215/marquee/internal/ingest"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/runlog"
)

const moviesCSV = `budget,genres,homepage,id,original_language,original_title,overview,popularity,production_companies,production_countries,release_date,revenue,runtime,spoken_languages,status,tagline,title,vote_average,vote_count
237000000,"[{""id"": 28, ""name"": ""Action""}, {""id"": 35, ""name"": ""Comedy""}]",,19995,en,Avatar,,150.4,"[{""name"": ""Ingenious Film Partners"", ""id"": 289}]","[{""iso_3166_1"": ""US"", ""name"": ""United States of America""}]",2009-12-10,2787965087,162,"[{""iso_639_1"": ""en"", ""name"": ""English""}]",Released,,Avatar,7.2,11800
1000,"[{""id"": 35, ""name"": ""Comedy""}]",,862,en,Toy Story,,21.9,[],[],1995-10-30,373554033,81,[],Released,,Toy Story,7.7,5415
5,[],,,en,No Id,,,[],[],,,,[],,,No Id,,
`

const creditsCSV = `movie_id,title,cast,crew
19995,Avatar,[],"[{""job"": ""Director"", ""name"": ""James Cameron""}]"
862,Toy Story,[],"[{""job"": ""Director"", ""name"": ""John Lasseter""}]"
`

// recorder captures published summaries.
type recorder struct {
	mu     sync.Mutex
	events []*models.RunSummary
	err    error
}

func (r *recorder) PublishBuildCompleted(_ context.Context, s *models.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// fakeWarehouse keeps the last loaded table set in memory.
type fakeWarehouse struct {
	loaded  *models.TableSet
	loadErr error
	reads   int
}

func (w *fakeWarehouse) LoadTableSet(context.Context) (*models.TableSet, error) {
	w.reads++
	return w.loaded, nil
}

func (w *fakeWarehouse) Load(_ context.Context, ts *models.TableSet) (*models.LoadResult, error) {
	if w.loadErr != nil {
		return nil, w.loadErr
	}
	w.loaded = ts
	return &models.LoadResult{RowCounts: ts.RowCounts()}, nil
}

type sourceFunc func(ctx context.Context) ([]models.RawMovieRecord, []models.RawCreditRecord, error)

func (f sourceFunc) Read(ctx context.Context) ([]models.RawMovieRecord, []models.RawCreditRecord, error) {
	return f(ctx)
}

func staticSource(movies ...models.RawMovieRecord) Source {
	return sourceFunc(func(context.Context) ([]models.RawMovieRecord, []models.RawCreditRecord, error) {
		return movies, nil, nil
	})
}

func rawMovie(id, title, genres string) models.RawMovieRecord {
	return models.RawMovieRecord{ID: id, Title: title, Genres: genres, OriginalLanguage: "en", ReleaseDate: "2001-02-03"}
}

func csvSource(t *testing.T) Source {
	t.Helper()
	dir := t.TempDir()
	movies := filepath.Join(dir, "movies.csv")
	credits := filepath.Join(dir, "credits.csv")
	if err := os.WriteFile(movies, []byte(moviesCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(credits, []byte(creditsCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	return ingest.NewCSVSource(movies, credits)
}

func openWarehouse(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&config.WarehouseConfig{Path: database.MemoryPath, MaxMemory: "512MB", Threads: 1})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	db := openWarehouse(t)
	runs := runlog.NewMemoryStore()
	events := &recorder{}
	silverPath := filepath.Join(t.TempDir(), "silver", ingest.SilverFileName)

	r := NewRunner(csvSource(t), ingest.NewSilverStore(), db, runs, events, Options{
		Incremental:  true,
		SilverPath:   silverPath,
		HistoryLimit: 10,
	})

	s, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Status != models.RunSuccess || s.Mode != models.ModeCSV || s.RunID == "" {
		t.Errorf("summary header = %+v", s)
	}
	if s.RecordsRead != 3 || s.RecordsCleaned != 2 || s.RecordsRejected != 1 {
		t.Errorf("records read/cleaned/rejected = %d/%d/%d", s.RecordsRead, s.RecordsCleaned, s.RecordsRejected)
	}
	if s.Rejections[models.IssueMissingIdentity] != 1 {
		t.Errorf("missing identity = %d", s.Rejections[models.IssueMissingIdentity])
	}
	if s.RowCounts[models.TableFact] != 2 || s.RowCounts[models.TableBridge] != 3 {
		t.Errorf("row counts = %v", s.RowCounts)
	}
	if s.RowCounts[models.DimGenre.Table()] != 2 {
		t.Errorf("Comedy should be shared: %d genres", s.RowCounts[models.DimGenre.Table()])
	}
	if s.SilverPath != silverPath {
		t.Errorf("SilverPath = %q", s.SilverPath)
	}
	if _, err := os.Stat(silverPath); err != nil {
		t.Errorf("silver file missing: %v", err)
	}

	latest, err := runs.Latest(ctx)
	if err != nil || latest == nil || latest.RunID != s.RunID {
		t.Errorf("Latest = %+v, %v", latest, err)
	}
	if events.count() != 1 {
		t.Errorf("published %d events, want 1", events.count())
	}

	counts, err := db.TableCounts(ctx)
	if err != nil {
		t.Fatalf("TableCounts: %v", err)
	}
	if counts[models.TableFact] != 2 {
		t.Errorf("warehouse facts = %d", counts[models.TableFact])
	}
}

func TestRunner_ReplayMatchesRun(t *testing.T) {
	ctx := context.Background()
	db := openWarehouse(t)
	silverPath := filepath.Join(t.TempDir(), ingest.SilverFileName)

	r := NewRunner(csvSource(t), ingest.NewSilverStore(), db, nil, nil, Options{
		Incremental: true,
		SilverPath:  silverPath,
	})
	if _, err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	fromCSV, err := db.LoadTableSet(ctx)
	if err != nil {
		t.Fatalf("LoadTableSet: %v", err)
	}

	s, err := r.Replay(ctx, "")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if s.Mode != models.ModeReplay || s.RecordsRead != 2 || s.SilverPath != silverPath {
		t.Errorf("replay summary = %+v", s)
	}
	if s.Reused[models.DimMovie.Table()] != 2 {
		t.Errorf("replay should reuse both movies: %v", s.Reused)
	}

	fromSilver, err := db.LoadTableSet(ctx)
	if err != nil {
		t.Fatalf("LoadTableSet after replay: %v", err)
	}
	assertSameRows(t, fromCSV, fromSilver)
}

func TestRunner_ReplayNeedsPath(t *testing.T) {
	r := NewRunner(nil, ingest.NewSilverStore(), &fakeWarehouse{}, nil, nil, Options{})
	if _, err := r.Replay(context.Background(), ""); err == nil {
		t.Fatal("expected error without a silver path")
	}
}

func TestRunner_LoadFailure(t *testing.T) {
	runs := runlog.NewMemoryStore()
	events := &recorder{}
	loadErr := &database.LoadError{Stage: "insert", Table: "dim_genre", Err: errors.New("Constraint Error")}
	wh := &fakeWarehouse{loadErr: loadErr}

	r := NewRunner(staticSource(rawMovie("1", "One", "[]")), nil, wh, runs, events, Options{})
	s, err := r.Run(context.Background())
	if !errors.Is(err, database.ErrLoadFailure) {
		t.Fatalf("err = %v, want ErrLoadFailure", err)
	}
	var le *database.LoadError
	if !errors.As(err, &le) || le.Table != "dim_genre" {
		t.Errorf("LoadError lost in chain: %v", err)
	}
	if s == nil || s.Status != models.RunFailed || s.Error == "" {
		t.Fatalf("summary = %+v", s)
	}
	if s.Rejections[models.IssueLoadFailure] != 1 {
		t.Errorf("load failure not counted: %v", s.Rejections)
	}
	if events.count() != 0 {
		t.Error("failed run must not publish")
	}
	latest, _ := runs.Latest(context.Background())
	if latest == nil || latest.Status != models.RunFailed {
		t.Errorf("failed run not recorded: %+v", latest)
	}
}

func TestRunner_SourceFailure(t *testing.T) {
	boom := errors.New("disk gone")
	src := sourceFunc(func(context.Context) ([]models.RawMovieRecord, []models.RawCreditRecord, error) {
		return nil, nil, boom
	})
	wh := &fakeWarehouse{}
	r := NewRunner(src, nil, wh, nil, nil, Options{Incremental: true})

	s, err := r.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if s.Status != models.RunFailed || s.Rejections[models.IssueLoadFailure] != 0 {
		t.Errorf("summary = %+v", s)
	}
	if wh.reads != 0 || wh.loaded != nil {
		t.Error("warehouse touched after ingest failure")
	}
}

func TestRunner_Incremental(t *testing.T) {
	ctx := context.Background()
	wh := &fakeWarehouse{}

	first := NewRunner(staticSource(rawMovie("10", "Ten", `[{"name": "Drama"}]`)), nil, wh, nil, nil, Options{Incremental: true})
	if _, err := first.Run(ctx); err != nil {
		t.Fatal(err)
	}

	second := NewRunner(staticSource(rawMovie("20", "Twenty", `[{"name": "Drama"}]`)), nil, wh, nil, nil, Options{Incremental: true})
	s, err := second.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if wh.reads != 2 {
		t.Errorf("prior state read %d times, want 2", wh.reads)
	}
	if got := len(wh.loaded.Movies); got != 2 {
		t.Errorf("incremental load holds %d movies, want 2", got)
	}
	if s.Reused[models.DimGenre.Table()] != 1 || s.Inserted[models.DimGenre.Table()] != 0 {
		t.Errorf("genre counts inserted=%d reused=%d", s.Inserted[models.DimGenre.Table()], s.Reused[models.DimGenre.Table()])
	}

	full := NewRunner(staticSource(rawMovie("20", "Twenty", `[{"name": "Drama"}]`)), nil, wh, nil, nil, Options{})
	if _, err := full.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if wh.reads != 2 || len(wh.loaded.Movies) != 1 {
		t.Errorf("full rebuild read prior state or kept old movies: reads=%d movies=%d", wh.reads, len(wh.loaded.Movies))
	}
}

func TestRunner_IncrementalWarehouse(t *testing.T) {
	ctx := context.Background()
	db := openWarehouse(t)

	run := func(name string, movies ...models.RawMovieRecord) (*models.RunSummary, *models.TableSet) {
		t.Helper()
		s, err := NewRunner(staticSource(movies...), nil, db, nil, nil, Options{Incremental: true}).Run(ctx)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		ts, err := db.LoadTableSet(ctx)
		if err != nil {
			t.Fatalf("%s: LoadTableSet: %v", name, err)
		}
		return s, ts
	}

	ten := rawMovie("10", "Ten", `[{"name": "Drama"}]`)
	thirty := rawMovie("30", "Thirty", `[{"name": "Comedy"}]`)
	twenty := rawMovie("20", "Twenty", `[{"name": "Drama"}, {"name": "Horror"}]`)

	_, first := run("first run", ten, thirty)
	_, again := run("identical run", ten, thirty)
	assertSameRows(t, first, again)
	for _, d := range models.AllDimensions {
		if !reflect.DeepEqual(first.Keys[d].Keys, again.Keys[d].Keys) {
			t.Errorf("%s keys changed on an identical run: %v -> %v", d, first.Keys[d].Keys, again.Keys[d].Keys)
		}
	}

	s, merged := run("superset run", ten, thirty, twenty)
	for _, d := range models.AllDimensions {
		for nk, key := range first.Keys[d].Keys {
			if got := merged.Keys[d].Keys[nk]; got != key {
				t.Errorf("%s %q key = %d, want %d", d, nk, got, key)
			}
		}
	}
	if got := merged.Keys[models.DimMovie].Keys["20"]; got != 3 {
		t.Errorf("new movie key = %d, want 3", got)
	}
	if got := merged.Keys[models.DimGenre].Keys["horror"]; got != 3 {
		t.Errorf("new genre key = %d, want 3", got)
	}
	if len(merged.Movies) != 3 || len(merged.Facts) != 3 || len(merged.Bridge) != 4 {
		t.Errorf("merged rows: movies=%d facts=%d bridge=%d", len(merged.Movies), len(merged.Facts), len(merged.Bridge))
	}
	if s.Inserted[models.DimMovie.Table()] != 1 || s.Reused[models.DimMovie.Table()] != 2 ||
		s.Inserted[models.DimGenre.Table()] != 1 || s.Reused[models.DimGenre.Table()] != 2 {
		t.Errorf("superset summary inserted=%v reused=%v", s.Inserted, s.Reused)
	}
}

func TestRunner_RejectsConcurrentRun(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	src := sourceFunc(func(context.Context) ([]models.RawMovieRecord, []models.RawCreditRecord, error) {
		close(entered)
		<-release
		return nil, nil, nil
	})
	r := NewRunner(src, nil, &fakeWarehouse{}, nil, nil, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()

	<-entered
	if _, err := r.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second run err = %v, want ErrRunInProgress", err)
	}
	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("first run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("first run did not finish")
	}
}

func TestRunner_PublishFailureDoesNotFailRun(t *testing.T) {
	events := &recorder{err: errors.New("nats down")}
	r := NewRunner(staticSource(rawMovie("1", "One", "[]")), nil, &fakeWarehouse{}, nil, events, Options{})
	s, err := r.Run(context.Background())
	if err != nil || s.Status != models.RunSuccess {
		t.Fatalf("Run = %+v, %v", s, err)
	}
}

func TestRunner_Timeout(t *testing.T) {
	src := sourceFunc(func(ctx context.Context) ([]models.RawMovieRecord, []models.RawCreditRecord, error) {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	})
	runs := runlog.NewMemoryStore()
	r := NewRunner(src, nil, &fakeWarehouse{}, runs, nil, Options{Timeout: 20 * time.Millisecond})

	s, err := r.Run(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	latest, _ := runs.Latest(context.Background())
	if latest == nil || latest.RunID != s.RunID {
		t.Error("timed out run was not recorded")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Silver:   config.SilverConfig{Enabled: true, Dir: "/data/silver"},
		Pipeline: config.PipelineConfig{Parallel: true, Incremental: true, Timeout: time.Minute},
		RunLog:   config.RunLogConfig{HistoryLimit: 5},
	}
	got := OptionsFromConfig(cfg)
	want := Options{
		Parallel:     true,
		Incremental:  true,
		SilverPath:   filepath.Join("/data/silver", ingest.SilverFileName),
		Timeout:      time.Minute,
		HistoryLimit: 5,
	}
	if got != want {
		t.Errorf("OptionsFromConfig = %+v, want %+v", got, want)
	}

	cfg.Silver.Enabled = false
	if got := OptionsFromConfig(cfg); got.SilverPath != "" {
		t.Errorf("disabled silver still has path %q", got.SilverPath)
	}
}

func assertSameRows(t *testing.T, a, b *models.TableSet) {
	t.Helper()
	pairs := []struct {
		name string
		a, b any
	}{
		{"movies", a.Movies, b.Movies},
		{"dates", a.Dates, b.Dates},
		{"genres", a.Genres, b.Genres},
		{"directors", a.Directors, b.Directors},
		{"languages", a.Languages, b.Languages},
		{"countries", a.Countries, b.Countries},
		{"companies", a.Companies, b.Companies},
		{"facts", a.Facts, b.Facts},
		{"bridge", a.Bridge, b.Bridge},
	}
	for _, p := range pairs {
		if !reflect.DeepEqual(p.a, p.b) {
			t.Errorf("%s differ:\n  %+v\n  %+v", p.name, p.a, p.b)
		}
	}
}
