// Package discovery crawls the directory listings of a forecast archive and
// returns the GRIB files matching the configured runs, steps and types.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/javi11/gribfetch/internal/config"
)

// IndexSuffix is appended to a file URL to get its inventory.
const IndexSuffix = ".idx"

// Target is one remote file to fetch, with its inventory and local path.
type Target struct {
	Dir       string
	Domain    string
	File      string
	RunHour   int
	Type      string
	Step      int
	FileURL   string
	IndexURL  string
	LocalPath string
}

func (t Target) String() string {
	return fmt.Sprintf("%-14s %-7s %-30s  %-10s   %2dZ  +%3dh",
		t.Dir, t.Domain, t.File, t.Type, t.RunHour, t.Step)
}

// Crawler lists run directories and files on the archive.
type Crawler struct {
	client      *http.Client
	baseURL     string
	domain      string
	gribDir     string
	runPattern  *regexp.Regexp
	filePattern *regexp.Regexp
	types       []string
	steps       []int
	runHours    []int
	logger      *slog.Logger
}

// NewCrawler builds a crawler from the source section of cfg.
func NewCrawler(cfg *config.Config, client *http.Client, logger *slog.Logger) (*Crawler, error) {
	runPattern, err := regexp.Compile(cfg.Source.RunPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid run pattern: %w", err)
	}

	filePattern, err := regexp.Compile(cfg.Source.FilePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern: %w", err)
	}
	if filePattern.NumSubexp() != 3 {
		return nil, fmt.Errorf("file pattern must have 3 groups (runhour, type, step), got %d", filePattern.NumSubexp())
	}

	steps, err := config.ParseIntSet(cfg.Steps)
	if err != nil {
		return nil, fmt.Errorf("steps: %w", err)
	}
	runHours, err := config.ParseIntSet(cfg.RunHours)
	if err != nil {
		return nil, fmt.Errorf("runhours: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Crawler{
		client:      client,
		baseURL:     strings.TrimRight(cfg.Source.URL, "/"),
		domain:      cfg.Source.Domain,
		gribDir:     cfg.GribDir,
		runPattern:  runPattern,
		filePattern: filePattern,
		types:       cfg.Source.Types,
		steps:       steps,
		runHours:    runHours,
		logger:      logger,
	}, nil
}

// Discover lists every run directory and returns the selected files. A
// failure listing the archive root is an error; a run directory that cannot
// be listed is logged and skipped.
func (c *Crawler) Discover(ctx context.Context) ([]Target, error) {
	runs, err := c.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	var targets []Target
	for _, dir := range runs {
		files, err := c.ListFiles(ctx, dir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.WarnContext(ctx, "Failed to list run directory, skipping",
				"dir", dir,
				"error", err)
			continue
		}
		targets = append(targets, files...)
	}

	return targets, nil
}

// ListRuns returns the run directories on the archive root.
func (c *Crawler) ListRuns(ctx context.Context) ([]string, error) {
	doc, err := getAndParse(ctx, c.client, c.baseURL+"/")
	if err != nil {
		return nil, fmt.Errorf("list archive root: %w", err)
	}

	var runs []string
	for _, name := range anchorTexts(doc) {
		if c.runPattern.MatchString(name) {
			runs = append(runs, name)
		}
	}

	c.logger.DebugContext(ctx, "Listed archive root", "url", c.baseURL, "runs", len(runs))

	return runs, nil
}

// ListFiles returns the selected files of one run directory.
func (c *Crawler) ListFiles(ctx context.Context, dir string) ([]Target, error) {
	dirURL := fmt.Sprintf("%s/%s/%s/", c.baseURL, dir, c.domain)

	doc, err := getAndParse(ctx, c.client, dirURL)
	if err != nil {
		return nil, err
	}

	var targets []Target
	for _, name := range anchorTexts(doc) {
		t, ok := c.newTarget(dir, name)
		if !ok {
			continue
		}
		if !c.selected(t) {
			continue
		}
		targets = append(targets, t)
	}

	return targets, nil
}

func (c *Crawler) newTarget(dir, file string) (Target, bool) {
	m := c.filePattern.FindStringSubmatch(file)
	if m == nil {
		return Target{}, false
	}

	runHour, err := strconv.Atoi(m[1])
	if err != nil {
		return Target{}, false
	}
	step, err := strconv.Atoi(m[3])
	if err != nil {
		return Target{}, false
	}

	fileURL := fmt.Sprintf("%s/%s/%s/%s", c.baseURL, dir, c.domain, file)

	return Target{
		Dir:       dir,
		Domain:    c.domain,
		File:      file,
		RunHour:   runHour,
		Type:      m[2],
		Step:      step,
		FileURL:   fileURL,
		IndexURL:  fileURL + IndexSuffix,
		LocalPath: filepath.Join(c.gribDir, dir, c.domain, file),
	}, true
}

func (c *Crawler) selected(t Target) bool {
	if !slices.Contains(c.steps, t.Step) || !slices.Contains(c.runHours, t.RunHour) {
		return false
	}
	if len(c.types) > 0 && !slices.Contains(c.types, t.Type) {
		return false
	}
	return true
}
