package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"f95api/lib/htmlutil"
	"f95api/lib/platforms/f95zone/core"

	"github.com/antzucaro/matchr"
	"github.com/titanous/json5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("f95zone/platform")

// Data holds the dictionaries the platform uses to label threads, every
// map goes from the platform's numeric id to the display name.
type Data struct {
	Engines  map[int]string `json:"engines"`
	Statuses map[int]string `json:"statuses"`
	Tags     map[int]string `json:"tags"`
	Others   map[int]string `json:"others"`
}

func NewData() *Data {
	return &Data{
		Engines:  map[int]string{},
		Statuses: map[int]string{},
		Tags:     map[int]string{},
		Others:   map[int]string{},
	}
}

func (d *Data) IsEmpty() bool {
	return len(d.Engines) == 0 && len(d.Statuses) == 0 && len(d.Tags) == 0 && len(d.Others) == 0
}

type PrefixKind int

const (
	PREFIX_UNKNOWN PrefixKind = iota
	PREFIX_ENGINE
	PREFIX_STATUS
	PREFIX_OTHER
)

type rawPrefix struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type rawPrefixGroup struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Prefixes []rawPrefix `json:"prefixes"`
}

type rawLatestUpdates struct {
	Prefixes map[string][]rawPrefixGroup `json:"prefixes"`
	Tags     map[string]string           `json:"tags"`
}

var latestUpdatesRegex = regexp.MustCompile(`(?s)latestUpdates\s*=\s*(\{.*?\});`)

// Fetch reads the dictionaries from the script embedded in the latest
// updates page.
func Fetch(ctx context.Context, client *core.Client) (*Data, error) {
	ctx, span := tracer.Start(ctx, "platform:Fetch")
	defer span.End()

	doc, err := client.GetHTML(ctx, core.PathLatestPage, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch latest updates page")
		return nil, fmt.Errorf("fetch platform data: %w", err)
	}

	for _, script := range doc.Find("script").Nodes {
		groups := latestUpdatesRegex.FindStringSubmatch(htmlutil.GetText(script))
		if len(groups) < 2 {
			continue
		}
		data, err := parseLatestUpdates(groups[1])
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse latestUpdates")
			return nil, err
		}
		return data, nil
	}

	span.SetStatus(codes.Error, "latestUpdates not found")
	return nil, core.Errorf(core.PARSE_ERROR, "latest updates page has no platform data")
}

func parseLatestUpdates(script string) (*Data, error) {
	var raw rawLatestUpdates
	err := json5.Unmarshal([]byte(script), &raw)
	if err != nil {
		return nil, core.Wrap(core.PARSE_ERROR, err, "latestUpdates object")
	}

	data := NewData()
	for _, groups := range raw.Prefixes {
		for _, group := range groups {
			var target map[int]string
			switch strings.ToLower(group.Name) {
			case "engine":
				target = data.Engines
			case "status":
				target = data.Statuses
			case "other":
				target = data.Others
			default:
				continue
			}
			for _, p := range group.Prefixes {
				target[p.ID] = html.UnescapeString(strings.TrimSpace(p.Name))
			}
		}
	}
	for key, name := range raw.Tags {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, core.Wrap(core.PARSE_ERROR, err, "tag id %q", key)
		}
		data.Tags[id] = html.UnescapeString(strings.TrimSpace(name))
	}
	return data, nil
}

// Load reads a cache file written by Save.
func Load(path string) (*Data, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, core.Wrap(core.NOT_FOUND, err, "platform cache")
	}
	if err != nil {
		return nil, err
	}

	data := NewData()
	err = json.Unmarshal(contents, data)
	if err != nil {
		return nil, core.Wrap(core.PARSE_ERROR, err, "platform cache %s", path)
	}
	for _, dict := range []*map[int]string{&data.Engines, &data.Statuses, &data.Tags, &data.Others} {
		if *dict == nil {
			*dict = map[int]string{}
		}
	}
	return data, nil
}

func (d *Data) Save(path string) error {
	serialized, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(path, serialized, 0644)
}

// TagID resolves a tag name (case insensitive) into its id.
func (d *Data) TagID(name string) (int, error) {
	return lookup("tag", name, d.Tags)
}

// PrefixID resolves an engine, status or other prefix name into its id.
func (d *Data) PrefixID(name string) (int, error) {
	return lookup("prefix", name, d.Engines, d.Statuses, d.Others)
}

// TagIDs resolves every name, the first unknown name fails the whole call.
func (d *Data) TagIDs(names []string) ([]int, error) {
	return lookupAll(names, d.TagID)
}

func (d *Data) PrefixIDs(names []string) ([]int, error) {
	return lookupAll(names, d.PrefixID)
}

// ClassifyPrefix tells in which dictionary a prefix name lives.
func (d *Data) ClassifyPrefix(name string) PrefixKind {
	switch {
	case containsName(d.Engines, name):
		return PREFIX_ENGINE
	case containsName(d.Statuses, name):
		return PREFIX_STATUS
	case containsName(d.Others, name):
		return PREFIX_OTHER
	}
	return PREFIX_UNKNOWN
}

func containsName(dict map[int]string, name string) bool {
	_, ok := findName(dict, name)
	return ok
}

// findName returns the lowest id with the given name, ids are unique but
// names are not always.
func findName(dict map[int]string, name string) (int, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	found := false
	lowest := 0
	for id, value := range dict {
		if strings.ToLower(value) != target {
			continue
		}
		if !found || id < lowest {
			lowest = id
			found = true
		}
	}
	return lowest, found
}

func lookupAll(names []string, lookup func(string) (int, error)) ([]int, error) {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		id, err := lookup(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func lookup(kind, name string, dicts ...map[int]string) (int, error) {
	for _, dict := range dicts {
		id, ok := findName(dict, name)
		if ok {
			return id, nil
		}
	}

	suggestions := Suggest(name, dicts...)
	if len(suggestions) > 0 {
		return 0, core.Errorf(core.PARAMETER_ERROR, "unknown %s %q, did you mean %q?", kind, name, suggestions)
	}
	return 0, core.Errorf(core.PARAMETER_ERROR, "unknown %s %q", kind, name)
}

const (
	suggestionThreshold = 0.85
	maxSuggestions      = 3
)

// Suggest returns up to 3 names that look like `name`, best match first.
func Suggest(name string, dicts ...map[int]string) []string {
	type candidate struct {
		name  string
		score float64
	}

	target := strings.ToLower(strings.TrimSpace(name))
	seen := map[string]bool{}
	var candidates []candidate
	for _, dict := range dicts {
		for _, value := range dict {
			if seen[value] {
				continue
			}
			seen[value] = true
			score := matchr.JaroWinkler(target, strings.ToLower(value), false)
			if score >= suggestionThreshold {
				candidates = append(candidates, candidate{name: value, score: score})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].name < candidates[j].name
		}
		return candidates[i].score > candidates[j].score
	})

	var out []string
	for i := 0; i < len(candidates) && i < maxSuggestions; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}
