package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"f95api/lib/platforms/f95zone/core"
	"f95api/lib/platforms/f95zone/platform"
	"f95api/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Handiwork is a thread announcing a game, comic, animation or asset, with
// the fields of its main post.
type Handiwork struct {
	Thread

	Name      string
	Version   string
	Developer string
	Engine    string
	Status    string
	Others    []string
	Censored  bool

	OS        []string
	Languages []string
	Genre     []string

	Overview     string
	Changelog    string
	Installation string

	LastRelease      time.Time
	LastThreadUpdate time.Time

	// comics and animations
	Length     string
	Pages      string
	Resolution []string

	Cover   string
	Screens []string
}

var fieldAliases = map[string]string{
	"overview":            "overview",
	"thread updated":      "updated",
	"updated":             "updated",
	"release date":        "release",
	"developer":           "developer",
	"developer/publisher": "developer",
	"artist":              "developer",
	"publisher":           "developer",
	"censored":            "censored",
	"censorship":          "censored",
	"version":             "version",
	"os":                  "os",
	"platform":            "os",
	"language":            "languages",
	"languages":           "languages",
	"genre":               "genre",
	"length":              "length",
	"pages":               "pages",
	"resolution":          "resolution",
}

var (
	fieldRegex   = regexp.MustCompile(`^([A-Za-z][A-Za-z /]{0,30}?)\s*:\s*(.*)$`)
	bracketRegex = regexp.MustCompile(`\[([^\]]+)\]`)
)

// FetchHandiwork downloads the thread at `url` and reads the handiwork fields
// of its main post. `data` classifies the prefixes, without it every prefix
// ends up in Others.
func FetchHandiwork(ctx context.Context, client *core.Client, data *platform.Data, tel telemetry.API, url string) (Handiwork, error) {
	ctx, span := tracer.Start(ctx, "scrape:Handiwork")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	thread, _, err := FetchThread(ctx, client, tel, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch handiwork thread")
		return Handiwork{}, err
	}
	hw := NewHandiwork(thread, data)
	if hw.Version == "" {
		tel.ReportWarning(report_scrape_thread, fmt.Errorf("no version found for %s", thread.Url))
	}
	return hw, nil
}

// NewHandiwork fills the handiwork fields from an already parsed thread.
func NewHandiwork(thread Thread, data *platform.Data) Handiwork {
	hw := Handiwork{Thread: thread}

	for _, prefix := range thread.Prefixes {
		kind := platform.PREFIX_UNKNOWN
		if data != nil {
			kind = data.ClassifyPrefix(prefix)
		}
		switch kind {
		case platform.PREFIX_ENGINE:
			hw.Engine = prefix
		case platform.PREFIX_STATUS:
			hw.Status = prefix
		default:
			hw.Others = append(hw.Others, prefix)
		}
	}

	body := thread.MainPost.Body
	fields := parseFields(body)

	hw.Overview = fields["overview"]
	hw.Developer = fields["developer"]
	hw.Version = fields["version"]
	hw.Censored = strings.HasPrefix(strings.ToLower(fields["censored"]), "yes")
	hw.OS = splitList(fields["os"])
	hw.Languages = splitList(fields["languages"])
	hw.Genre = splitList(fields["genre"])
	hw.Length = fields["length"]
	hw.Pages = fields["pages"]
	hw.Resolution = splitList(fields["resolution"])
	hw.LastRelease = parseDate(fields["release"])
	hw.LastThreadUpdate = parseDate(fields["updated"])
	if hw.LastThreadUpdate.IsZero() {
		hw.LastThreadUpdate = thread.LastUpdate
	}

	spoiler, ok := body.Spoiler("Genre")
	if ok {
		hw.Genre = splitList(strings.ReplaceAll(spoiler.PlainText(), "\n", ","))
	}
	spoiler, ok = body.Spoiler("Changelog")
	if ok {
		hw.Changelog = spoiler.PlainText()
	}
	spoiler, ok = body.Spoiler("Installation")
	if ok {
		hw.Installation = spoiler.PlainText()
	}

	name, brackets := splitTitle(thread.Title)
	hw.Name = name
	if hw.Version == "" && len(brackets) > 0 {
		hw.Version = brackets[0]
	}
	if hw.Developer == "" && len(brackets) > 1 {
		hw.Developer = brackets[len(brackets)-1]
	}
	hw.Developer = strings.TrimSpace(strings.TrimSuffix(hw.Developer, "Patreon"))

	for i, image := range collectImages(body) {
		if i == 0 {
			hw.Cover = image
			continue
		}
		hw.Screens = append(hw.Screens, image)
	}
	return hw
}

// parseFields reads the "Key: value" lines of the top level text of a post.
// The overview keeps the following lines until the next known key.
func parseFields(body PostElement) map[string]string {
	fields := map[string]string{}
	current := ""
	for _, el := range body.Content {
		if el.Type == ELEMENT_LINK && current != "" && current != "overview" && fields[current] == "" {
			// "Developer: <a>name</a>"
			fields[current] = el.Name
			continue
		}
		if el.Type != ELEMENT_TEXT {
			continue
		}
		for _, line := range strings.Split(el.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			groups := fieldRegex.FindStringSubmatch(line)
			if groups != nil {
				key, known := fieldAliases[strings.ToLower(strings.TrimSpace(groups[1]))]
				if known {
					current = key
					if _, seen := fields[key]; !seen {
						fields[key] = strings.TrimSpace(groups[2])
					}
					continue
				}
			}
			if current == "overview" {
				fields[current] = strings.TrimSpace(fields[current] + "\n" + line)
			}
		}
	}
	return fields
}

// splitTitle separates "Name [v1.0] [Developer]" into the name and the
// bracket contents.
func splitTitle(title string) (string, []string) {
	var brackets []string
	for _, groups := range bracketRegex.FindAllStringSubmatch(title, -1) {
		brackets = append(brackets, strings.TrimSpace(groups[1]))
	}
	name := title
	index := strings.Index(title, "[")
	if index >= 0 {
		name = title[:index]
	}
	return strings.TrimSpace(name), brackets
}

func collectImages(body PostElement) []string {
	var out []string
	var walk func(el PostElement)
	walk = func(el PostElement) {
		if el.Type == ELEMENT_IMAGE && el.Text != "" {
			out = append(out, el.Text)
		}
		if el.Type == ELEMENT_SPOILER {
			return
		}
		for _, child := range el.Content {
			walk(child)
		}
	}
	walk(body)
	return out
}
