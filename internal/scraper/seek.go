package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"

	"github.com/bethmaloney/job-applier/internal/model"
)

// SeekAdapter fetches listings from Seek search pages. The search results are
// embedded in JSON script blocks; card markup is only a fallback, so the
// adapter extracts from the JSON payloads first.
type SeekAdapter struct {
	client *resty.Client
	opts   Options
}

// NewSeek constructs a Seek adapter on the shared client.
func NewSeek(client *resty.Client, opts Options) *SeekAdapter {
	return &SeekAdapter{client: client, opts: opts}
}

func (a *SeekAdapter) Source() model.Source { return model.SourceSeek }

// Fetch runs every configured search URL, paginating up to MaxPages, then
// fills each listing's full description from its detail page.
func (a *SeekAdapter) Fetch(ctx context.Context, queries []model.SearchQuery, rep Report) ([]model.RawListing, error) {
	var (
		listings []model.RawListing
		seen     = make(map[string]bool)
		fetched  bool
		lastErr  error
	)

	for _, q := range queries {
		for page := 1; page <= a.opts.MaxPages; page++ {
			if err := ctx.Err(); err != nil {
				return listings, err
			}
			if fetched {
				if err := PoliteDelay(ctx, a.opts.MinDelay, a.opts.MaxDelay); err != nil {
					return listings, err
				}
			}

			pageURL := withPage(q.URL, page)
			body, err := a.get(ctx, pageURL)
			fetched = true
			if err != nil {
				lastErr = err
				rep.SoftError(pageURL, err.Error())
				break // next query
			}

			batch := parseSeekPage(body)
			if len(batch) == 0 {
				break // no more results for this query
			}
			for _, l := range batch {
				if seen[l.ExternalID] {
					continue
				}
				seen[l.ExternalID] = true
				listings = append(listings, l)
			}
		}
	}

	if len(listings) == 0 && lastErr != nil {
		// Nothing parseable at all: source-level failure.
		return nil, fmt.Errorf("seek: %w", lastErr)
	}

	a.fillDetails(ctx, listings, rep)
	return listings, nil
}

// fillDetails fetches each listing's detail page for the full description.
// Individual failures are soft; the listing keeps its teaser text.
func (a *SeekAdapter) fillDetails(ctx context.Context, listings []model.RawListing, rep Report) {
	rep.AddTotal(len(listings))
	for i := range listings {
		if ctx.Err() != nil {
			return
		}
		if err := PoliteDelay(ctx, a.opts.MinDelay, a.opts.MaxDelay); err != nil {
			return
		}
		rep.Item(listings[i].Title)
		description, salary, err := a.FetchDetail(ctx, listings[i].URL)
		if err != nil {
			rep.SoftError(listings[i].Title, err.Error())
			continue
		}
		if description != "" {
			listings[i].Description = description
		}
		if salary != "" && listings[i].Salary == "" {
			listings[i].Salary = salary
		}
	}
}

// FetchDetail extracts the full description and salary from a Seek job page,
// preferring JSON-LD structured data over embedded JSON over raw markup.
func (a *SeekAdapter) FetchDetail(ctx context.Context, jobURL string) (string, string, error) {
	body, err := a.get(ctx, jobURL)
	if err != nil {
		return "", "", err
	}

	doc, err := parseHTML(body)
	if err != nil {
		return "", "", fmt.Errorf("parse detail page: %w", err)
	}

	description, salary := seekJSONLD(doc)
	if description == "" {
		description = seekEmbeddedDescription(doc)
	}
	if description == "" {
		if el := findFirst(doc, func(n *html.Node) bool {
			return attr(n, "data-automation") == "jobAdDetails"
		}); el != nil {
			description = blockText(el)
		}
	}
	return description, salary, nil
}

func (a *SeekAdapter) get(ctx context.Context, u string) (string, error) {
	resp, err := a.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", u, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("GET %s: status %d", u, resp.StatusCode())
	}
	return resp.String(), nil
}

// withPage appends/overrides the page query parameter on a search URL.
func withPage(rawURL string, page int) string {
	if page <= 1 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// parseSeekPage pulls listings out of the embedded JSON script blocks.
func parseSeekPage(body string) []model.RawListing {
	doc, err := parseHTML(body)
	if err != nil {
		return nil
	}

	var (
		listings []model.RawListing
		seen     = make(map[string]bool)
	)
	for _, script := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "script" && attr(n, "type") == "application/json"
	}) {
		if script.FirstChild == nil {
			continue
		}
		blob := script.FirstChild.Data
		if !gjson.Valid(blob) {
			continue
		}
		collectSeekJobs(gjson.Parse(blob), 0, seen, &listings)
	}
	return listings
}

// collectSeekJobs walks arbitrary JSON for objects that look like Seek job
// postings. Depth is capped because the payloads nest deeply.
func collectSeekJobs(res gjson.Result, depth int, seen map[string]bool, out *[]model.RawListing) {
	if depth > 10 {
		return
	}
	if res.IsObject() {
		if res.Get("id").Exists() && res.Get("title").Exists() &&
			(res.Get("advertiser").Exists() || res.Get("company").Exists()) {
			if l, ok := normalizeSeekJob(res); ok && !seen[l.ExternalID] {
				seen[l.ExternalID] = true
				*out = append(*out, l)
			}
			return
		}
		res.ForEach(func(_, value gjson.Result) bool {
			collectSeekJobs(value, depth+1, seen, out)
			return true
		})
		return
	}
	if res.IsArray() {
		res.ForEach(func(_, value gjson.Result) bool {
			collectSeekJobs(value, depth+1, seen, out)
			return true
		})
	}
}

func normalizeSeekJob(res gjson.Result) (model.RawListing, bool) {
	externalID := res.Get("id").String()
	if externalID == "" || externalID == "0" {
		return model.RawListing{}, false
	}

	company := res.Get("advertiser.description").String()
	if company == "" {
		company = res.Get("company").String()
	}

	location := res.Get("location.label").String()
	if location == "" {
		location = res.Get("location").String()
	}
	if location == "" {
		location = res.Get("suburb").String()
	}
	if location == "" {
		location = res.Get("locations.0.label").String()
	}

	salary := res.Get("salary.label").String()
	if salary == "" {
		salary = res.Get("salary").String()
	}
	if salary == "" {
		salary = res.Get("salaryLabel").String()
	}

	posted := res.Get("listingDate.label").String()
	if posted == "" {
		posted = res.Get("listingDate").String()
	}
	if posted == "" {
		posted = res.Get("listedAt").String()
	}

	description := res.Get("teaser").String()
	if description == "" {
		description = res.Get("abstract").String()
	}

	return model.RawListing{
		Source:      model.SourceSeek,
		ExternalID:  externalID,
		Title:       res.Get("title").String(),
		Company:     company,
		Location:    location,
		URL:         "https://www.seek.com.au/job/" + externalID,
		Salary:      salary,
		Description: description,
		PostedAt:    parsePostedAt(posted),
		FetchedAt:   time.Now().UTC(),
	}, true
}

// seekJSONLD extracts description and salary from JobPosting structured data.
func seekJSONLD(doc *html.Node) (string, string) {
	for _, script := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "script" && attr(n, "type") == "application/ld+json"
	}) {
		if script.FirstChild == nil {
			continue
		}
		ld := gjson.Parse(script.FirstChild.Data)
		if ld.IsArray() {
			ld.ForEach(func(_, value gjson.Result) bool {
				if value.Get("@type").String() == "JobPosting" {
					ld = value
					return false
				}
				return true
			})
		}
		if ld.Get("@type").String() != "JobPosting" {
			continue
		}

		description := stripTags(ld.Get("description").String())

		salary := ""
		minVal := ld.Get("baseSalary.value.minValue").String()
		maxVal := ld.Get("baseSalary.value.maxValue").String()
		switch {
		case minVal != "" && maxVal != "":
			salary = fmt.Sprintf("$%s - $%s", minVal, maxVal)
		case minVal != "":
			salary = "$" + minVal
		}
		return description, salary
	}
	return "", ""
}

// seekEmbeddedDescription searches the embedded JSON payloads for a
// substantial description-like field.
func seekEmbeddedDescription(doc *html.Node) string {
	for _, script := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "script" && attr(n, "type") == "application/json"
	}) {
		if script.FirstChild == nil {
			continue
		}
		if desc := findDescription(gjson.Parse(script.FirstChild.Data), 0); desc != "" {
			return desc
		}
	}
	return ""
}

func findDescription(res gjson.Result, depth int) string {
	if depth > 12 || !res.IsObject() && !res.IsArray() {
		return ""
	}
	if res.IsObject() {
		for _, key := range []string{"description", "content", "jobDetail", "jobDescription"} {
			val := res.Get(key)
			if val.Type == gjson.String && len(val.String()) > 100 {
				return stripTags(val.String())
			}
		}
	}
	found := ""
	res.ForEach(func(_, value gjson.Result) bool {
		found = findDescription(value, depth+1)
		return found == ""
	})
	return found
}
