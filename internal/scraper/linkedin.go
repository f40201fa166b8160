package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"

	"github.com/bethmaloney/job-applier/internal/model"
)

// linkedInGuestAPI serves paginated result cards without authentication.
const linkedInGuestAPI = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"

var (
	linkedInJobIDRe = regexp.MustCompile(`/view/(?:[^/?]*-)?(\d+)`)
	// Salary ranges like "$120,000 - $140,000 + super" quoted inside
	// description text.
	salaryRe = regexp.MustCompile(`(?i)\$[\d,]+(?:\.\d+)?k?\s*[-–]\s*\$[\d,]+(?:\.\d+)?k?` +
		`(?:\s*(?:\+\s*super(?:annuation)?|per\s+(?:annum|year)|p\.?a\.?|base))?`)
)

// LinkedInAdapter fetches listings from the LinkedIn guest search API.
type LinkedInAdapter struct {
	client *resty.Client
	opts   Options
}

// NewLinkedIn constructs a LinkedIn adapter on the shared client.
func NewLinkedIn(client *resty.Client, opts Options) *LinkedInAdapter {
	return &LinkedInAdapter{client: client, opts: opts}
}

func (a *LinkedInAdapter) Source() model.Source { return model.SourceLinkedIn }

// Fetch pages through each keyword+location search, then fills each
// listing's full description from its detail page.
func (a *LinkedInAdapter) Fetch(ctx context.Context, queries []model.SearchQuery, rep Report) ([]model.RawListing, error) {
	var (
		listings []model.RawListing
		seen     = make(map[string]bool)
		fetched  bool
		lastErr  error
	)

	for _, q := range queries {
		for page := 0; page < a.opts.MaxPages; page++ {
			if err := ctx.Err(); err != nil {
				return listings, err
			}
			if fetched {
				if err := PoliteDelay(ctx, a.opts.MinDelay, a.opts.MaxDelay); err != nil {
					return listings, err
				}
			}

			params := url.Values{}
			params.Set("keywords", q.Keywords)
			params.Set("location", q.Location)
			params.Set("start", strconv.Itoa(page*a.opts.PageSize))
			params.Set("f_TPR", "r604800") // past week

			body, err := a.get(ctx, a.searchURL()+"?"+params.Encode())
			fetched = true
			if err != nil {
				lastErr = err
				rep.SoftError(q.Label(), err.Error())
				break // next query
			}

			batch := parseLinkedInCards(body)
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
		return nil, fmt.Errorf("linkedin: %w", lastErr)
	}

	a.fillDetails(ctx, listings, rep)
	return listings, nil
}

func (a *LinkedInAdapter) fillDetails(ctx context.Context, listings []model.RawListing, rep Report) {
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

// FetchDetail extracts the full description from a LinkedIn job page. Salary
// is rarely structured, so it is pattern-matched out of the description text.
func (a *LinkedInAdapter) FetchDetail(ctx context.Context, jobURL string) (string, string, error) {
	body, err := a.get(ctx, jobURL)
	if err != nil {
		return "", "", err
	}

	doc, err := parseHTML(body)
	if err != nil {
		return "", "", fmt.Errorf("parse detail page: %w", err)
	}

	el := findFirst(doc, func(n *html.Node) bool {
		return hasClass(n, "show-more-less-html__markup")
	})
	description := blockText(el)

	salary := ""
	if description != "" {
		salary = salaryRe.FindString(description)
	}
	return description, salary, nil
}

// searchURL is overridable in tests via the client's base; production uses
// the guest API endpoint.
func (a *LinkedInAdapter) searchURL() string {
	if base := a.client.BaseURL; base != "" {
		return base + "/jobs-guest/jobs/api/seeMoreJobPostings/search"
	}
	return linkedInGuestAPI
}

func (a *LinkedInAdapter) get(ctx context.Context, u string) (string, error) {
	resp, err := a.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", u, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("GET %s: status %d", u, resp.StatusCode())
	}
	return resp.String(), nil
}

// parseLinkedInCards parses the guest API's result card markup.
func parseLinkedInCards(body string) []model.RawListing {
	doc, err := parseHTML(body)
	if err != nil {
		return nil
	}

	var listings []model.RawListing
	for _, card := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "div" && hasClass(n, "base-card")
	}) {
		link := findFirst(card, func(n *html.Node) bool {
			return n.Data == "a" && strings.Contains(attr(n, "href"), "/jobs/view/")
		})
		if link == nil {
			continue
		}
		jobURL := strings.SplitN(attr(link, "href"), "?", 2)[0]
		m := linkedInJobIDRe.FindStringSubmatch(jobURL)
		if m == nil {
			continue
		}

		title := textContent(findFirst(card, func(n *html.Node) bool {
			return n.Data == "h3" && hasClass(n, "base-search-card__title")
		}))
		if title == "" {
			continue
		}

		company := textContent(findFirst(card, func(n *html.Node) bool {
			return n.Data == "h4" && hasClass(n, "base-search-card__subtitle")
		}))
		location := textContent(findFirst(card, func(n *html.Node) bool {
			return n.Data == "span" && hasClass(n, "job-search-card__location")
		}))
		salary := textContent(findFirst(card, func(n *html.Node) bool {
			return n.Data == "span" && hasClass(n, "job-search-card__salary")
		}))

		posted := ""
		if el := findFirst(card, func(n *html.Node) bool { return n.Data == "time" }); el != nil {
			posted = attr(el, "datetime")
		}

		listings = append(listings, model.RawListing{
			Source:     model.SourceLinkedIn,
			ExternalID: m[1],
			Title:      title,
			Company:    company,
			Location:   location,
			URL:        jobURL,
			Salary:     salary,
			PostedAt:   parsePostedAt(posted),
			FetchedAt:  time.Now().UTC(),
		})
	}
	return listings
}
