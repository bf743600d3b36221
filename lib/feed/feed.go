package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/asitisdev/noticewatch/config"
	"github.com/asitisdev/noticewatch/lib/models"
	"github.com/carlmjohnson/requests"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Client scrapes the notice board list page. The board renders newest
// notices first, which is the ordering the rest of the system assumes.
type Client struct {
	cfg       *config.Config
	log       *zap.Logger
	transport http.RoundTripper
}

func NewClient(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, transport http.RoundTripper) *Client {
	return &Client{cfg, log, transport}
}

func (c *Client) Fetch(ctx context.Context, filter models.Filter) (models.Notices, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OutboundTimeout())
	defer cancel()

	var page string
	rb := requests.URL(c.cfg.FeedBaseURL).
		Transport(c.transport).
		Param("mode", "list").
		Param("articleLimit", "15").
		ToString(&page)
	for key, vals := range filter.Values() {
		rb = rb.Param(key, vals...)
	}

	if err := rb.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("fetching notice board: %w", err)
	}
	return c.parseBoard(page)
}

func (c *Client) parseBoard(page string) (models.Notices, error) {
	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing notice board: %w", err)
	}

	table := htmlquery.FindOne(doc, "//table[contains(@class, 'board-table')]")
	if table == nil {
		return nil, fmt.Errorf("parsing notice board: no board table in response")
	}

	base, err := url.Parse(c.cfg.FeedBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing feed base url: %w", err)
	}

	rows := htmlquery.Find(table, ".//tbody/tr")
	notices := make(models.Notices, 0, len(rows))
	for _, row := range rows {
		notice, ok := c.parseRow(base, row)
		if !ok {
			continue
		}
		notices = append(notices, notice)
	}
	return notices, nil
}

func (c *Client) parseRow(base *url.URL, row *html.Node) (models.Notice, bool) {
	var notice models.Notice

	num := nodeText(row, ".//td[contains(@class, 'b-num-box')]")
	id, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		// Pinned notices carry a badge instead of an article number.
		return notice, false
	}

	link := htmlquery.FindOne(row, ".//div[contains(@class, 'b-title-box')]//a")
	if link == nil {
		return notice, false
	}

	notice.ID = id
	notice.Title = strings.TrimSpace(htmlquery.InnerText(link))
	notice.Category = nodeText(row, ".//td[contains(@class, 'b-cate-box')]")
	notice.Department = nodeText(row, ".//td[contains(@class, 'b-writer-box')]")
	notice.PostedAt = nodeText(row, ".//td[contains(@class, 'b-date-box')]")

	if href, err := url.Parse(htmlquery.SelectAttr(link, "href")); err == nil {
		notice.URL = base.ResolveReference(href).String()
	}
	return notice, true
}

func nodeText(row *html.Node, expr string) string {
	node := htmlquery.FindOne(row, expr)
	if node == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(node))
}
