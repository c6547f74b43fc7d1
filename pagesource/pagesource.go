// Package pagesource loads the HTML documents handed to the extractors: a
// saved page on disk, a page behind a URL, or the schedule frame a saved
// "complete webpage" keeps next to its outer page.
package pagesource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cuhk-timetable/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

var client = newClient()

func newClient() *resty.Client {
	c := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "cuhk-timetable-export")
	telemetry.InstrumentResty(c, "cuhk-timetable/pagesource")
	return c
}

// IsURL reports whether path should be fetched over HTTP instead of read
// from disk.
func IsURL(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load returns the decoded HTML behind path, which is either a file or an
// http(s) URL. The charset comes from the Content-Type header or, for files,
// from the document itself.
func Load(ctx context.Context, path string) (string, error) {
	if IsURL(path) {
		return fetch(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read html file: %w", err)
	}
	return decode(data, "text/html")
}

func fetch(ctx context.Context, url string) (string, error) {
	res, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("fetch %s: unexpected status %s", url, res.Status())
	}
	slog.Debug("fetched page", "url", url, "bytes", len(res.Body()))
	return decode(res.Body(), res.Header().Get("Content-Type"))
}

func decode(data []byte, contentType string) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return "", fmt.Errorf("detect charset: %w", err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("decode html: %w", err)
	}
	return string(decoded), nil
}

const scheduleFrameID = "main_target_win0"

var scheduleFrameSrcRegex = regexp.MustCompile(`(?i)SSR_SSENRL_SCHD`)

// ResolveFrame returns the schedule frame document referenced by a saved
// outer page at path. The frame file is looked up at <dir>/<src> and then
// at <dir>/<stem>_files/<basename of src>. When htmlText has no schedule
// frame, or its file is missing, htmlText itself is returned.
func ResolveFrame(path, htmlText string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	frame := doc.Find("iframe#" + scheduleFrameID).First()
	if frame.Length() == 0 {
		frame = doc.Find("iframe[src]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return scheduleFrameSrcRegex.MatchString(s.AttrOr("src", ""))
		}).First()
	}
	src := strings.TrimSpace(frame.AttrOr("src", ""))
	if src == "" || IsURL(path) {
		return htmlText, nil
	}

	dir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	// saved pages keep query strings in src; the file on disk has none
	rel := strings.SplitN(src, "?", 2)[0]
	candidates := []string{
		filepath.Join(dir, filepath.FromSlash(rel)),
		filepath.Join(dir, stem+"_files", filepath.Base(filepath.FromSlash(rel))),
	}
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		slog.Info("reading schedule frame", "file", candidate)
		return decode(data, "text/html")
	}

	slog.Warn("schedule frame not found next to the saved page", "src", src)
	return htmlText, nil
}
