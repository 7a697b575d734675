package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/config"
	"github.com/JakeFAU/siteaudit/internal/id/uuid"
	"github.com/JakeFAU/siteaudit/internal/storage"
)

// Write renders r in format to w.
func Write(w io.Writer, format string, r *audit.ScanReport) error {
	switch format {
	case config.FormatJSON, "":
		return WriteJSON(w, r)
	case config.FormatMarkdown:
		return WriteMarkdown(w, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if format == config.FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "application/json"
}

// ObjectName is the key a report is stored under:
// <host>/<phase>-<yyyymmdd-hhmmss>-<scan id prefix>.<ext>.
func ObjectName(r *audit.ScanReport, format string) string {
	host := "site"
	if u, err := url.Parse(r.SiteURL); err == nil && u.Hostname() != "" {
		host = strings.TrimPrefix(u.Hostname(), "www.")
	}
	ext := "json"
	if format == config.FormatMarkdown {
		ext = "md"
	}
	name := fmt.Sprintf("%s-%s", r.Phase, r.ScanTime.UTC().Format("20060102-150405"))
	if r.ScanID != "" {
		name += "-" + uuid.Short(r.ScanID)
	}
	return host + "/" + name + "." + ext
}

// Publish renders r and stores it under prefix, returning the object URI.
func Publish(ctx context.Context, store storage.BlobStore, prefix, format string, r *audit.ScanReport) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, format, r); err != nil {
		return "", err
	}
	key := ObjectName(r, format)
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	uri, err := store.PutObject(ctx, key, ContentType(format), &buf)
	if err != nil {
		return "", fmt.Errorf("publish report %s: %w", key, err)
	}
	return uri, nil
}
