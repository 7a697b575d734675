package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/services/sitemeta"
)

// Backend checks read CMS metadata through the site-check endpoint. Catalogs
// may name them even where no endpoint is configured.
var backendChecks = map[string]Func{
	"check_plugins_updated":    pluginsUpdated,
	"check_themes_updated":     themesUpdated,
	"check_timezone":           timezoneMatches,
	"check_old_media_deleted":  oldMediaDeleted,
	"check_form_notifications": formNotifications,
}

func registerBackend(r *Registry) {
	for name, fn := range backendChecks {
		r.Register(name, fn)
		r.MarkOptional(name)
	}
}

// siteData loads backend metadata, or returns the HUMAN_REVIEW result to
// report when it cannot.
func siteData(ctx context.Context, in Input, where string) (*sitemeta.SiteData, []audit.CheckResult) {
	if in.Deps.SiteMeta == nil {
		return nil, []audit.CheckResult{audit.HumanReview(in.Rule, "Site check endpoint not configured. Verify manually in %s.", where)}
	}
	data, err := in.Deps.SiteMeta.Data(ctx)
	if errors.Is(err, sitemeta.ErrUnavailable) {
		return nil, []audit.CheckResult{audit.HumanReview(in.Rule, "Site QA plugin not detected on this site. Install the plugin or verify manually in %s.", where)}
	}
	if err != nil {
		return nil, []audit.CheckResult{audit.HumanReview(in.Rule, "Could not read site metadata: %v", err)}
	}
	return data, nil
}

func pluginsUpdated(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	data, degraded := siteData(ctx, in, "wp-admin > Plugins")
	if degraded != nil {
		return degraded, nil
	}
	outdated := data.OutdatedPlugins()
	if len(outdated) == 0 {
		return []audit.CheckResult{audit.Pass(in.Rule, "All plugins are up to date")}, nil
	}
	var b strings.Builder
	b.WriteString("Plugins need updates:")
	for _, p := range outdated {
		fmt.Fprintf(&b, "\n  - %s: %s -> %s", p.Name, p.Version, p.NewVersion)
	}
	return []audit.CheckResult{audit.Fail(in.Rule, "%s", b.String())}, nil
}

func themesUpdated(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	data, degraded := siteData(ctx, in, "wp-admin > Appearance > Themes")
	if degraded != nil {
		return degraded, nil
	}
	outdated := data.OutdatedThemes()
	if len(outdated) == 0 {
		return []audit.CheckResult{audit.Pass(in.Rule, "All themes are up to date")}, nil
	}
	var b strings.Builder
	b.WriteString("Themes need updates:")
	for _, t := range outdated {
		fmt.Fprintf(&b, "\n  - %s: %s -> %s", t.Name, t.Version, t.NewVersion)
	}
	return []audit.CheckResult{audit.Fail(in.Rule, "%s", b.String())}, nil
}

const mediaDetail = 10

func oldMediaDeleted(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	data, degraded := siteData(ctx, in, "wp-admin > Media")
	if degraded != nil {
		return degraded, nil
	}
	files := data.Media.TemplateFiles
	if len(files) == 0 {
		return []audit.CheckResult{audit.Pass(in.Rule, "No old/template media files detected in library")}, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d potential leftover media file(s) found:", len(files))
	for i, f := range files {
		if i == mediaDetail {
			fmt.Fprintf(&b, "\n  ... and %d more", len(files)-mediaDetail)
			break
		}
		uploaded := "unknown"
		if len(f.Date) >= 10 {
			uploaded = f.Date[:10]
		}
		fmt.Fprintf(&b, "\n  - %s (template filename (contains '%s'), uploaded %s)", f.Filename, f.Pattern, uploaded)
	}
	return []audit.CheckResult{audit.Warn(in.Rule, "%s", b.String())}, nil
}

var uninspectableFormPlugins = []struct{ key, name string }{
	{"contact-form-7", "Contact Form 7"},
	{"ninja-forms", "Ninja Forms"},
	{"formidable", "Formidable Forms"},
	{"everest-forms", "Everest Forms"},
}

func formNotifications(ctx context.Context, in Input) ([]audit.CheckResult, error) {
	data, degraded := siteData(ctx, in, "wp-admin > Forms")
	if degraded != nil {
		return degraded, nil
	}
	forms := data.Forms
	if forms.FormPlugin == "" || forms.FormPlugin == "none" {
		var others []string
		for _, p := range data.Plugins {
			if !p.Active {
				continue
			}
			name := strings.ToLower(p.Name + " " + p.Slug)
			for _, fp := range uninspectableFormPlugins {
				if strings.Contains(name, fp.key) {
					others = append(others, fp.name)
					break
				}
			}
		}
		if len(others) > 0 {
			return []audit.CheckResult{audit.HumanReview(in.Rule, "Uses %s. Verify notifications manually.", strings.Join(others, ", "))}, nil
		}
		return []audit.CheckResult{audit.Warn(in.Rule, "No form plugin detected. Verify a contact form exists and notifications are configured.")}, nil
	}

	plugin := "WPForms"
	if forms.FormPlugin == "gravity_forms" {
		plugin = "Gravity Forms"
	}
	if len(forms.Forms) == 0 {
		return []audit.CheckResult{audit.Warn(in.Rule, "%s active but no forms found", plugin)}, nil
	}

	expected := strings.ToLower(in.Rule.String("expected_email", ""))
	var issues []string
	checked := 0
	for _, f := range forms.Forms {
		if !f.IsActive {
			continue
		}
		checked++
		title := f.Title
		if title == "" {
			title = "Untitled"
		}
		issues = append(issues, notificationIssues(title, f.Notifications, expected)...)
	}
	if checked == 0 {
		return []audit.CheckResult{audit.Warn(in.Rule, "%s active but no active forms found", plugin)}, nil
	}
	if len(issues) > 0 {
		return []audit.CheckResult{audit.Fail(in.Rule, "Form notification issues found:\n  - %s", strings.Join(issues, "\n  - "))}, nil
	}
	return []audit.CheckResult{audit.Pass(in.Rule, "All form notifications are correctly configured")}, nil
}

func notificationIssues(form string, notes []sitemeta.Notification, expected string) []string {
	if len(notes) == 0 {
		return []string{form + ": No notifications configured"}
	}
	var active []sitemeta.Notification
	for _, n := range notes {
		if n.IsActive {
			active = append(active, n)
		}
	}
	if len(active) == 0 {
		return []string{form + ": All notifications are disabled"}
	}
	var issues []string
	for _, n := range active {
		switch {
		case n.To == "":
			issues = append(issues, form+": No recipient email configured")
		case expected != "" && !strings.Contains(strings.ToLower(n.To), expected):
			issues = append(issues, fmt.Sprintf("%s: Sends to '%s', expected '%s'", form, n.To, expected))
		}
	}
	return issues
}
