package checks

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/services/sitemeta"
)

func TestBackendChecksDegradeToReview(t *testing.T) {
	t.Parallel()

	for name, fn := range backendChecks {
		for _, deps := range []Deps{
			{},
			{SiteMeta: fakeSiteMeta{err: sitemeta.ErrUnavailable}},
			{SiteMeta: fakeSiteMeta{err: fmt.Errorf("site-check: %w", errors.New("timeout"))}},
		} {
			res := single(t, fn, rule("WP-001", nil), site(t), deps)
			require.Equal(t, audit.StatusHumanReview, res.Status, name)
		}
	}
}

func TestPluginsAndThemesUpdated(t *testing.T) {
	t.Parallel()

	meta := siteMeta(t, `{
		"plugins": [
			{"name": "Yoast SEO", "version": "21.0", "active": true, "update_available": true, "new_version": "22.1"},
			{"name": "Old Slider", "version": "1.0", "active": false, "update_available": true, "new_version": "2.0"}
		],
		"themes": [{"name": "Divi", "version": "4.2", "active": true}]
	}`)
	deps := Deps{SiteMeta: meta}

	res := single(t, pluginsUpdated, rule("WP-001", nil), site(t), deps)
	require.Equal(t, audit.StatusFail, res.Status)
	require.Contains(t, res.Details, "Yoast SEO: 21.0 -> 22.1")
	require.NotContains(t, res.Details, "Old Slider")

	res = single(t, themesUpdated, rule("WP-002", nil), site(t), deps)
	require.Equal(t, audit.StatusPass, res.Status)
}

func TestOldMediaDeletedCapsDetail(t *testing.T) {
	t.Parallel()

	files := ""
	for i := 0; i < 12; i++ {
		if i > 0 {
			files += ","
		}
		files += fmt.Sprintf(`{"filename": "demo-%d.jpg", "date": "2023-01-02T10:00:00", "pattern": "demo"}`, i)
	}
	deps := Deps{SiteMeta: siteMeta(t, `{"media": {"template_files": [`+files+`]}}`)}

	res := single(t, oldMediaDeleted, rule("WP-004", nil), site(t), deps)
	require.Equal(t, audit.StatusWarn, res.Status)
	require.Contains(t, res.Details, "12 potential leftover media file(s)")
	require.Contains(t, res.Details, "uploaded 2023-01-02")
	require.Contains(t, res.Details, "and 2 more")
	require.NotContains(t, res.Details, "demo-10.jpg")
}

func TestFormNotifications(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   string
		params map[string]any
		want   audit.Status
		detail string
	}{
		{
			name:   "uninspectable plugin",
			data:   `{"plugins": [{"name": "Contact Form 7", "slug": "contact-form-7", "active": true}], "forms": {"form_plugin": "none"}}`,
			want:   audit.StatusHumanReview,
			detail: "Uses Contact Form 7",
		},
		{
			name: "no plugin",
			data: `{"forms": {"form_plugin": "none"}}`,
			want: audit.StatusWarn,
		},
		{
			name:   "no active forms",
			data:   `{"forms": {"form_plugin": "gravity_forms", "forms": [{"title": "Contact", "is_active": false}]}}`,
			want:   audit.StatusWarn,
			detail: "Gravity Forms active but no active forms found",
		},
		{
			name: "misdirected",
			data: `{"forms": {"form_plugin": "wpforms", "forms": [
				{"title": "Contact", "is_active": true, "notifications": [{"name": "Admin", "is_active": true, "to": "old@agency.test"}]},
				{"title": "Careers", "is_active": true, "notifications": [{"name": "HR", "is_active": false, "to": "hr@clinic.test"}]}
			]}}`,
			params: map[string]any{"expected_email": "front@clinic.test"},
			want:   audit.StatusFail,
			detail: "Contact: Sends to 'old@agency.test', expected 'front@clinic.test'",
		},
		{
			name: "configured",
			data: `{"forms": {"form_plugin": "gravity_forms", "forms": [
				{"title": "Contact", "is_active": true, "notifications": [{"name": "Admin", "is_active": true, "to": "Front@Clinic.test"}]}
			]}}`,
			params: map[string]any{"expected_email": "front@clinic.test"},
			want:   audit.StatusPass,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := single(t, formNotifications, rule("WP-005", tt.params), site(t), Deps{SiteMeta: siteMeta(t, tt.data)})
			require.Equal(t, tt.want, res.Status)
			require.Contains(t, res.Details, tt.detail)
		})
	}
}

func TestTimezone(t *testing.T) {
	t.Parallel()

	texas := site(t,
		fixturePage{seed, `<html><body><p>Welcome</p><footer>123 Main St, Austin, TX 78701</footer></body></html>`},
	)
	noAddress := site(t, fixturePage{seed, `<html><body><p>Welcome</p></body></html>`})

	tests := []struct {
		name  string
		pages *audit.CrawlResult
		data  string
		want  audit.Status
	}{
		{"exact", texas, `{"settings": {"timezone_string": "America/Chicago"}}`, audit.StatusPass},
		{"same region", texas, `{"settings": {"timezone_string": "America/Denver"}}`, audit.StatusPass},
		{"utc with address", texas, `{"settings": {"timezone_string": "", "gmt_offset": 0}}`, audit.StatusFail},
		{"other region", texas, `{"settings": {"timezone_string": "Europe/London"}}`, audit.StatusWarn},
		{"utc without address", noAddress, `{"settings": {}}`, audit.StatusFail},
		{"offset without address", noAddress, `{"settings": {"gmt_offset": "-5"}}`, audit.StatusPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := single(t, timezoneMatches, rule("WP-003", nil), tt.pages, Deps{SiteMeta: siteMeta(t, tt.data)})
			require.Equal(t, tt.want, res.Status)
		})
	}
}

func TestStateFromAddress(t *testing.T) {
	t.Parallel()

	require.Equal(t, "tx", stateFromAddress("Visit us at 1 Elm St, Austin, TX 78701"))
	require.Equal(t, "west virginia", stateFromAddress("serving Charleston, West Virginia since 1990"))
	require.Equal(t, "", stateFromAddress("no address here"))
	require.Equal(t, "America/Indiana/Indianapolis", stateTimezones[stateFromAddress("Carmel, IN 46032")])
}
