package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRobotsPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	allowAll := NewRobotsPolicy(false, "siteaudit-test", nil)
	require.True(t, allowAll.Allowed(ctx, "https://example.com/whatever"))

	var robotsHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			fmt.Fprintln(w, "User-agent: *\nDisallow: /blocked")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	enforcer := NewRobotsPolicy(true, "siteaudit-test", nil)
	require.True(t, enforcer.Allowed(ctx, srv.URL+"/allowed"))
	require.False(t, enforcer.Allowed(ctx, srv.URL+"/blocked/page"))
	require.Equal(t, int32(1), robotsHits.Load())
}

func TestRobotsPolicyAllowsWhenUnreachable(t *testing.T) {
	t.Parallel()

	enforcer := NewRobotsPolicy(true, "siteaudit-test", nil)
	require.True(t, enforcer.Allowed(context.Background(), "http://127.0.0.1:1/page"))
}
