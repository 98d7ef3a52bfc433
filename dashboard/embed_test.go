package dashboard

import (
	"io/fs"
	"strings"
	"testing"
)

func TestAssets_IndexHasTitlePlaceholder(t *testing.T) {
	content, err := fs.ReadFile(Assets, "assets/index.html")
	if err != nil {
		t.Fatalf("reading index.html: %v", err)
	}
	if got := strings.Count(string(content), "{{.Title}}"); got != 2 {
		t.Errorf("title placeholder count = %d, want 2", got)
	}
	for _, path := range []string{"/api/sse", "/api/series", "/api/table", "/api/fields", "/api/refresh"} {
		if !strings.Contains(string(content), path) {
			t.Errorf("index.html does not use %s", path)
		}
	}
}

func TestAssets_IndexHasViewModes(t *testing.T) {
	content, err := fs.ReadFile(Assets, "assets/index.html")
	if err != nil {
		t.Fatalf("reading index.html: %v", err)
	}
	for _, mode := range []string{"all", "total", "individual", "table"} {
		if !strings.Contains(string(content), `data-mode="`+mode+`"`) {
			t.Errorf("index.html has no %q view", mode)
		}
	}
}
