package common

import (
	"net/http"
	"strconv"
	"strings"
)

// QueryParams represents common query parameters for read endpoints
type QueryParams struct {
	Limit    int      `json:"limit"`
	MaxDepth int      `json:"max_depth"`
	Roots    []string `json:"roots,omitempty"`
	Language string   `json:"language,omitempty"`
	Type     string   `json:"type,omitempty"`
}

// ExtractLimitParam extracts and clamps a limit query parameter.
// Zero or absent yields def; values above max are clamped.
func ExtractLimitParam(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ExtractDepthParam extracts a max_depth query parameter. Absent yields def;
// an explicit non-numeric or non-positive value is returned as-is so the
// query layer can reject it.
func ExtractDepthParam(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("max_depth")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractListParam extracts a comma-separated query parameter as a slice
func ExtractListParam(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
