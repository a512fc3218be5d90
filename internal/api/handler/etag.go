package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/stagehand-music/stagehand/internal/domain"
)

// GenerateETag builds a strong ETag for a versioned resource.
// Format: "<resource_type>-<id>-<version>"
func GenerateETag(resourceType, id string, version int) string {
	return fmt.Sprintf(`"%s-%s-%d"`, resourceType, id, version)
}

// SetRackETag sets the ETag header to the rack's layout version.
func SetRackETag(w http.ResponseWriter, rackID string, version int) {
	w.Header().Set("ETag", GenerateETag("rack", rackID, version))
}

// RackIfMatch returns the layout version named by the If-Match header.
// It returns nil when the header is absent or "*". A header naming another
// resource, or one that cannot be parsed, fails with
// domain.ErrPreconditionFailed.
func RackIfMatch(r *http.Request, rackID string) (*int, error) {
	ifMatch := strings.TrimSpace(r.Header.Get("If-Match"))
	if ifMatch == "" || ifMatch == "*" {
		return nil, nil
	}

	tag := strings.TrimPrefix(ifMatch, "W/")
	tag = strings.Trim(tag, `"`)
	prefix := "rack-" + rackID + "-"
	if !strings.HasPrefix(tag, prefix) {
		return nil, fmt.Errorf("%w: If-Match %s does not name rack %s", domain.ErrPreconditionFailed, ifMatch, rackID)
	}
	version, err := strconv.Atoi(strings.TrimPrefix(tag, prefix))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed If-Match %s", domain.ErrPreconditionFailed, ifMatch)
	}
	return &version, nil
}
