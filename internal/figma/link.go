// Package figma maps a Figma design onto resume content and generates a
// React component from the result.
package figma

import (
	"net/url"
	"strings"

	"github.com/fadilmartias/cv-builder/internal/apperror"
)

// Link is a parsed Figma file URL. NodeID keeps the form used in the URL
// ("1-2"); APINodeID converts it for the REST API.
type Link struct {
	FileKey string `json:"fileKey"`
	NodeID  string `json:"nodeId,omitempty"`
}

func (l Link) APINodeID() string {
	return strings.ReplaceAll(l.NodeID, "-", ":")
}

func invalidLink(msg string) error {
	return apperror.New(apperror.CodeInvalidFigmaLink, msg)
}

// ParseLink accepts figma.com/file/<key>/... and figma.com/design/<key>/...
// with an optional node-id query parameter.
func ParseLink(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Link{}, invalidLink("Figma link is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return Link{}, invalidLink("Figma link must be a valid URL")
	}
	host := strings.ToLower(u.Hostname())
	if host != "figma.com" && host != "www.figma.com" {
		return Link{}, invalidLink("Link must point to figma.com")
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if (seg == "file" || seg == "design") && i+1 < len(segments) && segments[i+1] != "" {
			return Link{
				FileKey: segments[i+1],
				NodeID:  u.Query().Get("node-id"),
			}, nil
		}
	}
	return Link{}, invalidLink("Figma link must contain /file/ or /design/ followed by a file key")
}
