package services

import (
	"errors"
	"net/url"
	"strings"
)

// URLLocator serves source documents through the content download route of
// this API.
type URLLocator struct {
	BaseURL string
}

func (l URLLocator) DownloadURL(sourceRef string) (string, error) {
	sourceRef = strings.TrimSpace(sourceRef)
	if sourceRef == "" {
		return "", errors.New("source document reference is empty")
	}
	return strings.TrimRight(l.BaseURL, "/") + "/api/content/download?path=" + url.QueryEscape(sourceRef), nil
}
