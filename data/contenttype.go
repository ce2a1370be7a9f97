package data

import (
	"path"
	"strings"
)

type ContentType string

const (
	ContentTypeTextPlain      ContentType = "text/plain"
	ContentTypeTextHTML       ContentType = "text/html"
	ContentTypeTextMarkdown   ContentType = "text/markdown"
	ContentTypeTextCSS        ContentType = "text/css"
	ContentTypeTextJavaScript ContentType = "text/javascript"
	ContentTypeImagePNG       ContentType = "image/png"
	ContentTypeImageJPEG      ContentType = "image/jpeg"
	ContentTypeImageSVGXML    ContentType = "image/svg+xml"
	ContentTypeJSON           ContentType = "application/json"
	ContentTypeIDL            ContentType = "text/x-idl"
	ContentTypeYAML           ContentType = "application/yaml"
	ContentTypeStream         ContentType = "application/octet-stream"
)

// ExtensionToMIME maps the extensions found in documentation sources.
var ExtensionToMIME = map[string]ContentType{
	".txt":  ContentTypeTextPlain,
	".html": ContentTypeTextHTML,
	".md":   ContentTypeTextMarkdown,
	".css":  ContentTypeTextCSS,
	".js":   ContentTypeTextJavaScript,
	".png":  ContentTypeImagePNG,
	".jpg":  ContentTypeImageJPEG,
	".jpeg": ContentTypeImageJPEG,
	".svg":  ContentTypeImageSVGXML,
	".json": ContentTypeJSON,
	".idl":  ContentTypeIDL,
	".yaml": ContentTypeYAML,
	".yml":  ContentTypeYAML,
}

// GetMIMEType returns the content type of path by its extension.
func GetMIMEType(p string) ContentType {
	if mimeType, exists := ExtensionToMIME[strings.ToLower(path.Ext(p))]; exists {
		return mimeType
	}

	return ContentTypeStream
}

// IsTemplate reports whether the content is rendered into a page.
func (ct ContentType) IsTemplate() bool {
	return ct == ContentTypeTextHTML || ct == ContentTypeTextMarkdown
}

