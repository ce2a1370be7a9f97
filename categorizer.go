package docfs

import (
	"context"
	"path"
	"strings"

	"github.com/mwantia/docfs/compiled"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/filesystem"
)

// PublicTemplatesDirectory holds one template per documented extension API.
const PublicTemplatesDirectory = "docs/templates/public/extensions/"

type Category string

const (
	CategoryExperimental Category = "experimental"
	CategoryChrome       Category = "chrome"
	CategoryPrivate      Category = "private"
)

// APICategorizer sorts APIs by whether they are experimental, documented
// or private.
type APICategorizer struct {
	templates *compiled.FileSystem[map[string]bool]
}

func NewAPICategorizer(factory *compiled.Factory, fs filesystem.FileSystem) *APICategorizer {
	return &APICategorizer{
		templates: compiled.Create(factory, fs, "categorizer/templates", collectDocumented),
	}
}

func collectDocumented(src compiled.Source) (map[string]bool, error) {
	documented := make(map[string]bool, len(src.Files))
	for _, file := range src.Files {
		if strings.Contains(file, "/") || !data.GetMIMEType(file).IsTemplate() {
			continue
		}
		documented[strings.TrimSuffix(file, path.Ext(file))] = true
	}
	return documented, nil
}

// IsDocumented reports whether a public template exists for the API.
// A missing template directory documents nothing.
func (c *APICategorizer) IsDocumented(ctx context.Context, name string) (bool, error) {
	documented, err := c.templates.GetFromFileListing(ctx, PublicTemplatesDirectory)
	if err != nil {
		if data.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return documented[strings.ReplaceAll(name, ".", "_")], nil
}

func (c *APICategorizer) GetCategory(ctx context.Context, name string) (Category, error) {
	if strings.HasPrefix(name, "experimental.") {
		return CategoryExperimental, nil
	}

	documented, err := c.IsDocumented(ctx, name)
	if err != nil {
		return "", err
	}

	if documented {
		return CategoryChrome, nil
	}
	return CategoryPrivate, nil
}

func (c *APICategorizer) IsExperimental(name string) bool {
	return strings.HasPrefix(name, "experimental.")
}
