package localdump

import (
	"fmt"
	"strings"

	"github.com/toothbrush/notion-dump/notion"
)

// Database columns we give a meaning to.
const (
	PropName        = "Name"
	PropPublished   = "isPublished"
	PropFilepath    = "filepath"
	PropAuthor      = "Author"
	PropDraft       = "isDraft"
	PropUpdatedAt   = "UpdatedAt"
	PropTags        = "Tags"
	PropSection     = "Section"
	PropDescription = "Description"
	PropLinkTitle   = "linkTitle"
	PropWeight      = "weight"
	PropImage       = "Image"
)

type properties map[string]notion.Property

// text flattens title, rich text and select properties into a string.
func (p properties) text(name string) (string, bool) {
	prop, ok := p[name]
	if !ok {
		return "", false
	}
	switch {
	case len(prop.Title) > 0:
		return notion.PlainText(prop.Title), true
	case len(prop.RichText) > 0:
		return notion.PlainText(prop.RichText), true
	case prop.Select != nil:
		return prop.Select.Name, true
	case prop.URL != nil:
		return *prop.URL, true
	}
	return "", true
}

func (p properties) checkbox(name string) bool {
	prop, ok := p[name]
	return ok && prop.Type == "checkbox" && prop.Checkbox
}

func (p properties) date(name string) string {
	prop, ok := p[name]
	if !ok || prop.Date == nil {
		return ""
	}
	return prop.Date.Start
}

func (p properties) multiSelect(name string) []string {
	values := []string{}
	for _, v := range p[name].MultiSelect {
		values = append(values, v.Name)
	}
	return values
}

func (p properties) number(name string) (float64, bool) {
	prop, ok := p[name]
	if !ok || prop.Number == nil {
		return 0, false
	}
	return *prop.Number, true
}

// externalImage is the first file of the property if it's an external link. Notion-hosted files
// expire, so they're no use as a featured image.
func (p properties) externalImage(name string) string {
	files := p[name].Files
	if len(files) == 0 || files[0].External == nil {
		return ""
	}
	return files[0].External.URL
}

// RecordsFromPages reduces database rows to what the path resolver and change detector look at.
// Ids are normalised so the cache is keyed the same way whatever form the API used.
func RecordsFromPages(pages []notion.Page) ([]PageRecord, error) {
	records := make([]PageRecord, 0, len(pages))

	for i := range pages {
		page := &pages[i]

		id, err := notion.NormaliseID(page.ID)
		if err != nil {
			return nil, fmt.Errorf("localdump: page #%d: %w", i, err)
		}

		parentID := page.Parent.ID()
		if parentID != "" {
			if norm, err := notion.NormaliseID(parentID); err == nil {
				parentID = norm
			}
		}

		props := properties(page.Properties)
		name, _ := props.text(PropName)
		filepath, _ := props.text(PropFilepath)

		records = append(records, PageRecord{
			ID:             id,
			ParentID:       parentID,
			ParentType:     page.Parent.Type,
			Name:           name,
			Published:      props.checkbox(PropPublished),
			LastEditedTime: page.LastEditedTime,
			CreatedTime:    page.CreatedTime,
			Filepath:       strings.TrimSpace(filepath),
			Page:           page,
		})
	}

	return records, nil
}

// CustomProperty is an extra column copied into the front matter as-is.
type CustomProperty struct {
	Name string
	Type string // boolean or text
}

// ParseCustomProperty reads the "name:type" form used in the config file.
func ParseCustomProperty(s string) (CustomProperty, error) {
	name, typ, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return CustomProperty{}, fmt.Errorf("localdump: custom property should look like 'name:type', got '%s'", s)
	}
	switch typ {
	case "boolean", "text":
	default:
		return CustomProperty{}, fmt.Errorf("localdump: custom property %s: type must be boolean or text, got '%s'", name, typ)
	}
	return CustomProperty{Name: name, Type: typ}, nil
}

func (p properties) custom(c CustomProperty) any {
	if c.Type == "boolean" {
		return p.checkbox(c.Name)
	}
	s, _ := p.text(c.Name)
	return s
}

// weight keeps integral weights integral in the output.
func weightValue(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}
