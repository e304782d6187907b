package localdump

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const DefaultAuthor = "Writer"

type FrontMatterFormat string

const (
	YAMLFrontMatter FrontMatterFormat = "yaml"
	TOMLFrontMatter FrontMatterFormat = "toml"
)

func ParseFrontMatterFormat(s string) (FrontMatterFormat, error) {
	switch FrontMatterFormat(strings.ToLower(s)) {
	case "", YAMLFrontMatter:
		return YAMLFrontMatter, nil
	case TOMLFrontMatter:
		return TOMLFrontMatter, nil
	}
	return "", fmt.Errorf("localdump: front matter format must be yaml or toml, got '%s'", s)
}

type FrontMatterOptions struct {
	// Used when the page has no Author.
	Author string

	// Date-only values are anchored to midnight here. nil means UTC.
	Location *time.Location

	CustomProperties []CustomProperty

	// Front matter keys that must be present and non-empty. None by default; an untitled page is
	// still a page.
	Required []string
}

// BuildFrontMatter maps a page's properties onto Hugo front matter. Anything Hugo itself doesn't
// use lives under "sys".
func BuildFrontMatter(rec PageRecord, opts FrontMatterOptions) (map[string]any, error) {
	if rec.Page == nil {
		return nil, fmt.Errorf("%w: page %s has no listing data", ErrMissingRequiredMetadata, rec.ID)
	}
	if rec.Page.Archived || rec.Page.InTrash {
		return nil, fmt.Errorf("%w: page %s is archived but marked %s; check its publishing settings",
			ErrMissingRequiredMetadata, rec.ID, PropPublished)
	}

	props := properties(rec.Page.Properties)

	sys := map[string]any{
		"pageId":         rec.ID,
		"createdTime":    rec.CreatedTime,
		"lastEditedTime": rec.LastEditedTime,
	}
	if rec.Filepath != "" {
		sys["propFilepath"] = rec.Filepath
	}

	date, err := anchorDate(rec.LastEditedTime, opts.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: page %s: %w", ErrMissingRequiredMetadata, rec.ID, err)
	}

	author := opts.Author
	if author == "" {
		author = DefaultAuthor
	}
	if a, _ := props.text(PropAuthor); a != "" {
		author = a
	}

	description, _ := props.text(PropDescription)

	fm := map[string]any{
		"sys":         sys,
		"title":       rec.Name,
		"date":        date,
		"description": description,
		"tags":        props.multiSelect(PropTags),
		"author":      author,
		"draft":       props.checkbox(PropDraft),
	}

	if section, ok := props.text(PropSection); ok && section != "" {
		fm["section"] = section
	}

	if updated := props.date(PropUpdatedAt); updated != "" {
		lastmod, err := anchorDate(updated, opts.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: page %s: %s: %w", ErrMissingRequiredMetadata, rec.ID, PropUpdatedAt, err)
		}
		fm["lastmod"] = lastmod
	}

	if img := props.externalImage(PropImage); img != "" {
		fm["featured_image"] = img
		fm["images"] = []string{img}
	}

	if linkTitle, ok := props.text(PropLinkTitle); ok && linkTitle != "" {
		fm["linkTitle"] = linkTitle
	}

	if w, ok := props.number(PropWeight); ok {
		fm["weight"] = weightValue(w)
	}

	for _, c := range opts.CustomProperties {
		fm[c.Name] = props.custom(c)
	}

	for _, key := range opts.Required {
		if isBlank(fm[key]) {
			return nil, fmt.Errorf("%w: page %s has no %s", ErrMissingRequiredMetadata, rec.ID, key)
		}
	}

	return fm, nil
}

// anchorDate passes timestamps through and turns a bare date into midnight in loc.
func anchorDate(s string, loc *time.Location) (string, error) {
	if s == "" || !IsDateOnly(s) {
		return s, nil
	}
	t, err := ParseTimestamp(s, loc)
	if err != nil {
		return "", err
	}
	return t.Format(time.RFC3339), nil
}

func isBlank(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	}
	return false
}

// RenderPage glues front matter and body together, Hugo style.
func RenderPage(fm map[string]any, body string, format FrontMatterFormat) (string, error) {
	var header []byte
	delim := "---"

	switch format {
	case TOMLFrontMatter:
		delim = "+++"
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(fm); err != nil {
			return "", fmt.Errorf("localdump: couldn't marshal TOML front matter: %w", err)
		}
		header = buf.Bytes()
	default:
		var err error
		header, err = yaml.Marshal(fm)
		if err != nil {
			return "", fmt.Errorf("localdump: couldn't marshal YAML front matter: %w", err)
		}
	}

	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", delim, strings.TrimSpace(string(header)), delim, body), nil
}
