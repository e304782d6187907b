package notion

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// See https://developers.notion.com/reference/user
type User struct {
	Object    string `json:"object"`
	ID        string `json:"id"`
	Type      string `json:"type"` // person or bot
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Person    *struct {
		Email string `json:"email"`
	} `json:"person,omitempty"`
}

// See https://developers.notion.com/reference/page. Only the fields we use are decoded.
type Page struct {
	Object         string              `json:"object"`
	ID             string              `json:"id"`
	CreatedTime    string              `json:"created_time"`
	LastEditedTime string              `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	InTrash        bool                `json:"in_trash"`
	Parent         Parent              `json:"parent"`
	Properties     map[string]Property `json:"properties"`
	URL            string              `json:"url"`
}

// Parent types we care about.
const (
	DatabaseParent  = "database_id"
	PageParent      = "page_id"
	WorkspaceParent = "workspace"
	BlockParent     = "block_id"
)

// See https://developers.notion.com/reference/parent-object
type Parent struct {
	Type       string `json:"type"`
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// ID returns the identifier of whatever the parent is, or "" for the workspace.
func (p Parent) ID() string {
	switch p.Type {
	case DatabaseParent:
		return p.DatabaseID
	case PageParent:
		return p.PageID
	case BlockParent:
		return p.BlockID
	default:
		return ""
	}
}

// See https://developers.notion.com/reference/page-property-values. One struct for all of the
// types; only the field named by Type is populated.
type Property struct {
	ID          string        `json:"id,omitempty"`
	Type        string        `json:"type"`
	Title       []RichText    `json:"title,omitempty"`
	RichText    []RichText    `json:"rich_text,omitempty"`
	Checkbox    bool          `json:"checkbox,omitempty"`
	Select      *SelectValue  `json:"select,omitempty"`
	MultiSelect []SelectValue `json:"multi_select,omitempty"`
	Date        *DateValue    `json:"date,omitempty"`
	Number      *float64      `json:"number,omitempty"`
	URL         *string       `json:"url,omitempty"`
	Files       []File        `json:"files,omitempty"`
}

type SelectValue struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type DateValue struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// See https://developers.notion.com/reference/rich-text
type RichText struct {
	Type        string       `json:"type"`
	PlainText   string       `json:"plain_text"`
	Href        *string      `json:"href,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Text        *struct {
		Content string `json:"content"`
		Link    *struct {
			URL string `json:"url"`
		} `json:"link,omitempty"`
	} `json:"text,omitempty"`
	Equation *struct {
		Expression string `json:"expression"`
	} `json:"equation,omitempty"`
}

type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// File is either hosted by Notion (a signed, expiring S3 URL) or external.
type File struct {
	Type     string        `json:"type"` // file or external
	Name     string        `json:"name,omitempty"`
	File     *HostedFile   `json:"file,omitempty"`
	External *ExternalFile `json:"external,omitempty"`
}

type HostedFile struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

type ExternalFile struct {
	URL string `json:"url"`
}

// URL returns whichever of the two URLs is set.
func (f File) URL() string {
	if f.File != nil {
		return f.File.URL
	}
	if f.External != nil {
		return f.External.URL
	}
	return ""
}

// See https://developers.notion.com/reference/block. The per-type payload lives under a key
// named like the type; the text-ish types share a shape, so they share a struct.
type Block struct {
	Object      string `json:"object"`
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`

	Paragraph        *TextBlock `json:"paragraph,omitempty"`
	Heading1         *TextBlock `json:"heading_1,omitempty"`
	Heading2         *TextBlock `json:"heading_2,omitempty"`
	Heading3         *TextBlock `json:"heading_3,omitempty"`
	BulletedListItem *TextBlock `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextBlock `json:"numbered_list_item,omitempty"`
	ToDo             *TextBlock `json:"to_do,omitempty"`
	Toggle           *TextBlock `json:"toggle,omitempty"`
	Quote            *TextBlock `json:"quote,omitempty"`
	Callout          *TextBlock `json:"callout,omitempty"`
	Code             *TextBlock `json:"code,omitempty"`
	Image            *FileBlock `json:"image,omitempty"`
	Bookmark         *LinkBlock `json:"bookmark,omitempty"`
	Embed            *LinkBlock `json:"embed,omitempty"`
	Equation         *struct {
		Expression string `json:"expression"`
	} `json:"equation,omitempty"`
	TableRow *TableRow `json:"table_row,omitempty"`
	Table    *Table    `json:"table,omitempty"`

	// Filled in by GetBlockTree; not part of the API payload.
	Children []Block `json:"-"`
}

type TextBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked,omitempty"`  // to_do
	Language string     `json:"language,omitempty"` // code
	Caption  []RichText `json:"caption,omitempty"`  // code
	Icon     *struct {
		Type  string `json:"type"`
		Emoji string `json:"emoji,omitempty"`
	} `json:"icon,omitempty"` // callout
}

type Table struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

// The rows of a table are its children.
type TableRow struct {
	Cells [][]RichText `json:"cells"`
}

type FileBlock struct {
	File
	Caption []RichText `json:"caption,omitempty"`
}

type LinkBlock struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption,omitempty"`
}

// Text returns the text payload of the text-ish block types, or nil.
func (b Block) Text() *TextBlock {
	switch b.Type {
	case "paragraph":
		return b.Paragraph
	case "heading_1":
		return b.Heading1
	case "heading_2":
		return b.Heading2
	case "heading_3":
		return b.Heading3
	case "bulleted_list_item":
		return b.BulletedListItem
	case "numbered_list_item":
		return b.NumberedListItem
	case "to_do":
		return b.ToDo
	case "toggle":
		return b.Toggle
	case "quote":
		return b.Quote
	case "callout":
		return b.Callout
	case "code":
		return b.Code
	}
	return nil
}

// PlainText concatenates the plain text of each segment.
func PlainText(rt []RichText) string {
	var sb strings.Builder
	for _, t := range rt {
		sb.WriteString(t.PlainText)
	}
	return sb.String()
}

// NormaliseID returns the canonical dashed form of a Notion id. The API and page URLs use both
// the dashed and the 32-hex form for the same object.
func NormaliseID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("notion: not a valid object id '%s': %w", id, err)
	}
	return u.String(), nil
}
