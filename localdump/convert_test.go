package localdump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/notion-dump/notion"
)

func text(s string) []notion.RichText {
	return []notion.RichText{{Type: "text", PlainText: s}}
}

func textBlock(kind, s string) notion.Block {
	b := notion.Block{Type: kind}
	tb := &notion.TextBlock{RichText: text(s)}
	switch kind {
	case "paragraph":
		b.Paragraph = tb
	case "heading_1":
		b.Heading1 = tb
	case "heading_2":
		b.Heading2 = tb
	case "bulleted_list_item":
		b.BulletedListItem = tb
	case "numbered_list_item":
		b.NumberedListItem = tb
	case "to_do":
		b.ToDo = tb
	case "quote":
		b.Quote = tb
	case "code":
		b.Code = tb
	}
	return b
}

func TestHTMLConverterBasics(t *testing.T) {
	bold := notion.RichText{Type: "text", PlainText: "loud", Annotations: &notion.Annotations{Bold: true}}
	href := "/0123456789abcdef0123456789abcdef"
	link := notion.RichText{Type: "text", PlainText: "other page", Href: &href}

	para := textBlock("paragraph", "Hello ")
	para.Paragraph.RichText = append(para.Paragraph.RichText, bold, notion.RichText{Type: "text", PlainText: " and "}, link)

	code := textBlock("code", "fmt.Println(1 < 2)")
	code.Code.Language = "go"

	done := textBlock("to_do", "Done")
	done.ToDo.Checked = true

	nested := textBlock("bulleted_list_item", "outer")
	nested.Children = []notion.Block{textBlock("bulleted_list_item", "inner")}

	got, err := NewHTMLConverter().Convert([]notion.Block{
		textBlock("heading_1", "Title"),
		para,
		nested,
		textBlock("bulleted_list_item", "second"),
		textBlock("numbered_list_item", "first step"),
		done,
		code,
		{Type: "divider"},
		textBlock("quote", "wise words"),
		imageBlock("img", legacyURL),
		{Type: "child_page"},
	})
	require.NoError(t, err)

	assert.Contains(t, got, "# Title")
	assert.Contains(t, got, "Hello **loud** and [other page](https://www.notion.so/0123456789abcdef0123456789abcdef)")
	assert.Contains(t, got, "- outer")
	assert.Contains(t, got, "- inner")
	assert.Contains(t, got, "- second")
	assert.Contains(t, got, "1. first step")
	assert.Contains(t, got, "- [x] Done")
	assert.NotContains(t, got, "[x]  Done")
	assert.Contains(t, got, "```go\nfmt.Println(1 < 2)\n```")
	assert.Contains(t, got, "---")
	assert.Contains(t, got, "> wise words")
	assert.Contains(t, got, "![]("+legacyURL+")", "signed image URL survives conversion intact")
}

func TestHTMLConverterTable(t *testing.T) {
	table := notion.Block{Type: "table", Table: &notion.Table{TableWidth: 2, HasColumnHeader: true}}

	for _, row := range [][]string{{"Name", "Size"}, {"a", "1"}} {
		r := notion.Block{Type: "table_row", TableRow: &notion.TableRow{}}
		for _, c := range row {
			r.TableRow.Cells = append(r.TableRow.Cells, text(c))
		}
		table.Children = append(table.Children, r)
	}

	got, err := NewHTMLConverter().Convert([]notion.Block{table})
	require.NoError(t, err)

	assert.Contains(t, got, "| Name | Size |")
	assert.Contains(t, got, "| a | 1 |")
}

func TestHTMLConverterEmpty(t *testing.T) {
	got, err := NewHTMLConverter().Convert(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
