package localdump

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	mdplugin "github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/toothbrush/notion-dump/notion"
)

// Converter renders a page's block tree as Markdown.
type Converter interface {
	Convert(blocks []notion.Block) (string, error)
}

// NotionWebURI is where mentions of other pages resolve to. The API hands them out as bare
// "/<page id>" paths.
const NotionWebURI = "https://www.notion.so"

// HTMLConverter renders blocks to an HTML fragment and lets html-to-markdown do the Markdown
// part, so escaping, tables and nested lists behave the way they do for any other HTML input.
type HTMLConverter struct {
	converter *md.Converter
}

func NewHTMLConverter() *HTMLConverter {
	base, _ := url.Parse(NotionWebURI)

	opt := &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		// md.NewConverter only takes a hostname, so the scheme is fixed up here. Same idea as
		// https://github.com/JohannesKaufmann/html-to-markdown/issues/44
		GetAbsoluteURL: func(selec *goquery.Selection, rawURL string, domain string) string {
			u, err := url.Parse(rawURL)
			if err != nil {
				return rawURL
			}
			if u.Scheme != "" || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
				// absolute already, or a fragment/relative link we shouldn't touch
				return rawURL
			}
			return base.ResolveReference(u).String()
		},
	}

	converter := md.NewConverter(base.Host, true, opt)
	// Github flavoured Markdown knows about tables and task lists
	converter.Use(mdplugin.GitHubFlavored())

	return &HTMLConverter{converter: converter}
}

func (c *HTMLConverter) Convert(blocks []notion.Block) (string, error) {
	var sb strings.Builder
	renderBlocks(&sb, blocks)

	markdown, err := c.converter.ConvertString(sb.String())
	if err != nil {
		return "", fmt.Errorf("localdump: failed to convert to Markdown: %w", err)
	}
	return markdown, nil
}

func renderBlocks(sb *strings.Builder, blocks []notion.Block) {
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]

		// consecutive list items of one kind share a single list element
		if tag := listTag(b.Type); tag != "" {
			sb.WriteString("<" + tag + ">")
			for ; i < len(blocks) && blocks[i].Type == b.Type; i++ {
				renderListItem(sb, blocks[i])
			}
			sb.WriteString("</" + tag + ">")
			i--
			continue
		}

		renderBlock(sb, b)
	}
}

func listTag(blockType string) string {
	switch blockType {
	case "bulleted_list_item", "to_do":
		return "ul"
	case "numbered_list_item":
		return "ol"
	}
	return ""
}

func renderListItem(sb *strings.Builder, b notion.Block) {
	sb.WriteString("<li>")
	if t := b.Text(); t != nil {
		if b.Type == "to_do" {
			if t.Checked {
				sb.WriteString(`<input type="checkbox" checked>`)
			} else {
				sb.WriteString(`<input type="checkbox">`)
			}
		}
		renderRichText(sb, t.RichText)
	}
	renderBlocks(sb, b.Children)
	sb.WriteString("</li>")
}

func renderBlock(sb *strings.Builder, b notion.Block) {
	t := b.Text()

	switch b.Type {
	case "paragraph", "toggle":
		if t != nil {
			wrap(sb, "p", t.RichText)
		}
		renderBlocks(sb, b.Children)

	case "heading_1", "heading_2", "heading_3":
		if t != nil {
			wrap(sb, "h"+b.Type[len(b.Type)-1:], t.RichText)
		}
		renderBlocks(sb, b.Children)

	case "quote", "callout":
		sb.WriteString("<blockquote><p>")
		if t != nil {
			if t.Icon != nil && t.Icon.Emoji != "" {
				sb.WriteString(html.EscapeString(t.Icon.Emoji) + " ")
			}
			renderRichText(sb, t.RichText)
		}
		sb.WriteString("</p>")
		renderBlocks(sb, b.Children)
		sb.WriteString("</blockquote>")

	case "code":
		if t == nil {
			return
		}
		fence(sb, t.Language, notion.PlainText(t.RichText))

	case "equation":
		if b.Equation != nil {
			fence(sb, "math", b.Equation.Expression)
		}

	case "image":
		if b.Image == nil {
			return
		}
		fmt.Fprintf(sb, `<p><img src="%s" alt="%s"></p>`,
			html.EscapeString(b.Image.URL()),
			html.EscapeString(notion.PlainText(b.Image.Caption)))

	case "bookmark", "embed":
		link := b.Bookmark
		if b.Type == "embed" {
			link = b.Embed
		}
		if link == nil {
			return
		}
		caption := notion.PlainText(link.Caption)
		if caption == "" {
			caption = link.URL
		}
		fmt.Fprintf(sb, `<p><a href="%s">%s</a></p>`, html.EscapeString(link.URL), html.EscapeString(caption))

	case "divider":
		sb.WriteString("<hr/>")

	case "table":
		renderTable(sb, b)

	default:
		// child_page and child_database are separate pages in the dump; anything else we don't
		// know how to render is dropped, but its children might still be text.
		if b.Type != "child_page" && b.Type != "child_database" {
			renderBlocks(sb, b.Children)
		}
	}
}

func renderTable(sb *strings.Builder, b notion.Block) {
	header := b.Table != nil && b.Table.HasColumnHeader

	sb.WriteString("<table>")
	for i, row := range b.Children {
		if row.TableRow == nil {
			continue
		}
		cell := "td"
		if i == 0 && header {
			cell = "th"
			sb.WriteString("<thead>")
		}
		sb.WriteString("<tr>")
		for _, c := range row.TableRow.Cells {
			wrap(sb, cell, c)
		}
		sb.WriteString("</tr>")
		if i == 0 && header {
			sb.WriteString("</thead>")
		}
	}
	sb.WriteString("</table>")
}

func fence(sb *strings.Builder, language, code string) {
	if language != "" && language != "plain text" {
		fmt.Fprintf(sb, `<pre><code class="language-%s">`, html.EscapeString(strings.ReplaceAll(language, " ", "-")))
	} else {
		sb.WriteString("<pre><code>")
	}
	sb.WriteString(html.EscapeString(code))
	sb.WriteString("</code></pre>")
}

func wrap(sb *strings.Builder, tag string, rt []notion.RichText) {
	sb.WriteString("<" + tag + ">")
	renderRichText(sb, rt)
	sb.WriteString("</" + tag + ">")
}

func renderRichText(sb *strings.Builder, rt []notion.RichText) {
	for _, t := range rt {
		text := html.EscapeString(t.PlainText)
		if t.Type == "equation" && t.Equation != nil {
			text = "$" + html.EscapeString(t.Equation.Expression) + "$"
		}

		if a := t.Annotations; a != nil {
			if a.Code {
				text = "<code>" + text + "</code>"
			}
			if a.Bold {
				text = "<strong>" + text + "</strong>"
			}
			if a.Italic {
				text = "<em>" + text + "</em>"
			}
			if a.Strikethrough {
				text = "<del>" + text + "</del>"
			}
		}

		if t.Href != nil && *t.Href != "" {
			text = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(*t.Href), text)
		}

		sb.WriteString(text)
	}
}
