package localdump

import (
	"fmt"
	"strings"

	"github.com/toothbrush/notion-dump/notion"
)

// DefaultIndexFile is what a container page's own content is written to. Hugo treats _index.md
// as a section (list) page, which keeps the child pages visible.
const DefaultIndexFile = "_index.md"

type PathOptions struct {
	IndexFile string
}

type treeNode struct {
	name      string
	parentID  string
	container bool
	reachable bool

	// false for placeholders synthesised from a parent pointer we have no record for.
	known bool
}

type idTable map[string]*treeNode

// ResolvePaths decides, for every record, whether it is dumped and where to. Records are related
// only by parent pointers, so the whole list is read before any container flag is trusted.
func ResolvePaths(records []PageRecord, opts PathOptions) ([]PathEntry, error) {
	indexFile := opts.IndexFile
	if indexFile == "" {
		indexFile = DefaultIndexFile
	}

	table := buildIDTable(records)

	if err := table.checkAcyclic(records); err != nil {
		return nil, err
	}

	table.markReachable(records)

	entries := make([]PathEntry, 0, len(records))
	for _, r := range records {
		node := table[r.ID]
		entry := PathEntry{
			ID:          r.ID,
			IsContainer: node.container,
			Reachable:   node.reachable,
			Record:      r,
		}

		if r.Published || (node.container && node.reachable) {
			if r.Filepath != "" {
				entry.Path = r.Filepath
			} else {
				entry.Path = table.pathFor(r.ID, indexFile)
			}
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func buildIDTable(records []PageRecord) idTable {
	table := make(idTable, len(records))

	for _, r := range records {
		if r.ParentID != "" {
			if parent, ok := table[r.ParentID]; ok {
				parent.container = true
			} else if r.ParentType != notion.DatabaseParent {
				// We haven't seen the parent yet (or never will). Pre-create it; its own record
				// fills in the rest if it turns up later.
				table[r.ParentID] = &treeNode{container: true}
			}
		}

		node, ok := table[r.ID]
		if !ok {
			node = &treeNode{}
			table[r.ID] = node
		}
		node.name = r.Name
		node.parentID = r.ParentID
		node.known = true
	}

	return table
}

// checkAcyclic walks up from every record. Each node is finished at most once, so the whole check
// is linear in the number of records.
func (t idTable) checkAcyclic(records []PageRecord) error {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[string]int, len(t))

	for _, r := range records {
		path := []string{}
		id := r.ID

		for {
			node, ok := t[id]
			if !ok || !node.known || state[id] == done {
				break
			}
			if state[id] == onPath {
				return fmt.Errorf("%w: page %s is its own ancestor (via %s)",
					ErrMalformedHierarchy, id, strings.Join(path, " -> "))
			}
			state[id] = onPath
			path = append(path, id)
			id = node.parentID
		}

		for _, p := range path {
			state[p] = done
		}
	}

	return nil
}

// markReachable flags every ancestor of a published page. A walk stops at the first ancestor that
// is already flagged, since everything above it was flagged by an earlier walk.
func (t idTable) markReachable(records []PageRecord) {
	for _, r := range records {
		if !r.Published {
			continue
		}

		node := t[r.ID]
		node.reachable = true

		parent, ok := t[node.parentID]
		for ok && !parent.reachable {
			parent.reachable = true
			parent, ok = t[parent.parentID]
		}
	}
}

// pathFor concatenates ancestor names from the root down. The chain ends at the first parent we
// hold no record for (the database itself, or a page outside the listing).
func (t idTable) pathFor(id string, indexFile string) string {
	node := t[id]

	segments := []string{}
	parent, ok := t[node.parentID]
	for ok && parent.known {
		segments = append(segments, parent.name)
		parent, ok = t[parent.parentID]
	}

	// reverse: we collected leaf-to-root
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	if node.container {
		segments = append(segments, node.name, indexFile)
	} else {
		segments = append(segments, node.name+".md")
	}

	return strings.Join(segments, "/")
}
