package notion

import (
	"context"
	"fmt"
	"time"
)

// Per-request budget, same for every paginated call below.
const requestTimeout = 10 * time.Second

// QueryAllPages pages through a database query and returns every row.
func (api *API) QueryAllPages(ctx context.Context, databaseID string) ([]Page, error) {
	pages := []Page{}

	// oldest first, so the listing order is stable between runs
	query := DatabaseQuery{
		DatabaseID: databaseID,
		Sorts:      []QuerySort{{Timestamp: "created_time", Direction: "ascending"}},
		PageSize:   100,
	}

	for {
		result, err := api.queryDatabaseOnce(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("notion: couldn't list pages of database %s: %w", databaseID, err)
		}

		pages = append(pages, result.Results...)

		if !result.HasMore {
			break
		}
		if result.NextCursor == "" {
			return nil, fmt.Errorf("notion: has_more set but next_cursor was empty")
		}
		query.StartCursor = result.NextCursor
	}

	return pages, nil
}

func (api *API) queryDatabaseOnce(ctx context.Context, query DatabaseQuery) (*PageList, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	return api.QueryDatabase(ctx, query)
}

// GetAllBlockChildren returns one level of children of a block, following pagination.
func (api *API) GetAllBlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	blocks := []Block{}

	query := BlockChildrenQuery{
		ID:       blockID,
		PageSize: 100,
	}

	for {
		result, err := api.getBlockChildrenOnce(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("notion: couldn't list children of %s: %w", blockID, err)
		}

		blocks = append(blocks, result.Results...)

		if !result.HasMore {
			break
		}
		if result.NextCursor == "" {
			return nil, fmt.Errorf("notion: has_more set but next_cursor was empty")
		}
		query.StartCursor = result.NextCursor
	}

	return blocks, nil
}

func (api *API) getBlockChildrenOnce(ctx context.Context, query BlockChildrenQuery) (*BlockList, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	return api.GetBlockChildren(ctx, query)
}

// ChildLister is anything that can list one level of block children.
type ChildLister interface {
	GetAllBlockChildren(ctx context.Context, blockID string) ([]Block, error)
}

// GetBlockTree fetches the children of pageID and, for every block that says it has children,
// its descendants. The walk uses an explicit work list, so nesting depth costs heap, not stack.
// Sub-pages and inline databases are left unexpanded; they are pages of their own.
func GetBlockTree(ctx context.Context, lister ChildLister, pageID string) ([]Block, error) {
	roots, err := lister.GetAllBlockChildren(ctx, pageID)
	if err != nil {
		return nil, err
	}

	pending := []*Block{}
	for i := range roots {
		if expandable(roots[i]) {
			pending = append(pending, &roots[i])
		}
	}

	seen := map[string]bool{}
	for len(pending) > 0 {
		parent := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if seen[parent.ID] {
			return nil, fmt.Errorf("notion: block %s listed twice in the tree of %s", parent.ID, pageID)
		}
		seen[parent.ID] = true

		children, err := lister.GetAllBlockChildren(ctx, parent.ID)
		if err != nil {
			return nil, err
		}
		parent.Children = children

		for i := range parent.Children {
			if expandable(parent.Children[i]) {
				pending = append(pending, &parent.Children[i])
			}
		}
	}

	return roots, nil
}

func expandable(b Block) bool {
	return b.HasChildren && b.Type != "child_page" && b.Type != "child_database"
}
