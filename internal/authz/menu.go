package authz

import "crm-console/internal/model"

// MenuItem is a navigation node. Nodes with Items are groups.
type MenuItem struct {
	Title     string `json:"title" yaml:"title"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	Icon      string `json:"icon,omitempty" yaml:"icon,omitempty"`
	QuerySpec `yaml:",inline"`
	Items     []MenuItem `json:"items,omitempty" yaml:"items,omitempty"`
}

// FilterMenu prunes items down to what u can reach, keeping source order.
// A group whose children are all unreachable is dropped even if the group
// itself passes.
func FilterMenu(u *model.User, items []MenuItem) []MenuItem {
	if u == nil {
		return []MenuItem{}
	}
	if IsSuperUser(u) {
		return items
	}
	return filterItems(u, items)
}

func filterItems(u *model.User, items []MenuItem) []MenuItem {
	kept := make([]MenuItem, 0, len(items))
	for _, item := range items {
		if !Decide(u, item.QuerySpec) {
			continue
		}
		if len(item.Items) > 0 {
			children := filterItems(u, item.Items)
			if len(children) == 0 {
				continue
			}
			item.Items = children
		}
		kept = append(kept, item)
	}
	return kept
}
