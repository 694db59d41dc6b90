package auth

// NavItem is one entry of the navigation a tenant sees
type NavItem struct {
	Page  Page   `json:"page"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

var navLabels = map[Mode]map[Page]string{
	ModeRetail: {
		PageDashboard:  "Dashboard",
		PagePOS:        "Point of Sale",
		PageInventory:  "Inventory",
		PageAnalytics:  "Analytics",
		PageAutomation: "Automation",
		PageSettings:   "Settings",
	},
	ModeHospital: {
		PageDashboard:  "Dashboard",
		PagePOS:        "Dispensing",
		PageInventory:  "Ward Stock",
		PageAnalytics:  "Analytics",
		PageAutomation: "Automation",
		PageSettings:   "Settings",
	},
}

// Navigation returns the pages role may open, labelled for mode.
// Mode only changes labels, never which pages are allowed.
func Navigation(mode Mode, role UserRole) []NavItem {
	labels, ok := navLabels[mode]
	if !ok {
		labels = navLabels[ModeRetail]
	}

	items := make([]NavItem, 0, len(pageOrder))
	for _, page := range pageOrder {
		if !CanAccessPage(role, page) {
			continue
		}
		items = append(items, NavItem{
			Page:  page,
			Label: labels[page],
			Path:  "/" + string(page),
		})
	}
	return items
}
