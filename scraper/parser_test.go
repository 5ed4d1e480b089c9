package scraper

import (
	"fmt"
	"strings"
	"testing"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser("https://swap.example.test", nil)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	return p
}

func listingFragment(id, title, href, price, image string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<section class=\"listing-item\" data-listingid=%q>", id)
	if title != "" || href != "" {
		fmt.Fprintf(&b, "<h2 class=\"title\"><a href=%q>%s</a></h2>", href, title)
	}
	if price != "" {
		fmt.Fprintf(&b, "<span class=\"price\">$<span class=\"NumberPart\">%s</span></span>", price)
	}
	if image != "" {
		fmt.Fprintf(&b, "<div class=\"img-container\"><img src=%q/></div>", image)
	}
	b.WriteString("</section>")
	return b.String()
}

func browsePage(fragments ...string) string {
	return "<html><body><main>" + strings.Join(fragments, "\n") + "</main></body></html>"
}

func TestParseExtractsItemFields(t *testing.T) {
	p := newTestParser(t)
	page := browsePage(listingFragment("840061", "Dell Latitude 7490", "/Listing/Details/840061/dell-latitude-7490", "45.00", "/images/840061/thumb.jpg"))

	items, err := p.Parse(page)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}

	item := items[0]
	if item.ID != "840061" {
		t.Fatalf("id = %q, want %q", item.ID, "840061")
	}
	if item.Title != "Dell Latitude 7490" {
		t.Fatalf("title = %q, want %q", item.Title, "Dell Latitude 7490")
	}
	if want := "https://swap.example.test/Listing/Details/840061/dell-latitude-7490"; item.URL != want {
		t.Fatalf("url = %q, want %q", item.URL, want)
	}
	if item.Price != "45.00" {
		t.Fatalf("price = %q, want %q", item.Price, "45.00")
	}
	if item.Image != "/images/840061/thumb.jpg" {
		t.Fatalf("image = %q, want %q", item.Image, "/images/840061/thumb.jpg")
	}
}

func TestParseSkipsFragmentsWithoutUsableTitle(t *testing.T) {
	p := newTestParser(t)
	page := browsePage(
		listingFragment("1", "Office Chair", "/Listing/Details/1/office-chair", "5.00", ""),
		listingFragment("2", "", "", "9.00", ""),
		listingFragment("3", "", "/Listing/Details/3/unnamed", "9.00", ""),
		listingFragment("4", "   ", "/Listing/Details/4/blank", "9.00", ""),
	)

	items, err := p.Parse(page)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].ID != "1" {
		t.Fatalf("id = %q, want %q", items[0].ID, "1")
	}
}

func TestParseKeepsItemWithoutPrice(t *testing.T) {
	p := newTestParser(t)
	page := browsePage(listingFragment("77", "Mystery Box", "/Listing/Details/77/mystery-box", "", ""))

	items, err := p.Parse(page)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Price != "" {
		t.Fatalf("price = %q, want empty", items[0].Price)
	}
	if items[0].Image != "" {
		t.Fatalf("image = %q, want empty", items[0].Image)
	}
}

func TestParseIsolatesMalformedFragments(t *testing.T) {
	p := newTestParser(t)
	page := browsePage(
		listingFragment("1", "Standing Desk", "/Listing/Details/1/standing-desk", "20.00", ""),
		listingFragment("", "Ghost Listing", "/Listing/Details/0/ghost", "1.00", ""),
		listingFragment("9", "Broken Link", "%zz", "3.00", ""),
		listingFragment("2", "Filing Cabinet", "/Listing/Details/2/filing-cabinet", "8.00", ""),
	)

	items, err := p.Parse(page)
	if err != nil {
		t.Fatalf("parse should not fail on malformed fragments, got %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].ID != "1" || items[1].ID != "2" {
		t.Fatalf("ids = %q,%q, want 1,2", items[0].ID, items[1].ID)
	}
}

func TestParseCollapsesDuplicateIDs(t *testing.T) {
	p := newTestParser(t)
	page := browsePage(
		listingFragment("7", "Projector", "/Listing/Details/7/projector", "30.00", ""),
		listingFragment("7", "Projector (relisted)", "/Listing/Details/7/projector", "25.00", ""),
		listingFragment("8", "Whiteboard", "/Listing/Details/8/whiteboard", "4.00", ""),
	)

	items, err := p.Parse(page)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	ids := make(map[string]struct{}, len(items))
	for _, item := range items {
		ids[item.ID] = struct{}{}
	}
	for _, id := range []string{"7", "8"} {
		if _, ok := ids[id]; !ok {
			t.Fatalf("missing id %q in %v", id, ids)
		}
	}
}

func TestParseResolvesListingURLs(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{name: "absolute path", href: "/Listing/Details/5/a", want: "https://swap.example.test/Listing/Details/5/a"},
		{name: "relative path", href: "Listing/Details/5/a", want: "https://swap.example.test/Listing/Details/5/a"},
		{name: "absolute url", href: "https://cdn.example.org/5", want: "https://cdn.example.org/5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(t)
			items, err := p.Parse(browsePage(listingFragment("5", "Laptop Cart", tt.href, "", "")))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(items) != 1 {
				t.Fatalf("items = %d, want 1", len(items))
			}
			if items[0].URL != tt.want {
				t.Fatalf("url = %q, want %q", items[0].URL, tt.want)
			}
		})
	}
}

func TestParseEmptyPage(t *testing.T) {
	p := newTestParser(t)
	items, err := p.Parse(browsePage())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0", len(items))
	}
}
