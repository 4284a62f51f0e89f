// Package header keeps the open/closed state of the navigation chrome.
// None of the entries trigger navigation or backend calls.
package header

import (
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownEntry = errors.New("unknown account entry")

var (
	NavEntries     = []string{"Home", "Trips", "Vehicles", "Settings"}
	AccountEntries = []string{"Profile", "My account", "Logout"}
)

type State struct {
	Title           string   `json:"title"`
	DrawerOpen      bool     `json:"drawerOpen"`
	AccountMenuOpen bool     `json:"accountMenuOpen"`
	Search          string   `json:"search"`
	NavEntries      []string `json:"navEntries"`
	AccountEntries  []string `json:"accountEntries"`
}

type Header struct {
	title string

	mu          sync.Mutex
	drawerOpen  bool
	accountOpen bool
	search      string
}

func New(title string) *Header { return &Header{title: title} }

func (h *Header) SetDrawer(open bool) {
	h.mu.Lock()
	h.drawerOpen = open
	h.mu.Unlock()
}

func (h *Header) SetAccountMenu(open bool) {
	h.mu.Lock()
	h.accountOpen = open
	h.mu.Unlock()
}

// ChooseAccountEntry closes the account menu. The entry has no other effect.
func (h *Header) ChooseAccountEntry(entry string) error {
	known := false
	for _, e := range AccountEntries {
		if e == entry {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w %q", ErrUnknownEntry, entry)
	}
	h.SetAccountMenu(false)
	return nil
}

// SetSearch stores the search box text. Searching is not implemented.
func (h *Header) SetSearch(text string) {
	h.mu.Lock()
	h.search = text
	h.mu.Unlock()
}

func (h *Header) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return State{
		Title:           h.title,
		DrawerOpen:      h.drawerOpen,
		AccountMenuOpen: h.accountOpen,
		Search:          h.search,
		NavEntries:      append([]string(nil), NavEntries...),
		AccountEntries:  append([]string(nil), AccountEntries...),
	}
}
