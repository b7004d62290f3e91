package notify

import "sort"

// Modal identifiers used by the views.
const (
	ModalStatus        = "status-modal"
	ModalConfirmDelete = "confirm-delete"
	ModalImport        = "import-modal"
)

// Modals tracks which modals are open. The zero value has none open.
type Modals map[string]bool

// Open shows the modal with id.
func (m *Modals) Open(id string) {
	if *m == nil {
		*m = Modals{}
	}
	(*m)[id] = true
}

// Close hides the modal with id.
func (m Modals) Close(id string) {
	delete(m, id)
}

// Escape closes every open modal, like pressing the Escape key.
func (m Modals) Escape() {
	for id := range m {
		delete(m, id)
	}
}

// IsOpen reports whether the modal with id is shown.
func (m Modals) IsOpen(id string) bool {
	return m[id]
}

// OpenIDs lists open modals in a stable order.
func (m Modals) OpenIDs() []string {
	ids := make([]string, 0, len(m))
	for id, open := range m {
		if open {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
