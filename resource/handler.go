package resource

// FormatHandler is a pluggable codec for a set of file extensions.
// Handlers are queried in registration order; the first handler claiming
// an extension wins. Extensions are lowercase without the leading dot.
type FormatHandler interface {
	SupportsImport(ext string) bool
	SupportsExport(ext string) bool

	// Import decodes the resource addressed by p into its data object.
	// Handlers read through the manager's filesystem helpers so the
	// resulting errors carry the manager's taxonomy.
	Import(m *Manager, p Path) (any, error)

	// Export writes res to p. Overwrite policy is enforced by the
	// manager before Export is called.
	Export(res any, m *Manager, p Path) error
}

func (m *Manager) importerFor(ext string) FormatHandler {
	for _, h := range m.handlers {
		if h.SupportsImport(ext) {
			return h
		}
	}
	return nil
}

func (m *Manager) exporterFor(ext string) FormatHandler {
	for _, h := range m.handlers {
		if h.SupportsExport(ext) {
			return h
		}
	}
	return nil
}

// SupportsImport reports whether some registered handler can import the
// given extension. No I/O is performed.
func (m *Manager) SupportsImport(ext string) bool { return m.importerFor(ext) != nil }

// SupportsExport reports whether some registered handler can export the
// given extension. No I/O is performed.
func (m *Manager) SupportsExport(ext string) bool { return m.exporterFor(ext) != nil }
