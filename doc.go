// Package pack reads and writes the indexed container format a
// long-running family of strategy titles uses to ship game data: database
// tables, localization text, scripts, and binary assets bundled into a
// single archive with the .pack extension.
//
// Containers open lazily by default: Open parses the header and the two
// indexes, then leaves entry data on disk behind a shared file handle
// until something asks for it. Reading an entry resolves its stored form
// on demand, undoing compression and masking transparently. Saving
// materializes everything, re-encodes the indexes in the case-insensitive
// order the titles expect, and writes the new file atomically.
//
// # Quick Start
//
// Open a container and read an entry:
//
//	c, err := pack.Open("data.pack")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	e, ok := c.Lookup(pack.ParsePath(`db\units_tables\data`))
//	if !ok {
//	    return pack.ErrNotFound
//	}
//	content, err := e.Data()
//
// Build a new container and save it:
//
//	c := pack.New(pack.V5)
//	c.Insert(pack.NewEntry(pack.ParsePath(`text\readme.txt`), []byte("hi")))
//	err := c.SaveAs("mod.pack")
//
// # Revisions
//
// Six container revisions exist, told apart by their 4-byte magic (PFH0
// through PFH6, skipping PFH1). Later revisions added timestamps,
// per-entry compression, encryption, and structured subheaders; the
// package reads and writes all of them and drops what a target revision
// cannot represent when saving.
//
// # Reserved entries
//
// Container notes and per-container settings persist inside the archive
// itself as reserved entries. They are lifted out when opening and do not
// appear alongside regular entries; use Notes, SetNotes, and Settings
// instead.
package pack
