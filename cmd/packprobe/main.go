// Command packprobe inspects container files: header summary, entry
// listing, dependency chains, and full data verification.
//
// Usage:
//
//	packprobe [flags] file.pack...
//
// By default each container gets a one-screen summary. -list prints the
// entry table, -verify resolves every entry's data and reports the ones
// that fail to decode.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/modforge/pack"
)

type config struct {
	list    bool
	verify  bool
	deps    bool
	notes   bool
	preload bool
	typeOf  string
	verbose bool
}

func main() {
	cfg := parseFlags()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := 0
	for _, path := range flag.Args() {
		if err := probe(path, cfg); err != nil {
			log.Printf("%s: %v", path, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func parseFlags() config {
	var cfg config
	flag.BoolVar(&cfg.list, "list", false, "list entries")
	flag.BoolVar(&cfg.verify, "verify", false, "resolve every entry's data and report decode failures")
	flag.BoolVar(&cfg.deps, "deps", false, "print the dependency list")
	flag.BoolVar(&cfg.notes, "notes", false, "print the container notes")
	flag.BoolVar(&cfg.preload, "preload", false, "load all entry data up front instead of lazily")
	flag.StringVar(&cfg.typeOf, "type", "", "restrict -list to one entry type: db, loc, text, image, anim, video, other")
	flag.BoolVar(&cfg.verbose, "v", false, "log open diagnostics to stderr")
	flag.Parse()
	return cfg
}

func probe(path string, cfg config) error {
	opts := []pack.OpenOption{pack.WithPreload(cfg.preload)}
	if cfg.verbose {
		opts = append(opts, pack.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	c, err := pack.Open(path, opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	printSummary(path, c)
	if cfg.deps {
		for _, dep := range c.Dependencies() {
			fmt.Printf("  depends on %s\n", dep)
		}
	}
	if cfg.notes && c.Notes() != "" {
		fmt.Println(c.Notes())
	}
	if cfg.list {
		if err := printEntries(c, cfg.typeOf); err != nil {
			return err
		}
	}
	if cfg.verify {
		return verify(c)
	}
	return nil
}

func printSummary(path string, c *pack.Container) {
	fmt.Printf("%s: %s %s", path, c.Version(), c.FileType())
	if !c.Timestamp().IsZero() {
		fmt.Printf(" saved %s", c.Timestamp().Format("2006-01-02 15:04:05"))
	}
	fmt.Printf(", %d entries, %d dependencies", c.Len(), len(c.Dependencies()))
	if f := c.Flags(); f != 0 {
		fmt.Printf(", flags %#x", uint32(f))
	}
	if sub := c.Subheader(); c.Version() == pack.V6 {
		fmt.Printf(", game %d build %d tool %q", sub.GameVersion, sub.Build, sub.Tool)
	}
	fmt.Println()
}

func printEntries(c *pack.Container, typeName string) error {
	seq := c.Entries()
	if typeName != "" {
		t, err := parseEntryType(typeName)
		if err != nil {
			return err
		}
		seq = c.EntriesOfType(t)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for e := range seq {
		marks := ""
		if e.Compressed() {
			marks += "z"
		}
		if e.Encrypted() {
			marks += "e"
		}
		mod := ""
		if !e.ModTime().IsZero() {
			mod = e.ModTime().Format("2006-01-02")
		}
		fmt.Fprintf(w, "  %s\t%d\t%s\t%s\t%s\n", e.Path(), e.Size(), e.Type(), marks, mod)
	}
	return w.Flush()
}

func verify(c *pack.Container) error {
	bad := 0
	for e := range c.Entries() {
		if _, err := e.Data(); err != nil {
			log.Printf("  %v", err)
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d entries failed to decode", bad, c.Len())
	}
	fmt.Printf("  all %d entries decode cleanly\n", c.Len())
	return nil
}

func parseEntryType(name string) (pack.EntryType, error) {
	for _, t := range []pack.EntryType{
		pack.TypeOther, pack.TypeDB, pack.TypeLoc, pack.TypeText,
		pack.TypeImage, pack.TypeAnim, pack.TypeVideo,
	} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown entry type %q", name)
}
