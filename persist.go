package propstore

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// Format selects the layout of the flat persisted document.
type Format int

const (
	// FormatXML is the java.util.Properties XML layout: an XML declaration,
	// the properties DOCTYPE, an optional <comment> and one <entry key="ns:key">
	// element per value.
	FormatXML Format = iota
	// FormatYAML is a flat YAML mapping of qualified keys to string values,
	// preceded by the comment as "#" lines.
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps "xml", "yaml" or "yml" to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "xml":
		return FormatXML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatXML, fmt.Errorf("propstore: unknown format %q", name)
}

// FormatForPath picks a Format from a file extension, defaulting to XML.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatXML
	}
}

// DocumentOptions control how a document is written.
type DocumentOptions struct {
	// Comment is written at the head of the document when non-empty.
	Comment string
	// Encoding is the character encoding declared in and used for an XML
	// document, by IANA name. Empty means UTF-8. YAML is always UTF-8.
	Encoding string
}

const propertiesDoctype = `<!DOCTYPE properties SYSTEM "http://java.sun.com/dtd/properties.dtd">`

type xmlProperties struct {
	XMLName xml.Name   `xml:"properties"`
	Comment string     `xml:"comment,omitempty"`
	Entries []xmlEntry `xml:"entry"`
}

type xmlEntry struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// WriteDocument writes entries (qualified key to encoded value) to w in key order.
func WriteDocument(w io.Writer, entries map[string]string, f Format, opts DocumentOptions) error {
	switch f {
	case FormatXML:
		return writeXML(w, entries, opts)
	case FormatYAML:
		return writeYAML(w, entries, opts)
	}
	return fmt.Errorf("propstore: unsupported format %v", f)
}

// ReadDocument parses a document written by WriteDocument, or by
// java.util.Properties.storeToXML for FormatXML.
func ReadDocument(r io.Reader, f Format) (map[string]string, error) {
	switch f {
	case FormatXML:
		return readXML(r)
	case FormatYAML:
		return readYAML(r)
	}
	return nil, fmt.Errorf("propstore: unsupported format %v", f)
}

func lookupEncoding(name string) (encoding.Encoding, string, error) {
	if name == "" || strings.EqualFold(name, "UTF-8") || strings.EqualFold(name, "UTF8") {
		return unicode.UTF8, "UTF-8", nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, "", fmt.Errorf("propstore: unsupported encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, "", fmt.Errorf("propstore: unsupported encoding %q", name)
	}
	canonical, err := ianaindex.MIME.Name(enc)
	if err != nil {
		if canonical, err = ianaindex.IANA.Name(enc); err != nil {
			canonical = name
		}
	}
	return enc, canonical, nil
}

func writeXML(w io.Writer, entries map[string]string, opts DocumentOptions) error {
	enc, name, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return err
	}
	if err := checkXMLText("comment", opts.Comment); err != nil {
		return err
	}
	doc := xmlProperties{Comment: opts.Comment}
	for _, k := range sortedKeys(entries) {
		if err := checkXMLText("key", k); err != nil {
			return err
		}
		if err := checkXMLText("value of "+k, entries[k]); err != nil {
			return err
		}
		doc.Entries = append(doc.Entries, xmlEntry{Key: k, Value: entries[k]})
	}

	// Runes the charset lacks are written as character references.
	out := transform.NewWriter(w, encoding.HTMLEscapeUnsupported(enc.NewEncoder()))
	bw := bufio.NewWriter(out)
	fmt.Fprintf(bw, "<?xml version=\"1.0\" encoding=%q standalone=\"no\"?>\n%s\n", name, propertiesDoctype)

	xe := xml.NewEncoder(bw)
	xe.Indent("", "  ")
	if err := xe.Encode(doc); err != nil {
		return err
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	// Close flushes the encoder's buffered tail; it does not close w.
	return out.Close()
}

// checkXMLText fails for text that XML 1.0 cannot carry: invalid UTF-8 and
// characters outside the Char production, such as NUL and most C0 controls.
func checkXMLText(what, text string) error {
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				return fmt.Errorf("%w: %s has invalid UTF-8 at byte %d", ErrUnencodable, what, i)
			}
			continue
		}
		if !isXMLChar(r) {
			return fmt.Errorf("%w: %s holds %U at byte %d", ErrUnencodable, what, r, i)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= utf8.MaxRune:
		return true
	}
	return false
}

func readXML(r io.Reader) (map[string]string, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, _, err := lookupEncoding(label)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}
	var doc xmlProperties
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	out := make(map[string]string, len(doc.Entries))
	for _, e := range doc.Entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

func writeYAML(w io.Writer, entries map[string]string, opts DocumentOptions) error {
	if !utf8.ValidString(opts.Comment) {
		return fmt.Errorf("%w: comment is not valid UTF-8", ErrUnencodable)
	}
	bw := bufio.NewWriter(w)
	if opts.Comment != "" {
		for _, line := range strings.Split(opts.Comment, "\n") {
			fmt.Fprintf(bw, "# %s\n", line)
		}
	}

	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range sortedKeys(entries) {
		if !utf8.ValidString(k) || !utf8.ValidString(entries[k]) {
			return fmt.Errorf("%w: entry %q is not valid UTF-8", ErrUnencodable, k)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entries[k]},
		)
	}
	ye := yaml.NewEncoder(bw)
	ye.SetIndent(2)
	if err := ye.Encode(root); err != nil {
		return err
	}
	if err := ye.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

func readYAML(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return out, nil
}

// Write serializes a Snapshot of the store.
func (s *Store) Write(w io.Writer, f Format, opts DocumentOptions) error {
	err := WriteDocument(w, s.Snapshot(), f, opts)
	if err != nil {
		err = wrapPersist("write", err)
	}
	return err
}

// Read parses a document and merges it into the store with Restore.
func (s *Store) Read(r io.Reader, f Format) error {
	entries, err := ReadDocument(r, f)
	if err == nil {
		err = s.Restore(entries)
	}
	if err != nil {
		err = wrapPersist("read", err)
	}
	return err
}

func wrapPersist(op string, err error) error {
	var pe *PersistError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistError{Op: op, Err: err}
}
