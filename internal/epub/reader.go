package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// EPUBReader provides access to EPUB file contents.
// ReadFile may be called from multiple goroutines.
type EPUBReader struct {
	closer  io.Closer
	files   map[string]*zip.File
	opfPath string
}

// container.xml structure
type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

var (
	ErrInvalidMimetype    = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrMimetypeCompressed = errors.New("mimetype must not be compressed")
	ErrMimetypeNotFound   = errors.New("mimetype file not found")
	ErrContainerNotFound  = errors.New("META-INF/container.xml not found")
	ErrOPFPathNotFound    = errors.New("OPF path not found in container.xml")
	ErrFileNotFound       = errors.New("file not found in EPUB")
)

// Open opens an EPUB file and validates its structure
func Open(path string) (*EPUBReader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB: %w", err)
	}

	reader, err := newReader(&zr.Reader, zr)
	if err != nil {
		zr.Close()
		return nil, err
	}
	return reader, nil
}

// OpenReader reads an EPUB from r, which holds size bytes.
func OpenReader(r io.ReaderAt, size int64) (*EPUBReader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB: %w", err)
	}
	return newReader(zr, nil)
}

func newReader(zr *zip.Reader, closer io.Closer) (*EPUBReader, error) {
	reader := &EPUBReader{
		closer: closer,
		files:  make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		reader.files[normalizePath(f.Name)] = f
	}

	if err := reader.validateMimetype(); err != nil {
		return nil, err
	}
	if err := reader.parseContainer(); err != nil {
		return nil, err
	}
	return reader, nil
}

// Close closes the EPUB reader
func (r *EPUBReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// OPFPath returns the path to the OPF file
func (r *EPUBReader) OPFPath() string {
	return r.opfPath
}

// ReadFile reads the contents of a file from the EPUB.
// Missing files return an error wrapping ErrFileNotFound.
func (r *EPUBReader) ReadFile(name string) ([]byte, error) {
	name = normalizePath(name)
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Package reads and parses the OPF package document.
func (r *EPUBReader) Package() (*OPF, error) {
	data, err := r.ReadFile(r.opfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPF: %w", err)
	}
	opf, err := ParseOPF(data, path.Dir(r.opfPath))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OPF: %w", err)
	}
	return opf, nil
}

// validateMimetype checks that the mimetype file exists and is valid
func (r *EPUBReader) validateMimetype() error {
	f, ok := r.files["mimetype"]
	if !ok {
		return ErrMimetypeNotFound
	}
	if f.Method != zip.Store {
		return ErrMimetypeCompressed
	}

	content, err := r.ReadFile("mimetype")
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}
	if strings.TrimSpace(string(content)) != "application/epub+zip" {
		return ErrInvalidMimetype
	}
	return nil
}

// parseContainer parses container.xml to extract OPF path
func (r *EPUBReader) parseContainer() error {
	content, err := r.ReadFile("META-INF/container.xml")
	if err != nil {
		return ErrContainerNotFound
	}

	var c container
	if err := xml.Unmarshal(content, &c); err != nil {
		return fmt.Errorf("failed to parse container.xml: %w", err)
	}

	for _, rf := range c.Rootfiles.Rootfile {
		if rf.MediaType == "application/oebps-package+xml" || rf.MediaType == "" {
			r.opfPath = normalizePath(rf.FullPath)
			return nil
		}
	}

	// If no media-type match, use the first one
	if len(c.Rootfiles.Rootfile) > 0 {
		r.opfPath = normalizePath(c.Rootfiles.Rootfile[0].FullPath)
		return nil
	}

	return ErrOPFPathNotFound
}

// normalizePath normalizes file paths (removes ./ prefix)
func normalizePath(name string) string {
	return strings.TrimPrefix(name, "./")
}
