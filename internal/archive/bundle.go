package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/Granthalaya/core/cas"
)

// ManifestName is the bundle entry describing its contents.
const ManifestName = "manifest.json"

// ManifestVersion is written into new bundles.
const ManifestVersion = "1"

// Manifest describes a bundle.
type Manifest struct {
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	CreatedAt   string   `json:"created_at"`
	Documents   []string `json:"documents"`
	Fingerprint string   `json:"fingerprint"`
}

// bundleEpoch is the fixed mtime written into entries so identical
// inputs produce identical archives.
var bundleEpoch = time.Unix(0, 0).UTC()

// IsDocumentFile reports whether name is a corpus document by extension.
func IsDocumentFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".json" || ext == ".xml"
}

// CreateBundle packages the document files directly inside srcDir into
// dstPath. The format follows the extension of dstPath (.tar.xz or
// .tar.gz). Parent directories of dstPath are created.
func CreateBundle(srcDir, dstPath string) (*Manifest, error) {
	if BundleName(dstPath) == dstPath || strings.HasSuffix(dstPath, ".tar") {
		return nil, fmt.Errorf("unsupported archive format: %s", dstPath)
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("read corpus directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsDocumentFile(e.Name()) && e.Name() != ManifestName {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}
	out, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	compressor, err := newCompressor(out, dstPath)
	if err != nil {
		return nil, err
	}

	tw := tar.NewWriter(compressor)
	hasher := cas.NewHasher()
	base := BundleName(filepath.Base(dstPath))

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(srcDir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		hasher.Add(name, data)
		if err := writeEntry(tw, base+"/"+name, data); err != nil {
			return nil, err
		}
	}

	manifest := &Manifest{
		Version:     ManifestVersion,
		Name:        base,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Documents:   names,
		Fingerprint: hasher.Fingerprint(),
	}
	if manifest.Documents == nil {
		manifest.Documents = []string{}
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeEntry(tw, base+"/"+ManifestName, data); err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finish tar: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return nil, fmt.Errorf("finish compression: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return manifest, nil
}

// ReadManifest returns the manifest of the bundle at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := ReadFile(path, ManifestName)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func newCompressor(w io.Writer, dstPath string) (io.WriteCloser, error) {
	switch {
	case strings.HasSuffix(dstPath, ".tar.xz"):
		xzw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		return xzw, nil
	case strings.HasSuffix(dstPath, ".tar.gz"), strings.HasSuffix(dstPath, ".tgz"):
		return gzip.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", dstPath)
	}
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: bundleEpoch,
		Format:  tar.FormatPAX,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
