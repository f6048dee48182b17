package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Manifest is a point-in-time fingerprint of the content tree. Comparing
// manifests tells an incremental rescan which files actually changed.
type Manifest struct {
	Files []FileManifest `json:"files"`
	Hash  string         `json:"hash"`
}

// FileManifest fingerprints a single page.
type FileManifest struct {
	Path         string `json:"path"`
	RelativePath string `json:"relative_path"`
	Section      string `json:"section"`
	ContentHash  string `json:"content_hash"`
}

// HashBytes returns the hex sha256 of a file body.
func HashBytes(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// ComputeTreeHash computes a deterministic hash over a set of pages: their
// relative paths, sections, and content hashes, in sorted order.
func ComputeTreeHash(files []PageFile) string {
	if len(files) == 0 {
		h := sha256.Sum256([]byte("empty-content-tree"))
		return hex.EncodeToString(h[:])
	}

	entries := manifestEntries(files)
	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s|%s|%s\n", e.RelativePath, e.Section, e.ContentHash)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewManifest builds a manifest for a set of pages. Pages are hashed from
// their loaded content; call LoadContent first or the hash covers nothing.
func NewManifest(files []PageFile) *Manifest {
	return &Manifest{
		Files: manifestEntries(files),
		Hash:  ComputeTreeHash(files),
	}
}

func manifestEntries(files []PageFile) []FileManifest {
	entries := make([]FileManifest, 0, len(files))
	for _, f := range files {
		contentHash := ""
		if len(f.Content) > 0 {
			contentHash = HashBytes(f.Content)
		}
		entries = append(entries, FileManifest{
			Path:         f.Path,
			RelativePath: f.RelativePath,
			Section:      f.Section,
			ContentHash:  contentHash,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelativePath < entries[j].RelativePath
	})
	return entries
}

// ChangedFiles compares two manifests and returns the relative paths that
// were added, removed, or modified in next relative to prev.
func ChangedFiles(prev, next *Manifest) []string {
	prevByPath := map[string]string{}
	for _, f := range prev.Files {
		prevByPath[f.RelativePath] = f.ContentHash
	}

	var changed []string
	seen := map[string]bool{}
	for _, f := range next.Files {
		seen[f.RelativePath] = true
		if hash, ok := prevByPath[f.RelativePath]; !ok || hash != f.ContentHash {
			changed = append(changed, f.RelativePath)
		}
	}
	for _, f := range prev.Files {
		if !seen[f.RelativePath] {
			changed = append(changed, f.RelativePath)
		}
	}
	sort.Strings(changed)
	return changed
}

// ToJSON serializes the manifest.
func (m *Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ManifestFromJSON deserializes a manifest.
func ManifestFromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal content manifest: %w", err)
	}
	return &m, nil
}
