package kubescript

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/df-mc/jsonc"
	"github.com/oriumgames/kubescript/script"
)

// scriptFile is a script registered on the Builder or read from disk.
type scriptFile struct {
	typ  script.Type
	name string
	src  string
}

// document is a recipe document registered on the Builder or read from disk.
type document struct {
	id   string
	data []byte
}

// readScripts reads <dir>/<type>/**/*.lua for every script type. Scripts are
// returned in type order, then by path.
func readScripts(dir string) ([]scriptFile, error) {
	if dir == "" {
		return nil, nil
	}
	var out []scriptFile
	for _, t := range script.Types() {
		root := filepath.Join(dir, t.String())
		err := walkFiles(root, ".lua", func(rel string, data []byte) error {
			out = append(out, scriptFile{typ: t, name: path.Join(t.String(), rel), src: string(data)})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// readDocuments reads <dir>/<namespace>/recipes/**/*.json. Documents may
// contain comments. The id of a document is namespace:path without the
// extension.
func readDocuments(dir string) ([]document, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var out []document
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ns := e.Name()
		err := walkFiles(filepath.Join(dir, ns, "recipes"), ".json", func(rel string, data []byte) error {
			out = append(out, document{
				id:   ns + ":" + strings.TrimSuffix(rel, ".json"),
				data: jsonc.ToJSON(data),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// walkFiles calls fn for every file under root with the given extension, in
// lexical order, passing the slash-separated path relative to root. A
// missing root is not an error.
func walkFiles(root, ext string, fn func(rel string, data []byte) error) error {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ext) {
			files = append(files, p)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}
	slices.Sort(files)
	for _, p := range files {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if err := fn(filepath.ToSlash(rel), data); err != nil {
			return err
		}
	}
	return nil
}
