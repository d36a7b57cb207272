package trigger

import (
	"os"
	"path/filepath"
	"sort"
)

// folderState — известные файлы наблюдаемой папки.
type folderState struct {
	known map[string]struct{}
}

// scanFolder возвращает файлы папки, подходящие под шаблон.
// Каталоги не учитываются.
func scanFolder(folder, pattern string) (map[string]struct{}, error) {
	matches, err := filepath.Glob(filepath.Join(folder, pattern))
	if err != nil {
		return nil, err
	}

	files := make(map[string]struct{}, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		files[path] = struct{}{}
	}
	return files, nil
}

// newFolderState запоминает файлы, существующие на момент старта.
// Недоступная папка даёт пустое состояние: её файлы появятся позже как новые.
func newFolderState(folder, pattern string) *folderState {
	files, err := scanFolder(folder, pattern)
	if err != nil {
		files = make(map[string]struct{})
	}
	return &folderState{known: files}
}

// poll возвращает новые файлы в порядке имён и запоминает их.
func (s *folderState) poll(folder, pattern string) ([]string, error) {
	files, err := scanFolder(folder, pattern)
	if err != nil {
		return nil, err
	}

	var added []string
	for path := range files {
		if _, ok := s.known[path]; !ok {
			s.known[path] = struct{}{}
			added = append(added, path)
		}
	}
	sort.Strings(added)
	return added, nil
}
